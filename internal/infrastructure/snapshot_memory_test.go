package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemorySnapshotStoreAppendAndQuery(t *testing.T) {
	require := require.New(t)

	store := NewMemorySnapshotStore(time.Hour)
	ctx := context.Background()

	t0 := time.Date(2025, 8, 29, 10, 0, 0, 0, time.UTC)
	require.NoError(store.Append(ctx, map[string]int{"anna": 5}, t0))
	require.NoError(store.Append(ctx, map[string]int{"anna": 7, "bert": 2}, t0.Add(time.Minute)))

	points, err := store.Query(ctx, t0)
	require.NoError(err)
	require.Len(points, 3)
	require.False(points[0].Timestamp.After(points[1].Timestamp))

	// Query excludes samples before since.
	points, err = store.Query(ctx, t0.Add(30*time.Second))
	require.NoError(err)
	require.Len(points, 2)
}

func TestMemorySnapshotStoreTrimsRetention(t *testing.T) {
	require := require.New(t)

	store := NewMemorySnapshotStore(10 * time.Minute)
	ctx := context.Background()

	t0 := time.Date(2025, 8, 29, 10, 0, 0, 0, time.UTC)
	require.NoError(store.Append(ctx, map[string]int{"anna": 1}, t0))
	require.NoError(store.Append(ctx, map[string]int{"anna": 2}, t0.Add(20*time.Minute)))

	points, err := store.Query(ctx, time.Time{})
	require.NoError(err)
	require.Len(points, 1)
	require.Equal(2, points[0].ActiveUsers)
}
