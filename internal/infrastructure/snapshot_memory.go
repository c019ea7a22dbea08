package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mediaecomx/dashboard-project/internal/domain"
)

// MemorySnapshotStore is the single-process fallback when redis is disabled.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	points    []domain.TrendPoint
	retention time.Duration
}

func NewMemorySnapshotStore(retention time.Duration) *MemorySnapshotStore {
	return &MemorySnapshotStore{
		points:    make([]domain.TrendPoint, 0),
		retention: retention,
	}
}

func (s *MemorySnapshotStore) Append(ctx context.Context, summary map[string]int, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for marketer, activeUsers := range summary {
		s.points = append(s.points, domain.TrendPoint{
			Timestamp:   ts,
			Marketer:    marketer,
			ActiveUsers: activeUsers,
		})
	}

	cutoff := ts.Add(-s.retention)
	kept := s.points[:0]
	for _, point := range s.points {
		if !point.Timestamp.Before(cutoff) {
			kept = append(kept, point)
		}
	}
	s.points = kept

	return nil
}

func (s *MemorySnapshotStore) Query(ctx context.Context, since time.Time) ([]domain.TrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := make([]domain.TrendPoint, 0, len(s.points))
	for _, point := range s.points {
		if !point.Timestamp.Before(since) {
			points = append(points, point)
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	return points, nil
}
