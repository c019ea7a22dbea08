package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestMergeQuotaSumsConsumedAndTakesMinRemaining(t *testing.T) {
	require := require.New(t)

	merged := MergeQuota([]QuotaSnapshot{
		{
			TokensPerHour: TokenBucket{Consumed: 100, Remaining: int64Ptr(4000)},
			TokensPerDay:  TokenBucket{Consumed: 900, Remaining: int64Ptr(20000)},
		},
		{
			TokensPerHour: TokenBucket{Consumed: 250, Remaining: int64Ptr(1200)},
			TokensPerDay:  TokenBucket{Consumed: 100, Remaining: int64Ptr(24000)},
		},
	})

	require.Equal(int64(350), merged.TokensPerHour.Consumed)
	require.NotNil(merged.TokensPerHour.Remaining)
	require.Equal(int64(1200), *merged.TokensPerHour.Remaining)

	require.Equal(int64(1000), merged.TokensPerDay.Consumed)
	require.NotNil(merged.TokensPerDay.Remaining)
	require.Equal(int64(20000), *merged.TokensPerDay.Remaining)
}

func TestMergeQuotaUnknownRemaining(t *testing.T) {
	require := require.New(t)

	// One property reports remaining, the other does not; the known value
	// still gates the batch.
	merged := MergeQuota([]QuotaSnapshot{
		{TokensPerHour: TokenBucket{Consumed: 10}},
		{TokensPerHour: TokenBucket{Consumed: 20, Remaining: int64Ptr(700)}},
	})
	require.Equal(int64(30), merged.TokensPerHour.Consumed)
	require.NotNil(merged.TokensPerHour.Remaining)
	require.Equal(int64(700), *merged.TokensPerHour.Remaining)

	// All unknown stays unknown.
	merged = MergeQuota([]QuotaSnapshot{
		{TokensPerHour: TokenBucket{Consumed: 10}},
		{TokensPerHour: TokenBucket{Consumed: 20}},
	})
	require.Nil(merged.TokensPerHour.Remaining)
}

func TestMergeQuotaEmpty(t *testing.T) {
	require := require.New(t)

	merged := MergeQuota(nil)
	require.Equal(int64(0), merged.TokensPerHour.Consumed)
	require.Nil(merged.TokensPerHour.Remaining)
}

func TestParseSegment(t *testing.T) {
	require := require.New(t)

	require.Equal(SegmentByDay, ParseSegment("day"))
	require.Equal(SegmentByWeek, ParseSegment("week"))
	require.Equal(SegmentSummary, ParseSegment("summary"))
	require.Equal(SegmentSummary, ParseSegment(""))
	require.Equal(SegmentSummary, ParseSegment("bogus"))
}
