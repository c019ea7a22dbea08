package domain

// TokenBucket tracks one upstream quota window. Remaining is nil when the
// upstream does not report it.
type TokenBucket struct {
	Consumed  int64  `json:"consumed"`
	Remaining *int64 `json:"remaining,omitempty"`
}

// QuotaSnapshot is the upstream token budget as observed on the most recent
// successful fetch. It is replaced wholesale by each fetch response.
type QuotaSnapshot struct {
	TokensPerHour TokenBucket `json:"tokens_per_hour"`
	TokensPerDay  TokenBucket `json:"tokens_per_day"`
}

// MergeQuota combines the per-property snapshots of one batch fetch into the
// snapshot that gates the next decision: consumed sums across properties,
// remaining takes the minimum of the known values (the most constrained
// property gates everyone). All-unknown stays unknown.
func MergeQuota(snaps []QuotaSnapshot) QuotaSnapshot {
	var merged QuotaSnapshot
	merged.TokensPerHour = mergeBuckets(snaps, func(s QuotaSnapshot) TokenBucket { return s.TokensPerHour })
	merged.TokensPerDay = mergeBuckets(snaps, func(s QuotaSnapshot) TokenBucket { return s.TokensPerDay })
	return merged
}

func mergeBuckets(snaps []QuotaSnapshot, pick func(QuotaSnapshot) TokenBucket) TokenBucket {
	var out TokenBucket
	for _, s := range snaps {
		b := pick(s)
		out.Consumed += b.Consumed
		if b.Remaining == nil {
			continue
		}
		if out.Remaining == nil || *b.Remaining < *out.Remaining {
			v := *b.Remaining
			out.Remaining = &v
		}
	}
	return out
}
