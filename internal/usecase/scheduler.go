package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
	"github.com/mediaecomx/dashboard-project/pkg/metrics"
)

// Scheduler modes, reported in cache-status messages and metrics labels.
const (
	ModeNormal   = "normal"
	ModeDegraded = "degraded"
	ModeGuard    = "guard"
)

// FetchDecision is the outcome of one scheduling evaluation.
type FetchDecision struct {
	Fetch  bool
	Mode   string
	Reason string
}

// SchedulerConfig holds the quota thresholds and per-tier TTLs.
type SchedulerConfig struct {
	GuardThreshold    int64
	DegradedThreshold int64
	NormalTTL         time.Duration
	DegradedTTL       time.Duration
}

// RefreshResult is what a refresh hands to the report pipeline: either a
// fresh payload or the last good snapshot, never nothing.
type RefreshResult struct {
	Rows          []domain.TrafficRow
	FetchedAt     time.Time
	Quota         domain.QuotaSnapshot
	ActiveUsers5  int
	ActiveUsers30 int
	Fetched       bool
	Status        string
	Warning       string
}

// FetchScheduler decides whether a refresh may hit the live analytics API or
// must serve the cached snapshot, based on remaining quota and elapsed time.
// The whole read-decide-write sequence runs under one mutex so concurrent
// refreshes cannot both decide to fetch and double-spend quota.
type FetchScheduler struct {
	cfg        SchedulerConfig
	client     domain.TrafficClient
	properties []string
	logger     *logger.Logger
	metrics    *metrics.Metrics

	mu        sync.Mutex
	payload   []domain.TrafficRow
	fetchedAt time.Time
	quota     *domain.QuotaSnapshot
	active5   int
	active30  int
}

func NewFetchScheduler(
	cfg SchedulerConfig,
	client domain.TrafficClient,
	properties []string,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *FetchScheduler {
	return &FetchScheduler{
		cfg:        cfg,
		client:     client,
		properties: properties,
		logger:     logger,
		metrics:    metrics,
	}
}

// Decide evaluates the three tiers in order: guard (quota critically low,
// cache unconditionally), degraded (long TTL), normal (short TTL). The first
// ever call, with no prior quota or fetch-time state, always fetches.
func (s *FetchScheduler) Decide(quota *domain.QuotaSnapshot, lastFetch *time.Time, now time.Time) FetchDecision {
	if quota == nil || lastFetch == nil {
		return FetchDecision{Fetch: true, Mode: ModeNormal, Reason: "first fetch"}
	}

	remaining := quota.TokensPerHour.Remaining
	if remaining != nil && *remaining < s.cfg.GuardThreshold {
		return FetchDecision{
			Mode:   ModeGuard,
			Reason: fmt.Sprintf("quota critical: %d hourly tokens remaining", *remaining),
		}
	}

	mode := ModeNormal
	ttl := s.cfg.NormalTTL
	if remaining != nil && *remaining < s.cfg.DegradedThreshold {
		mode = ModeDegraded
		ttl = s.cfg.DegradedTTL
	}

	elapsed := now.Sub(*lastFetch)
	if elapsed < ttl {
		return FetchDecision{
			Mode:   mode,
			Reason: fmt.Sprintf("cached, retry in %ds", int((ttl-elapsed).Seconds())),
		}
	}

	return FetchDecision{Fetch: true, Mode: mode, Reason: "ttl elapsed"}
}

// Refresh runs one scheduling cycle. On a fetch decision it queries every
// configured property as one atomic batch: any property failing leaves the
// cache untouched and the last good snapshot is returned with a warning. On
// success the cache and quota snapshot are replaced wholesale.
func (s *FetchScheduler) Refresh(ctx context.Context, now time.Time) RefreshResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Nothing to fetch from; a vacuous batch must not set fetchedAt with no
	// payload behind it.
	if len(s.properties) == 0 {
		return s.cachedResultLocked("no analytics properties configured")
	}

	var lastFetch *time.Time
	if !s.fetchedAt.IsZero() {
		lastFetch = &s.fetchedAt
	}

	decision := s.Decide(s.quota, lastFetch, now)
	if !decision.Fetch {
		s.metrics.RecordFetchDecision("cache", decision.Mode)
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"mode":   decision.Mode,
			"reason": decision.Reason,
		}).Info("Serving traffic data from cache")
		return s.cachedResultLocked(decision.Reason)
	}

	s.metrics.RecordFetchDecision("fetch", decision.Mode)

	rows, merged, active5, active30, err := s.fetchBatch(ctx)
	if err != nil {
		s.metrics.RecordUpstreamFailure("analytics", "batch_fetch")
		s.logger.WithContext(ctx).WithError(err).Warn("Traffic fetch failed, falling back to last good snapshot")
		result := s.cachedResultLocked("live fetch failed, serving last good snapshot")
		result.Warning = fmt.Sprintf("traffic fetch failed: %v", err)
		return result
	}

	// Atomic replace: the cache invariant (fetchedAt set iff payload set)
	// holds because both are written together under the lock.
	s.payload = rows
	s.fetchedAt = now
	s.quota = &merged
	s.active5 = active5
	s.active30 = active30

	s.metrics.RecordQuota("hour", merged.TokensPerHour.Consumed, merged.TokensPerHour.Remaining)
	s.metrics.RecordQuota("day", merged.TokensPerDay.Consumed, merged.TokensPerDay.Remaining)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"rows":       len(rows),
		"properties": len(s.properties),
		"mode":       decision.Mode,
	}).Info("Traffic cache refreshed")

	return RefreshResult{
		Rows:          rows,
		FetchedAt:     now,
		Quota:         merged,
		ActiveUsers5:  active5,
		ActiveUsers30: active30,
		Fetched:       true,
		Status:        fmt.Sprintf("fetched live (%s mode)", decision.Mode),
	}
}

// fetchBatch queries all properties sequentially. The batch is all-or-nothing
// so one logical refresh never mixes fresh and stale properties.
func (s *FetchScheduler) fetchBatch(ctx context.Context) ([]domain.TrafficRow, domain.QuotaSnapshot, int, int, error) {
	var (
		rows     []domain.TrafficRow
		quotas   []domain.QuotaSnapshot
		active5  int
		active30 int
	)

	for _, property := range s.properties {
		traffic, err := s.client.FetchRealtime(ctx, property)
		if err != nil {
			return nil, domain.QuotaSnapshot{}, 0, 0, fmt.Errorf("property %s: %w", property, err)
		}

		for _, row := range traffic.Rows {
			if len(s.properties) > 1 {
				row.Property = property
			}
			rows = append(rows, row)
		}
		quotas = append(quotas, traffic.Quota)
		active5 += traffic.ActiveUsers5
		active30 += traffic.ActiveUsers30
	}

	return rows, domain.MergeQuota(quotas), active5, active30, nil
}

// cachedResultLocked snapshots the cache for a caller. Callers must hold mu.
func (s *FetchScheduler) cachedResultLocked(status string) RefreshResult {
	result := RefreshResult{
		FetchedAt:     s.fetchedAt,
		ActiveUsers5:  s.active5,
		ActiveUsers30: s.active30,
		Status:        status,
	}
	if s.quota != nil {
		result.Quota = *s.quota
	}
	if s.payload != nil {
		result.Rows = make([]domain.TrafficRow, len(s.payload))
		copy(result.Rows, s.payload)
	}
	return result
}

// QuotaStatus reports the current quota snapshot and cache age for the
// monitoring endpoint.
func (s *FetchScheduler) QuotaStatus(now time.Time) (domain.QuotaSnapshot, time.Time, FetchDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastFetch *time.Time
	if !s.fetchedAt.IsZero() {
		lastFetch = &s.fetchedAt
	}
	decision := s.Decide(s.quota, lastFetch, now)

	var quota domain.QuotaSnapshot
	if s.quota != nil {
		quota = *s.quota
	}
	return quota, s.fetchedAt, decision
}
