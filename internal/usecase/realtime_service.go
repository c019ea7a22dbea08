package usecase

import (
	"context"
	"time"

	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
	"github.com/mediaecomx/dashboard-project/pkg/metrics"
)

// RealtimeService runs one refresh cycle: scheduler-gated traffic fetch,
// quota-free purchase aggregation, attribution and merge, then a trend
// snapshot append. It always produces a well-formed report; upstream
// failures degrade to cached data and a warning, never to an error page.
type RealtimeService struct {
	scheduler  *FetchScheduler
	aggregator *PurchaseAggregator
	builder    *ReportBuilder
	snapshots  domain.SnapshotRepository
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewRealtimeService(
	scheduler *FetchScheduler,
	aggregator *PurchaseAggregator,
	builder *ReportBuilder,
	snapshots domain.SnapshotRepository,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *RealtimeService {
	return &RealtimeService{
		scheduler:  scheduler,
		aggregator: aggregator,
		builder:    builder,
		snapshots:  snapshots,
		logger:     logger,
		metrics:    metrics,
	}
}

// GetReport builds the realtime report for one refresh tick. loc is the
// timezone last-purchase times are rendered in.
func (s *RealtimeService) GetReport(ctx context.Context, loc *time.Location) (*domain.RealtimeReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	traffic := s.scheduler.Refresh(ctx, now)
	events := s.aggregator.FetchRealtime(ctx)

	report := &domain.RealtimeReport{
		FetchedAt:     traffic.FetchedAt,
		ActiveUsers5:  traffic.ActiveUsers5,
		ActiveUsers30: traffic.ActiveUsers30,
		Quota:         traffic.Quota,
		Fetched:       traffic.Fetched,
		CacheStatus:   traffic.Status,
		Warning:       traffic.Warning,
		PerMinute:     s.builder.BuildPerMinute(traffic.Rows),
		Rows:          []domain.RealtimeReportRow{},
		Events:        s.builder.BuildPurchaseMarkers(events),
	}
	if report.FetchedAt.IsZero() {
		report.FetchedAt = now
	}

	for _, event := range events {
		report.PurchaseCount += event.Quantity
	}
	for _, row := range traffic.Rows {
		report.TotalViews += row.Views
	}
	report.ConversionRate = safeRate(report.PurchaseCount, report.ActiveUsers30)

	// No traffic in the window is not an error; the report stays well formed
	// with the saved KPIs and an empty row set.
	if len(traffic.Rows) > 0 {
		report.Rows = s.builder.BuildRealtime(traffic.Rows, events, loc)
	}

	s.appendTrendSnapshot(ctx, report, now)

	return report, nil
}

// appendTrendSnapshot persists the per-marketer active-user summary of this
// refresh. Failures are logged and never surface to the report.
func (s *RealtimeService) appendTrendSnapshot(ctx context.Context, report *domain.RealtimeReport, ts time.Time) {
	if s.snapshots == nil {
		return
	}

	summary := make(map[string]int)
	for _, row := range report.Rows {
		if row.Marketer == "" {
			continue
		}
		summary[row.Marketer] += row.ActiveUsers
	}
	if len(summary) == 0 {
		return
	}

	if err := s.snapshots.Append(ctx, summary, ts); err != nil {
		s.metrics.RecordSnapshotAppend("error")
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to append trend snapshot")
		return
	}
	s.metrics.RecordSnapshotAppend("ok")
}

// GetTrend returns the persisted marketer activity samples since the given
// time, ordered by timestamp.
func (s *RealtimeService) GetTrend(ctx context.Context, since time.Time) ([]domain.TrendPoint, error) {
	if s.snapshots == nil {
		return []domain.TrendPoint{}, nil
	}
	return s.snapshots.Query(ctx, since)
}

// QuotaStatus exposes the scheduler state for the monitoring endpoint.
func (s *RealtimeService) QuotaStatus() (domain.QuotaSnapshot, time.Time, FetchDecision) {
	return s.scheduler.QuotaStatus(time.Now().UTC())
}
