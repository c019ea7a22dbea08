package usecase

import (
	"context"
	"time"

	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
	"github.com/mediaecomx/dashboard-project/pkg/metrics"
)

// HistoricalService builds date-range reports. Traffic and purchases are
// fetched per request (not quota-gated), attributed, and joined with the
// optional segment key.
type HistoricalService struct {
	client     domain.TrafficClient
	properties []string
	aggregator *PurchaseAggregator
	builder    *ReportBuilder
	loc        *time.Location
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewHistoricalService(
	client domain.TrafficClient,
	properties []string,
	aggregator *PurchaseAggregator,
	builder *ReportBuilder,
	loc *time.Location,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *HistoricalService {
	return &HistoricalService{
		client:     client,
		properties: properties,
		aggregator: aggregator,
		builder:    builder,
		loc:        loc,
		logger:     logger,
		metrics:    metrics,
	}
}

// GetReport builds the report for [startDate, endDate] (inclusive,
// "2006-01-02"). For segmented modes, rows with fewer purchases than
// minPurchases are filtered out. A property that fails to fetch is logged
// and skipped; no traffic at all yields an empty, well-formed report.
func (s *HistoricalService) GetReport(ctx context.Context, startDate, endDate string, seg domain.Segment, minPurchases int) ([]domain.HistoricalReportRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var traffic []domain.HistoricalTrafficRow
	for _, property := range s.properties {
		rows, err := s.client.FetchHistorical(ctx, property, startDate, endDate, seg)
		if err != nil {
			s.metrics.RecordUpstreamFailure("analytics", "historical_fetch")
			s.logger.WithContext(ctx).WithError(err).WithField("property", property).
				Warn("Skipping property after historical fetch failure")
			continue
		}
		traffic = append(traffic, rows...)
	}

	if len(traffic) == 0 {
		return []domain.HistoricalReportRow{}, nil
	}

	start, end, err := s.resolveRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	events := s.aggregator.FetchHistorical(ctx, start, end, seg)

	report := s.builder.BuildHistorical(traffic, events, seg)

	if seg != domain.SegmentSummary && minPurchases > 0 {
		filtered := report[:0]
		for _, row := range report {
			if row.Purchases >= minPurchases {
				filtered = append(filtered, row)
			}
		}
		report = filtered
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"start":   startDate,
		"end":     endDate,
		"segment": string(seg),
		"rows":    len(report),
	}).Info("Historical report built")

	return report, nil
}

// resolveRange turns the inclusive date pair into the half-open local-time
// window [start 00:00, end+1d 00:00) used for the purchase query.
func (s *HistoricalService) resolveRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", startDate, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation("2006-01-02", endDate, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end.AddDate(0, 0, 1), nil
}
