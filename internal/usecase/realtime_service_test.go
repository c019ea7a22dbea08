package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mediaecomx/dashboard-project/internal/attribution"
	"github.com/mediaecomx/dashboard-project/internal/domain"
)

type recordingSnapshotRepo struct {
	appends []map[string]int
	points  []domain.TrendPoint
}

func (r *recordingSnapshotRepo) Append(ctx context.Context, summary map[string]int, ts time.Time) error {
	r.appends = append(r.appends, summary)
	for marketer, users := range summary {
		r.points = append(r.points, domain.TrendPoint{Timestamp: ts, Marketer: marketer, ActiveUsers: users})
	}
	return nil
}

func (r *recordingSnapshotRepo) Query(ctx context.Context, since time.Time) ([]domain.TrendPoint, error) {
	return r.points, nil
}

func newRealtimeFixture(t *testing.T, traffic domain.TrafficClient, purchases domain.PurchaseClient, snapshots domain.SnapshotRepository) *RealtimeService {
	t.Helper()

	engine, err := attribution.NewEngine(attribution.Vocabulary{
		MarketerBySymbol: map[string]string{"⭐": "anna"},
	})
	require.NoError(t, err)

	scheduler := NewFetchScheduler(testSchedulerConfig(), traffic, []string{"p1"}, testLogger, testMetrics)
	aggregator := NewPurchaseAggregator(purchases, []domain.StoreCredential{{StoreID: "s1"}}, 30*time.Minute, time.UTC, testLogger, testMetrics)
	builder := NewReportBuilder(engine, testLogger, testMetrics)

	return NewRealtimeService(scheduler, aggregator, builder, snapshots, testLogger, testMetrics)
}

func TestGetReportMergesTrafficAndPurchases(t *testing.T) {
	require := require.New(t)

	remaining := int64(4000)
	traffic := &stubTrafficClient{
		realtime: func(ctx context.Context, propertyID string) (*domain.RealtimeTraffic, error) {
			return &domain.RealtimeTraffic{
				Rows: []domain.TrafficRow{
					{Title: "Super Widget ⭐ – Home", MinutesAgo: 1, ActiveUsers: 4, Views: 8},
				},
				Quota: domain.QuotaSnapshot{
					TokensPerHour: domain.TokenBucket{Consumed: 100, Remaining: &remaining},
				},
				FetchedAt:     time.Now().UTC(),
				ActiveUsers5:  2,
				ActiveUsers30: 4,
			}, nil
		},
	}
	purchases := &stubPurchaseClient{
		orders: func(store domain.StoreCredential) ([]domain.Order, error) {
			return []domain.Order{{
				Subtotal:  decimal.RequireFromString("50"),
				CreatedAt: time.Now().UTC(),
				LineItems: []domain.LineItem{{Title: "Super Widget ⭐", Price: decimal.RequireFromString("50"), Quantity: 2}},
			}}, nil
		},
	}
	snapshots := &recordingSnapshotRepo{}

	service := newRealtimeFixture(t, traffic, purchases, snapshots)
	report, err := service.GetReport(context.Background(), time.UTC)
	require.NoError(err)

	require.True(report.Fetched)
	require.Equal(2, report.ActiveUsers5)
	require.Equal(4, report.ActiveUsers30)
	require.Equal(2, report.PurchaseCount)
	require.Equal(8, report.TotalViews)
	require.InDelta(50.0, report.ConversionRate, 0.001)
	require.Len(report.PerMinute, 30)
	require.Len(report.Events, 1)

	require.Len(report.Rows, 1)
	require.Equal(2, report.Rows[0].Purchases)
	require.Equal("anna", report.Rows[0].Marketer)

	// One trend sample per refresh, keyed by marketer.
	require.Len(snapshots.appends, 1)
	require.Equal(map[string]int{"anna": 4}, snapshots.appends[0])
}

func TestGetReportEmptyTrafficStaysWellFormed(t *testing.T) {
	require := require.New(t)

	traffic := &stubTrafficClient{
		realtime: func(ctx context.Context, propertyID string) (*domain.RealtimeTraffic, error) {
			return &domain.RealtimeTraffic{
				FetchedAt:     time.Now().UTC(),
				ActiveUsers5:  0,
				ActiveUsers30: 0,
			}, nil
		},
	}
	purchases := &stubPurchaseClient{
		orders: func(store domain.StoreCredential) ([]domain.Order, error) {
			return nil, nil
		},
	}

	service := newRealtimeFixture(t, traffic, purchases, &recordingSnapshotRepo{})
	report, err := service.GetReport(context.Background(), time.UTC)
	require.NoError(err)

	require.NotNil(report.Rows)
	require.Empty(report.Rows)
	require.Len(report.PerMinute, 30)
	require.Zero(report.ConversionRate)
	require.False(report.FetchedAt.IsZero())
}

func TestGetReportWithoutSnapshotStore(t *testing.T) {
	require := require.New(t)

	traffic := &stubTrafficClient{
		realtime: func(ctx context.Context, propertyID string) (*domain.RealtimeTraffic, error) {
			return &domain.RealtimeTraffic{
				Rows: []domain.TrafficRow{{Title: "Page ⭐", ActiveUsers: 1}},
			}, nil
		},
	}
	purchases := &stubPurchaseClient{
		orders: func(store domain.StoreCredential) ([]domain.Order, error) { return nil, nil },
	}

	service := newRealtimeFixture(t, traffic, purchases, nil)
	_, err := service.GetReport(context.Background(), time.UTC)
	require.NoError(err)

	points, err := service.GetTrend(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(err)
	require.Empty(points)
}
