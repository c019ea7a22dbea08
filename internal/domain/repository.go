package domain

import (
	"context"
	"time"
)

// TrafficClient is the analytics upstream. FetchRealtime may fail; callers
// fall back to their last good snapshot. FetchHistorical rows carry
// sessions/users plus the optional segment dimension.
type TrafficClient interface {
	FetchRealtime(ctx context.Context, propertyID string) (*RealtimeTraffic, error)
	FetchHistorical(ctx context.Context, propertyID, startDate, endDate string, seg Segment) ([]HistoricalTrafficRow, error)
}

// PurchaseClient fetches raw orders from a single store. Errors are caught
// by the aggregator, which skips the failing store.
type PurchaseClient interface {
	FetchOrders(ctx context.Context, store StoreCredential, createdAtMin time.Time) ([]Order, error)
	FetchOrdersRange(ctx context.Context, store StoreCredential, start, end time.Time) ([]Order, error)
}

// SnapshotRepository persists per-marketer activity samples for the trend
// view.
type SnapshotRepository interface {
	Append(ctx context.Context, summary map[string]int, ts time.Time) error
	Query(ctx context.Context, since time.Time) ([]TrendPoint, error)
}
