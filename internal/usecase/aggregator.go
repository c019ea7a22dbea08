package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
	"github.com/mediaecomx/dashboard-project/pkg/metrics"
)

// PurchaseAggregator fetches and merges order data across every configured
// store into one flat event stream. A failing store is logged and skipped;
// it never aborts the aggregation. Stores are assumed to never share order
// identifiers, so there is no cross-store dedup.
type PurchaseAggregator struct {
	client  domain.PurchaseClient
	stores  []domain.StoreCredential
	window  time.Duration
	loc     *time.Location
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewPurchaseAggregator(
	client domain.PurchaseClient,
	stores []domain.StoreCredential,
	window time.Duration,
	loc *time.Location,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *PurchaseAggregator {
	return &PurchaseAggregator{
		client:  client,
		stores:  stores,
		window:  window,
		loc:     loc,
		logger:  logger,
		metrics: metrics,
	}
}

// FetchRealtime returns the line items of every order created inside the
// realtime window, across all stores.
func (a *PurchaseAggregator) FetchRealtime(ctx context.Context) []domain.PurchaseEvent {
	since := time.Now().UTC().Add(-a.window)

	var events []domain.PurchaseEvent
	for _, store := range a.stores {
		orders, err := a.client.FetchOrders(ctx, store, since)
		if err != nil {
			a.metrics.RecordStoreFetchFailure(store.StoreID)
			a.logger.WithContext(ctx).WithError(err).WithField("store", store.StoreID).
				Warn("Skipping store after realtime fetch failure")
			continue
		}

		count := 0
		for _, order := range orders {
			flattened := flattenOrder(order, store.StoreID, domain.SegmentSummary, a.loc)
			events = append(events, flattened...)
			count += len(flattened)
		}
		a.metrics.RecordPurchaseEvents(store.StoreID, count)
	}

	return events
}

// FetchHistorical returns the line items of every order created in
// [start, end) across all stores, tagged with the segment key when the
// report is segmented. Pagination is handled by the store client.
func (a *PurchaseAggregator) FetchHistorical(ctx context.Context, start, end time.Time, seg domain.Segment) []domain.PurchaseEvent {
	var events []domain.PurchaseEvent
	for _, store := range a.stores {
		orders, err := a.client.FetchOrdersRange(ctx, store, start, end)
		if err != nil {
			a.metrics.RecordStoreFetchFailure(store.StoreID)
			a.logger.WithContext(ctx).WithError(err).WithField("store", store.StoreID).
				Warn("Skipping store after historical fetch failure")
			continue
		}

		count := 0
		for _, order := range orders {
			flattened := flattenOrder(order, store.StoreID, seg, a.loc)
			events = append(events, flattened...)
			count += len(flattened)
		}
		a.metrics.RecordPurchaseEvents(store.StoreID, count)
	}

	return events
}

// flattenOrder turns an order into one event per line item. The order-level
// shipping fee has no natural per-item assignment, so each item carries a
// share proportional to its value within the order subtotal.
func flattenOrder(order domain.Order, storeID string, seg domain.Segment, loc *time.Location) []domain.PurchaseEvent {
	events := make([]domain.PurchaseEvent, 0, len(order.LineItems))
	local := order.CreatedAt.In(loc)

	for _, item := range order.LineItems {
		itemTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		revenue := itemTotal.Add(shippingAllocation(itemTotal, order.Subtotal, order.ShippingFee))

		event := domain.PurchaseEvent{
			ProductTitle: item.Title,
			Quantity:     item.Quantity,
			Revenue:      revenue,
			CreatedAt:    order.CreatedAt,
			SourceStore:  storeID,
		}
		switch seg {
		case domain.SegmentByDay:
			event.Date = local.Format("2006-01-02")
		case domain.SegmentByWeek:
			event.Week = weekKey(local)
		}
		events = append(events, event)
	}

	return events
}

// shippingAllocation is shipping × (itemTotal / subtotal), zero when the
// subtotal is not positive.
func shippingAllocation(itemTotal, subtotal, shipping decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return shipping.Mul(itemTotal).Div(subtotal)
}

// weekKey renders a Sunday-start week-of-year key ("2006-02") matching the
// analytics API's week dimension.
func weekKey(t time.Time) string {
	yday := t.YearDay() - 1
	wday := int(t.Weekday())
	week := (yday + 7 - wday) / 7
	return fmt.Sprintf("%d-%02d", t.Year(), week)
}
