package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mediaecomx/dashboard-project/internal/domain"
)

type stubPurchaseClient struct {
	orders func(store domain.StoreCredential) ([]domain.Order, error)
}

func (s *stubPurchaseClient) FetchOrders(ctx context.Context, store domain.StoreCredential, createdAtMin time.Time) ([]domain.Order, error) {
	return s.orders(store)
}

func (s *stubPurchaseClient) FetchOrdersRange(ctx context.Context, store domain.StoreCredential, start, end time.Time) ([]domain.Order, error) {
	return s.orders(store)
}

func TestFlattenOrderAllocatesShippingProportionally(t *testing.T) {
	require := require.New(t)

	order := domain.Order{
		Subtotal:    decimal.RequireFromString("100"),
		ShippingFee: decimal.RequireFromString("10"),
		CreatedAt:   time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
		LineItems: []domain.LineItem{
			{Title: "Widget A", Price: decimal.RequireFromString("60"), Quantity: 1},
			{Title: "Widget B", Price: decimal.RequireFromString("20"), Quantity: 2},
		},
	}

	events := flattenOrder(order, "store-1", domain.SegmentSummary, time.UTC)
	require.Len(events, 2)

	// 60/100 and 40/100 of the 10 shipping fee.
	require.True(events[0].Revenue.Equal(decimal.RequireFromString("66")), events[0].Revenue.String())
	require.True(events[1].Revenue.Equal(decimal.RequireFromString("44")), events[1].Revenue.String())
	require.Equal(1, events[0].Quantity)
	require.Equal(2, events[1].Quantity)
	require.Equal("store-1", events[0].SourceStore)
}

func TestFlattenOrderZeroSubtotal(t *testing.T) {
	require := require.New(t)

	// A fully discounted order must not divide by zero; items keep their own
	// totals and the shipping fee is dropped.
	order := domain.Order{
		Subtotal:    decimal.Zero,
		ShippingFee: decimal.RequireFromString("5"),
		CreatedAt:   time.Now(),
		LineItems: []domain.LineItem{
			{Title: "Freebie", Price: decimal.Zero, Quantity: 1},
		},
	}

	events := flattenOrder(order, "store-1", domain.SegmentSummary, time.UTC)
	require.Len(events, 1)
	require.True(events[0].Revenue.IsZero())
}

func TestFlattenOrderSegmentKeys(t *testing.T) {
	require := require.New(t)

	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(err)

	// 23:30 UTC on Jul 31 is already Aug 1 in the report timezone.
	order := domain.Order{
		Subtotal:    decimal.RequireFromString("10"),
		ShippingFee: decimal.Zero,
		CreatedAt:   time.Date(2025, 7, 31, 23, 30, 0, 0, time.UTC),
		LineItems:   []domain.LineItem{{Title: "Widget", Price: decimal.RequireFromString("10"), Quantity: 1}},
	}

	byDay := flattenOrder(order, "s", domain.SegmentByDay, loc)
	require.Equal("2025-08-01", byDay[0].Date)
	require.Empty(byDay[0].Week)

	byWeek := flattenOrder(order, "s", domain.SegmentByWeek, loc)
	require.NotEmpty(byWeek[0].Week)
	require.Empty(byWeek[0].Date)
}

func TestWeekKeySundayStart(t *testing.T) {
	require := require.New(t)

	// Jan 1 2023 was a Sunday, opening week 1.
	require.Equal("2023-01", weekKey(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal("2023-01", weekKey(time.Date(2023, 1, 7, 0, 0, 0, 0, time.UTC)))
	require.Equal("2023-02", weekKey(time.Date(2023, 1, 8, 0, 0, 0, 0, time.UTC)))
	require.Equal("2022-52", weekKey(time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestFetchRealtimeSkipsFailingStore(t *testing.T) {
	require := require.New(t)

	stores := []domain.StoreCredential{
		{StoreID: "broken"},
		{StoreID: "healthy"},
	}
	client := &stubPurchaseClient{
		orders: func(store domain.StoreCredential) ([]domain.Order, error) {
			if store.StoreID == "broken" {
				return nil, errors.New("token expired")
			}
			return []domain.Order{{
				Subtotal:  decimal.RequireFromString("25"),
				CreatedAt: time.Now(),
				LineItems: []domain.LineItem{{Title: "Widget", Price: decimal.RequireFromString("25"), Quantity: 1}},
			}}, nil
		},
	}

	a := NewPurchaseAggregator(client, stores, 30*time.Minute, time.UTC, testLogger, testMetrics)
	events := a.FetchRealtime(context.Background())

	require.Len(events, 1)
	require.Equal("healthy", events[0].SourceStore)
}

func TestFetchHistoricalTagsSegment(t *testing.T) {
	require := require.New(t)

	stores := []domain.StoreCredential{{StoreID: "s1"}}
	client := &stubPurchaseClient{
		orders: func(store domain.StoreCredential) ([]domain.Order, error) {
			return []domain.Order{{
				Subtotal:  decimal.RequireFromString("10"),
				CreatedAt: time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC),
				LineItems: []domain.LineItem{{Title: "Widget", Price: decimal.RequireFromString("10"), Quantity: 1}},
			}}, nil
		},
	}

	a := NewPurchaseAggregator(client, stores, 30*time.Minute, time.UTC, testLogger, testMetrics)
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC)

	events := a.FetchHistorical(context.Background(), start, end, domain.SegmentByDay)
	require.Len(events, 1)
	require.Equal("2025-08-02", events[0].Date)
}
