package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoreCredential identifies one commerce store and how to reach it.
type StoreCredential struct {
	StoreID     string `json:"store_id"`
	StoreURL    string `json:"store_url"`
	APIVersion  string `json:"api_version"`
	AccessToken string `json:"access_token"`
}

// LineItem is one product line within an order.
type LineItem struct {
	Title    string
	Price    decimal.Decimal
	Quantity int
}

// Order is a normalized commerce order as returned by a store client.
// ShippingFee is an order-level amount with no per-item assignment.
type Order struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	CreatedAt   time.Time
	LineItems   []LineItem
}

// PurchaseEvent is one order line item flattened into the event stream.
// Revenue already includes the item's proportional share of the order
// shipping fee. Date and Week carry the historical segment key when set.
type PurchaseEvent struct {
	ProductTitle string          `json:"product_title"`
	Quantity     int             `json:"quantity"`
	Revenue      decimal.Decimal `json:"revenue"`
	CreatedAt    time.Time       `json:"created_at"`
	SourceStore  string          `json:"source_store"`
	Date         string          `json:"date,omitempty"`
	Week         string          `json:"week,omitempty"`
}

// SegmentKey returns the grouping key contribution of the event for a
// segment mode, empty for summary.
func (e PurchaseEvent) SegmentKey(seg Segment) string {
	switch seg {
	case SegmentByDay:
		return e.Date
	case SegmentByWeek:
		return e.Week
	}
	return ""
}
