package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RealtimeReportRow is one attributed page in the realtime report.
// A page with no matching purchases has Purchases=0, Revenue=0 and a nil
// LastPurchaseAt; the rates are 0, never NaN.
type RealtimeReportRow struct {
	Title          string          `json:"title"`
	Property       string          `json:"property,omitempty"`
	Marketer       string          `json:"marketer"`
	ActiveUsers    int             `json:"active_users"`
	Views          int             `json:"views"`
	Purchases      int             `json:"purchases"`
	Revenue        decimal.Decimal `json:"revenue"`
	LastPurchaseAt *time.Time      `json:"last_purchase_at,omitempty"`
	LastPurchase   string          `json:"last_purchase"`
	UserCR         float64         `json:"user_cr"`
	ViewCR         float64         `json:"view_cr"`
}

// MinuteBucket is the total active users observed in one minutes-ago bucket.
type MinuteBucket struct {
	MinutesAgo  int `json:"minutes_ago"`
	ActiveUsers int `json:"active_users"`
}

// PurchaseMarker is one attributed purchase event for the trend overlay.
type PurchaseMarker struct {
	CreatedAt     time.Time `json:"created_at"`
	Marketer      string    `json:"marketer"`
	ProductSymbol string    `json:"product_symbol"`
}

// RealtimeReport is the full realtime refresh result. It always renders:
// an empty fetch window produces zeroed KPIs and an empty row set, and a
// failed fetch carries the last good snapshot plus a non-fatal Warning.
type RealtimeReport struct {
	FetchedAt      time.Time           `json:"fetched_at"`
	ActiveUsers5   int                 `json:"active_users_5min"`
	ActiveUsers30  int                 `json:"active_users_30min"`
	TotalViews     int                 `json:"total_views"`
	PurchaseCount  int                 `json:"purchase_count_30min"`
	ConversionRate float64             `json:"conversion_rate_30min"`
	Quota          QuotaSnapshot       `json:"quota"`
	Fetched        bool                `json:"fetched"`
	CacheStatus    string              `json:"cache_status"`
	Warning        string              `json:"warning,omitempty"`
	PerMinute      []MinuteBucket      `json:"per_minute"`
	Rows           []RealtimeReportRow `json:"rows"`
	Events         []PurchaseMarker    `json:"purchase_events"`
}

// HistoricalReportRow is one attributed page in a date-range report.
// SegmentKey is the date or week for segmented modes, empty for summary.
type HistoricalReportRow struct {
	SegmentKey string          `json:"segment_key,omitempty"`
	Title      string          `json:"title"`
	Marketer   string          `json:"marketer"`
	Sessions   int             `json:"sessions"`
	Users      int             `json:"users"`
	Purchases  int             `json:"purchases"`
	Revenue    decimal.Decimal `json:"revenue"`
	SessionCR  float64         `json:"session_cr"`
	UserCR     float64         `json:"user_cr"`
}

// TrendPoint is one persisted (timestamp, marketer, active users) sample of
// the marketer activity trend.
type TrendPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Marketer    string    `json:"marketer"`
	ActiveUsers int       `json:"active_users"`
}
