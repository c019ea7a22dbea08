package domain

import "time"

// Segment controls the optional time grouping of historical reports.
type Segment string

const (
	SegmentSummary Segment = "summary"
	SegmentByDay   Segment = "day"
	SegmentByWeek  Segment = "week"
)

// ParseSegment maps a query value to a Segment, defaulting to summary.
func ParseSegment(s string) Segment {
	switch s {
	case string(SegmentByDay):
		return SegmentByDay
	case string(SegmentByWeek):
		return SegmentByWeek
	default:
		return SegmentSummary
	}
}

// TrafficRow is one (page, minute-bucket) observation from the realtime
// analytics API. MinutesAgo is in [0, 29].
type TrafficRow struct {
	Title       string `json:"title"`
	MinutesAgo  int    `json:"minutes_ago"`
	ActiveUsers int    `json:"active_users"`
	Views       int    `json:"views"`
	Property    string `json:"property,omitempty"`
}

// HistoricalTrafficRow is one page observation from a date-range report.
// Date ("2006-01-02") and Week ("2006-02") are set only for the matching
// segment mode.
type HistoricalTrafficRow struct {
	Title    string `json:"title"`
	Sessions int    `json:"sessions"`
	Users    int    `json:"users"`
	Date     string `json:"date,omitempty"`
	Week     string `json:"week,omitempty"`
}

// SegmentKey returns the grouping key contribution of the row for a segment
// mode, empty for summary.
func (r HistoricalTrafficRow) SegmentKey(seg Segment) string {
	switch seg {
	case SegmentByDay:
		return r.Date
	case SegmentByWeek:
		return r.Week
	}
	return ""
}

// RealtimeTraffic is the payload of one successful realtime fetch for a
// single property.
type RealtimeTraffic struct {
	Rows          []TrafficRow
	Quota         QuotaSnapshot
	FetchedAt     time.Time
	ActiveUsers5  int
	ActiveUsers30 int
}
