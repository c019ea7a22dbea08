package usecase

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mediaecomx/dashboard-project/internal/attribution"
	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
	"github.com/mediaecomx/dashboard-project/pkg/metrics"
)

// ReportBuilder joins attributed traffic rows and purchase events into
// per-entity reports. It is pure with respect to its inputs; the render
// timezone for last-purchase times is a parameter.
type ReportBuilder struct {
	engine  *attribution.Engine
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewReportBuilder(engine *attribution.Engine, logger *logger.Logger, metrics *metrics.Metrics) *ReportBuilder {
	return &ReportBuilder{engine: engine, logger: logger, metrics: metrics}
}

// joinKey is the composite key both sources are reconciled on. Segment is
// empty for realtime and summary reports.
type joinKey struct {
	core    string
	symbol  string
	segment string
}

// purchaseGroup is the purchase side of the join, fully aggregated per key.
type purchaseGroup struct {
	quantity int
	revenue  decimal.Decimal
	last     time.Time
}

// groupPurchases aggregates events by (core title, symbol[, segment key]).
// The segment key extractor generalizes the realtime and historical joins
// into one code path.
func (b *ReportBuilder) groupPurchases(events []domain.PurchaseEvent, segKey func(domain.PurchaseEvent) string) map[joinKey]*purchaseGroup {
	groups := make(map[joinKey]*purchaseGroup)
	for _, event := range events {
		core, symbol := b.engine.Attribute(event.ProductTitle)
		key := joinKey{core: core, symbol: symbol, segment: segKey(event)}

		group, ok := groups[key]
		if !ok {
			group = &purchaseGroup{revenue: decimal.Zero}
			groups[key] = group
		}
		group.quantity += event.Quantity
		group.revenue = group.revenue.Add(event.Revenue)
		if event.CreatedAt.After(group.last) {
			group.last = event.CreatedAt
		}
	}
	return groups
}

// safeRate is purchases/denominator×100 with the convention that a zero
// denominator yields 0, never NaN.
func safeRate(purchases, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(purchases) / float64(denominator) * 100
}

// BuildRealtime left-joins the traffic groups to the purchase groups on
// (core title, symbol). Unmatched traffic keeps zero purchases and revenue
// and a nil last-purchase time; a missing match is never an error.
func (b *ReportBuilder) BuildRealtime(rows []domain.TrafficRow, events []domain.PurchaseEvent, loc *time.Location) []domain.RealtimeReportRow {
	start := time.Now()
	defer func() { b.metrics.RecordReportBuild("realtime", time.Since(start)) }()

	type trafficKey struct {
		title    string
		property string
	}
	type trafficGroup struct {
		activeUsers int
		views       int
	}

	groups := make(map[trafficKey]*trafficGroup)
	var order []trafficKey
	for _, row := range rows {
		key := trafficKey{title: row.Title, property: row.Property}
		group, ok := groups[key]
		if !ok {
			group = &trafficGroup{}
			groups[key] = group
			order = append(order, key)
		}
		group.activeUsers += row.ActiveUsers
		group.views += row.Views
	}

	purchases := b.groupPurchases(events, func(domain.PurchaseEvent) string { return "" })

	report := make([]domain.RealtimeReportRow, 0, len(order))
	for _, key := range order {
		group := groups[key]
		core, symbol := b.engine.Attribute(key.title)

		row := domain.RealtimeReportRow{
			Title:       key.title,
			Property:    key.property,
			Marketer:    b.engine.MarketerFor(key.title),
			ActiveUsers: group.activeUsers,
			Views:       group.views,
			Revenue:     decimal.Zero,
		}
		if match, ok := purchases[joinKey{core: core, symbol: symbol}]; ok {
			row.Purchases = match.quantity
			row.Revenue = match.revenue
			last := match.last
			row.LastPurchaseAt = &last
			row.LastPurchase = last.In(loc).Format("15:04:05")
		}
		row.UserCR = safeRate(row.Purchases, row.ActiveUsers)
		row.ViewCR = safeRate(row.Purchases, row.Views)
		report = append(report, row)
	}

	sort.SliceStable(report, func(i, j int) bool {
		if report[i].ActiveUsers != report[j].ActiveUsers {
			return report[i].ActiveUsers > report[j].ActiveUsers
		}
		return report[i].Title < report[j].Title
	})

	return report
}

// BuildPerMinute zero-fills the 30 minutes-ago buckets of the realtime window
// and sums active users into them.
func (b *ReportBuilder) BuildPerMinute(rows []domain.TrafficRow) []domain.MinuteBucket {
	buckets := make([]domain.MinuteBucket, 30)
	for i := range buckets {
		buckets[i].MinutesAgo = i
	}
	for _, row := range rows {
		if row.MinutesAgo >= 0 && row.MinutesAgo < len(buckets) {
			buckets[row.MinutesAgo].ActiveUsers += row.ActiveUsers
		}
	}
	return buckets
}

// BuildPurchaseMarkers attributes each purchase event for the trend overlay.
// Events whose product matches no marketer are dropped from the feed.
func (b *ReportBuilder) BuildPurchaseMarkers(events []domain.PurchaseEvent) []domain.PurchaseMarker {
	markers := make([]domain.PurchaseMarker, 0, len(events))
	for _, event := range events {
		marketer := b.engine.MarketerFor(event.ProductTitle)
		if marketer == "" {
			continue
		}
		markers = append(markers, domain.PurchaseMarker{
			CreatedAt:     event.CreatedAt,
			Marketer:      marketer,
			ProductSymbol: b.engine.ProductSymbolFor(event.ProductTitle),
		})
	}
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].CreatedAt.Before(markers[j].CreatedAt)
	})
	return markers
}

// BuildHistorical is the segmented generalization of BuildRealtime. The join
// key gains the optional date/week component, and aggregation is two-phase:
// join each traffic row, then regroup by the composite key summing
// sessions/users and taking the first title. Purchases and revenue are
// already fully aggregated per key by the join, so first is safe and avoids
// double counting.
func (b *ReportBuilder) BuildHistorical(rows []domain.HistoricalTrafficRow, events []domain.PurchaseEvent, seg domain.Segment) []domain.HistoricalReportRow {
	start := time.Now()
	defer func() { b.metrics.RecordReportBuild("historical", time.Since(start)) }()

	purchases := b.groupPurchases(events, func(e domain.PurchaseEvent) string { return e.SegmentKey(seg) })

	groups := make(map[joinKey]*domain.HistoricalReportRow)
	var order []joinKey
	for _, row := range rows {
		core, symbol := b.engine.Attribute(row.Title)
		key := joinKey{core: core, symbol: symbol, segment: row.SegmentKey(seg)}

		group, ok := groups[key]
		if !ok {
			group = &domain.HistoricalReportRow{
				SegmentKey: key.segment,
				Title:      row.Title,
				Marketer:   b.engine.MarketerFor(row.Title),
				Revenue:    decimal.Zero,
			}
			if match, found := purchases[key]; found {
				group.Purchases = match.quantity
				group.Revenue = match.revenue
			}
			groups[key] = group
			order = append(order, key)
		}
		group.Sessions += row.Sessions
		group.Users += row.Users
	}

	report := make([]domain.HistoricalReportRow, 0, len(order))
	for _, key := range order {
		row := *groups[key]
		row.SessionCR = safeRate(row.Purchases, row.Sessions)
		row.UserCR = safeRate(row.Purchases, row.Users)
		report = append(report, row)
	}

	if seg == domain.SegmentSummary {
		sort.SliceStable(report, func(i, j int) bool {
			if report[i].Sessions != report[j].Sessions {
				return report[i].Sessions > report[j].Sessions
			}
			return report[i].Title < report[j].Title
		})
	} else {
		sort.SliceStable(report, func(i, j int) bool {
			if report[i].SegmentKey != report[j].SegmentKey {
				return report[i].SegmentKey < report[j].SegmentKey
			}
			if report[i].Sessions != report[j].Sessions {
				return report[i].Sessions > report[j].Sessions
			}
			return report[i].Title < report[j].Title
		})
	}

	return report
}
