package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream API metrics
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	UpstreamFailures *prometheus.CounterVec

	// Fetch scheduler metrics
	FetchDecisions       *prometheus.CounterVec
	QuotaTokensRemaining *prometheus.GaugeVec
	QuotaTokensConsumed  *prometheus.GaugeVec

	// Aggregation metrics
	StoreFetchFailures   *prometheus.CounterVec
	PurchaseEventsTotal  *prometheus.CounterVec
	ReportBuildsTotal    *prometheus.CounterVec
	ReportBuildDuration  *prometheus.HistogramVec
	SnapshotAppendsTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		UpstreamCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_api_calls_total",
				Help: "Total number of upstream API calls",
			},
			[]string{"api", "status"},
		),

		UpstreamDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_api_duration_seconds",
				Help:    "Upstream API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api"},
		),

		UpstreamFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_api_failures_total",
				Help: "Total number of upstream API failures",
			},
			[]string{"api", "error_type"},
		),

		FetchDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_decisions_total",
				Help: "Scheduler decisions to fetch live data or serve from cache",
			},
			[]string{"decision", "mode"},
		),

		QuotaTokensRemaining: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quota_tokens_remaining",
				Help: "Upstream quota tokens remaining as of the last fetch",
			},
			[]string{"window"},
		),

		QuotaTokensConsumed: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quota_tokens_consumed",
				Help: "Upstream quota tokens consumed as of the last fetch",
			},
			[]string{"window"},
		),

		StoreFetchFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_fetch_failures_total",
				Help: "Total number of skipped store fetches",
			},
			[]string{"store"},
		),

		PurchaseEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "purchase_events_total",
				Help: "Total number of purchase line items aggregated",
			},
			[]string{"store"},
		),

		ReportBuildsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_builds_total",
				Help: "Total number of reports built",
			},
			[]string{"kind"},
		),

		ReportBuildDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "report_build_duration_seconds",
				Help:    "Report pipeline duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		SnapshotAppendsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_appends_total",
				Help: "Total number of trend snapshot appends",
			},
			[]string{"status"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Upstream API call metrics
func (m *Metrics) RecordUpstreamCall(api, status string, duration time.Duration) {
	m.UpstreamCalls.WithLabelValues(api, status).Inc()
	m.UpstreamDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// Upstream API failure metrics
func (m *Metrics) RecordUpstreamFailure(api, errorType string) {
	m.UpstreamFailures.WithLabelValues(api, errorType).Inc()
}

// Scheduler decision counter
func (m *Metrics) RecordFetchDecision(decision, mode string) {
	m.FetchDecisions.WithLabelValues(decision, mode).Inc()
}

// Quota gauges, refreshed on every successful fetch
func (m *Metrics) RecordQuota(window string, consumed int64, remaining *int64) {
	m.QuotaTokensConsumed.WithLabelValues(window).Set(float64(consumed))
	if remaining != nil {
		m.QuotaTokensRemaining.WithLabelValues(window).Set(float64(*remaining))
	}
}

// Skipped store counter
func (m *Metrics) RecordStoreFetchFailure(store string) {
	m.StoreFetchFailures.WithLabelValues(store).Inc()
}

// Aggregated line item counter
func (m *Metrics) RecordPurchaseEvents(store string, count int) {
	m.PurchaseEventsTotal.WithLabelValues(store).Add(float64(count))
}

// Report pipeline metrics
func (m *Metrics) RecordReportBuild(kind string, duration time.Duration) {
	m.ReportBuildsTotal.WithLabelValues(kind).Inc()
	m.ReportBuildDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// Trend snapshot counter
func (m *Metrics) RecordSnapshotAppend(status string) {
	m.SnapshotAppendsTotal.WithLabelValues(status).Inc()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
