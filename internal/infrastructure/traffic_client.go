package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
	"github.com/mediaecomx/dashboard-project/pkg/metrics"
)

// implements domain.TrafficClient against the analytics data API
type AnalyticsClient struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	logger      *logger.Logger
	metrics     *metrics.Metrics
	rateLimiter *rate.Limiter
}

// creates a new analytics client
func NewAnalyticsClient(baseURL, apiKey string, timeout time.Duration, ratePerSecond int, logger *logger.Logger, metrics *metrics.Metrics) *AnalyticsClient {
	return &AnalyticsClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     baseURL,
		apiKey:      apiKey,
		logger:      logger,
		metrics:     metrics,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
	}
}

type quotaBucketPayload struct {
	Consumed  int64  `json:"consumed"`
	Remaining *int64 `json:"remaining"`
}

type quotaPayload struct {
	TokensPerHour quotaBucketPayload `json:"tokens_per_hour"`
	TokensPerDay  quotaBucketPayload `json:"tokens_per_day"`
}

type realtimePayload struct {
	Rows []struct {
		Title       string `json:"title"`
		MinutesAgo  int    `json:"minutes_ago"`
		ActiveUsers int    `json:"active_users"`
		Views       int    `json:"views"`
	} `json:"rows"`
	ActiveUsers5  *int         `json:"active_users_5min"`
	ActiveUsers30 *int         `json:"active_users_30min"`
	Quota         quotaPayload `json:"quota"`
}

// FetchRealtime fetches the last-30-minutes rows, KPI pair and quota
// snapshot for one property.
func (c *AnalyticsClient) FetchRealtime(ctx context.Context, propertyID string) (*domain.RealtimeTraffic, error) {
	url := fmt.Sprintf("%s/v1/properties/%s/realtime", c.baseURL, propertyID)

	body, err := c.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	var payload realtimePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.metrics.RecordUpstreamFailure("analytics", "json_parse")
		return nil, fmt.Errorf("failed to parse realtime payload: %w", err)
	}
	// Missing fields fail this fetch only; the scheduler falls back to cache.
	if payload.Rows == nil || payload.ActiveUsers5 == nil || payload.ActiveUsers30 == nil {
		c.metrics.RecordUpstreamFailure("analytics", "malformed_payload")
		return nil, fmt.Errorf("malformed realtime payload for property %s", propertyID)
	}

	traffic := &domain.RealtimeTraffic{
		Rows:          make([]domain.TrafficRow, 0, len(payload.Rows)),
		FetchedAt:     time.Now().UTC(),
		ActiveUsers5:  *payload.ActiveUsers5,
		ActiveUsers30: *payload.ActiveUsers30,
		Quota: domain.QuotaSnapshot{
			TokensPerHour: domain.TokenBucket(payload.Quota.TokensPerHour),
			TokensPerDay:  domain.TokenBucket(payload.Quota.TokensPerDay),
		},
	}
	for _, row := range payload.Rows {
		traffic.Rows = append(traffic.Rows, domain.TrafficRow{
			Title:       row.Title,
			MinutesAgo:  row.MinutesAgo,
			ActiveUsers: row.ActiveUsers,
			Views:       row.Views,
		})
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"property": propertyID,
		"rows":     len(traffic.Rows),
	}).Info("Successfully fetched realtime traffic")

	return traffic, nil
}

type historicalPayload struct {
	Rows []struct {
		Title    string `json:"title"`
		Sessions int    `json:"sessions"`
		Users    int    `json:"users"`
		Date     string `json:"date"`
		Week     string `json:"week"`
		Year     string `json:"year"`
	} `json:"rows"`
}

// FetchHistorical fetches sessions/users per page for a date range, with the
// segment dimension when requested. The upstream date dimension ("20060102")
// is normalized to "2006-01-02", and the week dimension is composed with the
// year dimension into a "2006-02" key so both report sources group alike.
func (c *AnalyticsClient) FetchHistorical(ctx context.Context, propertyID, startDate, endDate string, seg domain.Segment) ([]domain.HistoricalTrafficRow, error) {
	url := fmt.Sprintf("%s/v1/properties/%s/report", c.baseURL, propertyID)
	params := map[string]string{
		"start_date": startDate,
		"end_date":   endDate,
	}
	switch seg {
	case domain.SegmentByDay:
		params["dimensions"] = "date"
	case domain.SegmentByWeek:
		params["dimensions"] = "year,week"
	}

	body, err := c.get(ctx, url, params)
	if err != nil {
		return nil, err
	}

	var payload historicalPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.metrics.RecordUpstreamFailure("analytics", "json_parse")
		return nil, fmt.Errorf("failed to parse historical payload: %w", err)
	}
	if payload.Rows == nil {
		c.metrics.RecordUpstreamFailure("analytics", "malformed_payload")
		return nil, fmt.Errorf("malformed historical payload for property %s", propertyID)
	}

	rows := make([]domain.HistoricalTrafficRow, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		out := domain.HistoricalTrafficRow{
			Title:    row.Title,
			Sessions: row.Sessions,
			Users:    row.Users,
		}
		switch seg {
		case domain.SegmentByDay:
			if parsed, err := time.Parse("20060102", row.Date); err == nil {
				out.Date = parsed.Format("2006-01-02")
			} else {
				out.Date = row.Date
			}
		case domain.SegmentByWeek:
			week := row.Week
			if len(week) == 1 {
				week = "0" + week
			}
			out.Week = fmt.Sprintf("%s-%s", row.Year, week)
		}
		rows = append(rows, out)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"property": propertyID,
		"start":    startDate,
		"end":      endDate,
		"rows":     len(rows),
	}).Info("Successfully fetched historical traffic")

	return rows, nil
}

// get performs a rate-limited, instrumented GET and returns the body.
func (c *AnalyticsClient) get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordUpstreamFailure("analytics", "rate_limit")
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		c.metrics.RecordUpstreamFailure("analytics", "request_creation")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if len(params) > 0 {
		q := req.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure("analytics", "network_error")
		return nil, fmt.Errorf("failed to fetch analytics data: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamCall("analytics", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, fmt.Errorf("analytics API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamFailure("analytics", "read_body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.metrics.RecordUpstreamCall("analytics", "success", duration)
	return body, nil
}
