package delivery

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/internal/usecase"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
	"github.com/mediaecomx/dashboard-project/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuotaBudgets is the configured upstream token budget, reported alongside
// the observed consumption on the quota endpoint.
type QuotaBudgets struct {
	Hourly int64 `json:"hourly"`
	Daily  int64 `json:"daily"`
}

// handles HTTP requests
type HTTPHandlers struct {
	realtimeService   *usecase.RealtimeService
	historicalService *usecase.HistoricalService
	defaultLocation   *time.Location
	budgets           QuotaBudgets
	logger            *logger.Logger
	metrics           *metrics.Metrics
}

// creates new HTTP handlers
func NewHTTPHandlers(
	realtimeService *usecase.RealtimeService,
	historicalService *usecase.HistoricalService,
	defaultLocation *time.Location,
	budgets QuotaBudgets,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *HTTPHandlers {
	return &HTTPHandlers{
		realtimeService:   realtimeService,
		historicalService: historicalService,
		defaultLocation:   defaultLocation,
		budgets:           budgets,
		logger:            logger,
		metrics:           metrics,
	}
}

// GetRealtimeReport runs one refresh cycle and returns the merged report.
// The fetch-or-cache decision is made internally; a degraded upstream shows
// up as cache_status and warning fields, not as an error status.
func (h *HTTPHandlers) GetRealtimeReport(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	loc := h.defaultLocation
	if tz := c.Query("tz"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			h.metrics.RecordHTTPRequest("GET", "/reports/realtime", "400", time.Since(start))
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Invalid timezone",
				"message":    "tz must be an IANA timezone name",
				"request_id": requestID,
			})
			return
		}
		loc = parsed
	}

	report, err := h.realtimeService.GetReport(ctx, loc)
	if err != nil {
		h.metrics.RecordHTTPRequest("GET", "/reports/realtime", "500", time.Since(start))
		h.logger.WithContext(ctx).WithError(err).Error("Failed to build realtime report")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to build realtime report",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	h.metrics.RecordHTTPRequest("GET", "/reports/realtime", "200", time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"report":     report,
		"request_id": requestID,
	})
}

// GetHistoricalReport builds a date-range report. The range comes from either
// a named preset or an explicit from/to pair, and segmented reports accept a
// minimum-purchases filter.
func (h *HTTPHandlers) GetHistoricalReport(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	seg := domain.ParseSegment(c.Query("segment"))

	startDate, endDate, err := h.parseDateRange(c)
	if err != nil {
		h.metrics.RecordHTTPRequest("GET", "/reports/historical", "400", time.Since(start))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid date range",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	minPurchases := 0
	if raw := c.Query("min_purchases"); raw != "" {
		minPurchases, err = strconv.Atoi(raw)
		if err != nil || minPurchases < 0 {
			h.metrics.RecordHTTPRequest("GET", "/reports/historical", "400", time.Since(start))
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Invalid parameter",
				"message":    "min_purchases must be a non-negative integer",
				"request_id": requestID,
			})
			return
		}
	}

	rows, err := h.historicalService.GetReport(ctx, startDate, endDate, seg, minPurchases)
	if err != nil {
		h.metrics.RecordHTTPRequest("GET", "/reports/historical", "500", time.Since(start))
		h.logger.WithContext(ctx).WithError(err).Error("Failed to build historical report")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to build historical report",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	h.metrics.RecordHTTPRequest("GET", "/reports/historical", "200", time.Since(start))

	response := gin.H{
		"start_date": startDate,
		"end_date":   endDate,
		"segment":    string(seg),
		"rows":       rows,
		"request_id": requestID,
	}
	if seg == domain.SegmentSummary {
		response["totals"] = summarize(rows)
	}

	c.JSON(http.StatusOK, response)
}

// GetQuotaStatus exposes the last known quota snapshot and what the
// scheduler would decide right now.
func (h *HTTPHandlers) GetQuotaStatus(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()

	quota, lastFetch, decision := h.realtimeService.QuotaStatus()

	response := gin.H{
		"quota":      quota,
		"budget":     h.budgets,
		"mode":       string(decision.Mode),
		"reason":     decision.Reason,
		"request_id": requestID,
	}
	if !lastFetch.IsZero() {
		response["last_fetch_at"] = lastFetch.UTC().Format(time.RFC3339)
	}

	h.metrics.RecordHTTPRequest("GET", "/quota", "200", time.Since(start))
	c.JSON(http.StatusOK, response)
}

// GetTrend returns the persisted marketer activity samples for the requested
// lookback window (minutes, default 30).
func (h *HTTPHandlers) GetTrend(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	minutes := 30
	if raw := c.Query("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.metrics.RecordHTTPRequest("GET", "/trend", "400", time.Since(start))
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Invalid parameter",
				"message":    "minutes must be a positive integer",
				"request_id": requestID,
			})
			return
		}
		minutes = parsed
	}

	since := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	points, err := h.realtimeService.GetTrend(ctx, since)
	if err != nil {
		h.metrics.RecordHTTPRequest("GET", "/trend", "500", time.Since(start))
		h.logger.WithContext(ctx).WithError(err).Error("Failed to query trend snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to retrieve trend",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	h.metrics.RecordHTTPRequest("GET", "/trend", "200", time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"since":      since.Format(time.RFC3339),
		"points":     points,
		"request_id": requestID,
	})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()

	health := gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "dashboard-project",
		"version":    "1.0.0",
		"request_id": requestID,
	}

	h.metrics.RecordHTTPRequest("GET", "/health", "200", time.Since(start))
	c.JSON(http.StatusOK, health)
}

// parseDateRange resolves the report window from either a named preset or an
// explicit from/to pair ("2006-01-02", inclusive). With neither present it
// defaults to today.
func (h *HTTPHandlers) parseDateRange(c *gin.Context) (string, string, error) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" && toStr == "" {
		return resolvePreset(c.DefaultQuery("range", "today"), time.Now().In(h.defaultLocation))
	}

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return "", "", err
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return "", "", err
	}
	if to.Before(from) {
		return "", "", errRangeInverted
	}

	return fromStr, toStr, nil
}

// summarize totals the summary rows for the report header.
func summarize(rows []domain.HistoricalReportRow) gin.H {
	var sessions, users, purchases int
	revenue := decimal.Zero
	for _, row := range rows {
		sessions += row.Sessions
		users += row.Users
		purchases += row.Purchases
		revenue = revenue.Add(row.Revenue)
	}

	sessionCR := 0.0
	if sessions > 0 {
		sessionCR = float64(purchases) / float64(sessions) * 100
	}
	userCR := 0.0
	if users > 0 {
		userCR = float64(purchases) / float64(users) * 100
	}

	return gin.H{
		"sessions":   sessions,
		"users":      users,
		"purchases":  purchases,
		"revenue":    revenue,
		"session_cr": sessionCR,
		"user_cr":    userCR,
	}
}
