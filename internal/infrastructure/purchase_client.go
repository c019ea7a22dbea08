package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
	"github.com/mediaecomx/dashboard-project/pkg/metrics"
)

const historicalPageSize = 250

// implements domain.PurchaseClient against per-store admin APIs
type StoreClient struct {
	realtimeClient   *http.Client
	historicalClient *http.Client
	logger           *logger.Logger
	metrics          *metrics.Metrics
}

// creates a new store client; realtime and historical calls carry separate
// timeouts
func NewStoreClient(realtimeTimeout, historicalTimeout time.Duration, logger *logger.Logger, metrics *metrics.Metrics) *StoreClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &StoreClient{
		realtimeClient:   &http.Client{Timeout: realtimeTimeout, Transport: transport},
		historicalClient: &http.Client{Timeout: historicalTimeout, Transport: transport},
		logger:           logger,
		metrics:          metrics,
	}
}

type orderPayload struct {
	Orders []struct {
		SubtotalPrice    string `json:"subtotal_price"`
		TotalShippingSet struct {
			ShopMoney struct {
				Amount string `json:"amount"`
			} `json:"shop_money"`
		} `json:"total_shipping_price_set"`
		CreatedAt string `json:"created_at"`
		LineItems []struct {
			Title    string `json:"title"`
			Price    string `json:"price"`
			Quantity int    `json:"quantity"`
		} `json:"line_items"`
	} `json:"orders"`
}

// storeBaseURL defaults to https; credentials may carry an explicit scheme.
func storeBaseURL(store domain.StoreCredential) string {
	if strings.Contains(store.StoreURL, "://") {
		return store.StoreURL
	}
	return "https://" + store.StoreURL
}

// FetchOrders returns every order created at or after createdAtMin.
func (c *StoreClient) FetchOrders(ctx context.Context, store domain.StoreCredential, createdAtMin time.Time) ([]domain.Order, error) {
	url := fmt.Sprintf("%s/admin/api/%s/orders.json?status=any&created_at_min=%s&fields=line_items,total_shipping_price_set,subtotal_price,created_at",
		storeBaseURL(store), store.APIVersion, createdAtMin.UTC().Format("2006-01-02T15:04:05Z"))

	body, _, err := c.get(ctx, c.realtimeClient, store, url)
	if err != nil {
		return nil, err
	}

	orders, err := decodeOrders(body)
	if err != nil {
		c.metrics.RecordUpstreamFailure("store", "json_parse")
		return nil, fmt.Errorf("store %s: %w", store.StoreID, err)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"store":  store.StoreID,
		"orders": len(orders),
	}).Info("Successfully fetched realtime orders")

	return orders, nil
}

// FetchOrdersRange returns every order created in [start, end), following
// the Link-header "next" cursor until no further page is advertised.
func (c *StoreClient) FetchOrdersRange(ctx context.Context, store domain.StoreCredential, start, end time.Time) ([]domain.Order, error) {
	url := fmt.Sprintf("%s/admin/api/%s/orders.json?status=any&created_at_min=%s&created_at_max=%s&limit=%d&fields=id,line_items,subtotal_price,total_shipping_price_set,created_at",
		storeBaseURL(store), store.APIVersion, start.UTC().Format("2006-01-02T15:04:05Z"), end.UTC().Format("2006-01-02T15:04:05Z"), historicalPageSize)

	var all []domain.Order
	pages := 0
	for url != "" {
		body, next, err := c.get(ctx, c.historicalClient, store, url)
		if err != nil {
			return nil, err
		}

		orders, err := decodeOrders(body)
		if err != nil {
			c.metrics.RecordUpstreamFailure("store", "json_parse")
			return nil, fmt.Errorf("store %s: %w", store.StoreID, err)
		}

		all = append(all, orders...)
		pages++
		url = next
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"store":  store.StoreID,
		"orders": len(all),
		"pages":  pages,
	}).Info("Successfully fetched historical orders")

	return all, nil
}

// get performs one authenticated, instrumented page fetch and returns the
// body plus the next-page URL from the Link header, if any.
func (c *StoreClient) get(ctx context.Context, client *http.Client, store domain.StoreCredential, url string) ([]byte, string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		c.metrics.RecordUpstreamFailure("store", "request_creation")
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Store-Access-Token", store.AccessToken)

	resp, err := client.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure("store", "network_error")
		return nil, "", fmt.Errorf("failed to fetch orders: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordUpstreamCall("store", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, "", fmt.Errorf("store API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamFailure("store", "read_body")
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	c.metrics.RecordUpstreamCall("store", "success", duration)
	return body, parseNextLink(resp.Header.Get("Link")), nil
}

// parseNextLink extracts the rel="next" URL from a Link header, or "".
func parseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		url := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, param := range segments[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return url
			}
		}
	}
	return ""
}

// decodeOrders normalizes the wire payload into domain orders. Money fields
// arrive as strings; unparseable amounts fail the fetch.
func decodeOrders(body []byte) ([]domain.Order, error) {
	var payload orderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse orders payload: %w", err)
	}
	if payload.Orders == nil {
		return nil, fmt.Errorf("malformed orders payload: missing orders field")
	}

	orders := make([]domain.Order, 0, len(payload.Orders))
	for _, raw := range payload.Orders {
		subtotal, err := parseAmount(raw.SubtotalPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid subtotal %q: %w", raw.SubtotalPrice, err)
		}
		shipping, err := parseAmount(raw.TotalShippingSet.ShopMoney.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid shipping fee %q: %w", raw.TotalShippingSet.ShopMoney.Amount, err)
		}
		createdAt, err := time.Parse(time.RFC3339, raw.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", raw.CreatedAt, err)
		}

		order := domain.Order{
			Subtotal:    subtotal,
			ShippingFee: shipping,
			CreatedAt:   createdAt.UTC(),
			LineItems:   make([]domain.LineItem, 0, len(raw.LineItems)),
		}
		for _, item := range raw.LineItems {
			price, err := parseAmount(item.Price)
			if err != nil {
				return nil, fmt.Errorf("invalid line item price %q: %w", item.Price, err)
			}
			order.LineItems = append(order.LineItems, domain.LineItem{
				Title:    item.Title,
				Price:    price,
				Quantity: item.Quantity,
			})
		}
		orders = append(orders, order)
	}

	return orders, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
