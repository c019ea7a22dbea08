package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mediaecomx/dashboard-project/internal/domain"
)

func newTestStoreClient() *StoreClient {
	return NewStoreClient(5*time.Second, 5*time.Second, testLogger, testMetrics)
}

func testStore(url string) domain.StoreCredential {
	return domain.StoreCredential{
		StoreID:     "store-1",
		StoreURL:    url,
		APIVersion:  "2024-07",
		AccessToken: "secret-token",
	}
}

func orderJSON(title string) string {
	return fmt.Sprintf(`{
		"subtotal_price": "10.00",
		"total_shipping_price_set": {"shop_money": {"amount": "0.00"}},
		"created_at": "2025-08-29T10:00:00Z",
		"line_items": [{"title": %q, "price": "10.00", "quantity": 1}]
	}`, title)
}

func TestFetchOrdersRangeFollowsPagination(t *testing.T) {
	require := require.New(t)

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal("secret-token", r.Header.Get("X-Store-Access-Token"))

		switch r.URL.Query().Get("page_info") {
		case "":
			// First page carries a timestamp window and advertises the next cursor.
			require.Equal("any", r.URL.Query().Get("status"))
			require.NotEmpty(r.URL.Query().Get("created_at_min"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-07/orders.json?page_info=cursor2&limit=250>; rel="next"`, server.URL))
			fmt.Fprintf(w, `{"orders": [%s]}`, orderJSON("Widget A"))
		case "cursor2":
			// Last page: no Link header ends the walk.
			fmt.Fprintf(w, `{"orders": [%s, %s]}`, orderJSON("Widget B"), orderJSON("Widget C"))
		default:
			t.Errorf("unexpected page_info %q", r.URL.Query().Get("page_info"))
		}
	}))
	defer server.Close()

	client := newTestStoreClient()
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)

	orders, err := client.FetchOrdersRange(context.Background(), testStore(server.URL), start, end)
	require.NoError(err)

	require.Len(orders, 3)
	require.Equal("Widget A", orders[0].LineItems[0].Title)
	require.Equal("Widget B", orders[1].LineItems[0].Title)
	require.Equal("Widget C", orders[2].LineItems[0].Title)
}

func TestFetchOrdersRangeFailsOnLaterPage(t *testing.T) {
	require := require.New(t)

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-07/orders.json?page_info=cursor2>; rel="next"`, server.URL))
			fmt.Fprintf(w, `{"orders": [%s]}`, orderJSON("Widget A"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestStoreClient()
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)

	// A failed page fails the whole store fetch; partial pages never leak out.
	_, err := client.FetchOrdersRange(context.Background(), testStore(server.URL), start, end)
	require.Error(err)
	require.Contains(err.Error(), "500")
}

func TestFetchOrdersParsesRealtimeWindow(t *testing.T) {
	require := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal("secret-token", r.Header.Get("X-Store-Access-Token"))
		require.Equal("2025-08-29T09:30:00Z", r.URL.Query().Get("created_at_min"))
		fmt.Fprintf(w, `{"orders": [%s]}`, orderJSON("Widget A"))
	}))
	defer server.Close()

	client := newTestStoreClient()
	since := time.Date(2025, 8, 29, 9, 30, 0, 0, time.UTC)

	orders, err := client.FetchOrders(context.Background(), testStore(server.URL), since)
	require.NoError(err)
	require.Len(orders, 1)
	require.Equal("Widget A", orders[0].LineItems[0].Title)
}

func TestParseNextLink(t *testing.T) {
	require := require.New(t)

	header := `<https://shop.example.com/admin/api/2024-07/orders.json?page_info=abc&limit=250>; rel="next"`
	require.Equal("https://shop.example.com/admin/api/2024-07/orders.json?page_info=abc&limit=250", parseNextLink(header))

	// Previous and next together; only the next link counts.
	header = `<https://shop.example.com/a?page_info=prev>; rel="previous", <https://shop.example.com/a?page_info=next>; rel="next"`
	require.Equal("https://shop.example.com/a?page_info=next", parseNextLink(header))

	require.Empty(parseNextLink(`<https://shop.example.com/a?page_info=prev>; rel="previous"`))
	require.Empty(parseNextLink(""))
}

func TestDecodeOrders(t *testing.T) {
	require := require.New(t)

	orders, err := decodeOrders([]byte(`{
		"orders": [
			{
				"subtotal_price": "100.00",
				"total_shipping_price_set": {"shop_money": {"amount": "10.00"}},
				"created_at": "2025-08-29T10:00:00Z",
				"line_items": [
					{"title": "Widget A", "price": "60.00", "quantity": 1},
					{"title": "Widget B", "price": "20.00", "quantity": 2}
				]
			}
		]
	}`))
	require.NoError(err)

	require.Len(orders, 1)
	require.True(orders[0].Subtotal.Equal(decimal.RequireFromString("100")))
	require.True(orders[0].ShippingFee.Equal(decimal.RequireFromString("10")))
	require.True(orders[0].CreatedAt.Equal(time.Date(2025, 8, 29, 10, 0, 0, 0, time.UTC)))
	require.Len(orders[0].LineItems, 2)
	require.Equal("Widget B", orders[0].LineItems[1].Title)
	require.Equal(2, orders[0].LineItems[1].Quantity)
}

func TestDecodeOrdersMissingShipping(t *testing.T) {
	require := require.New(t)

	// Stores without a shipping price set report an empty amount.
	orders, err := decodeOrders([]byte(`{
		"orders": [
			{
				"subtotal_price": "50.00",
				"created_at": "2025-08-29T10:00:00+07:00",
				"line_items": [{"title": "Widget", "price": "50.00", "quantity": 1}]
			}
		]
	}`))
	require.NoError(err)
	require.True(orders[0].ShippingFee.IsZero())
	// Timestamps normalize to UTC.
	require.True(orders[0].CreatedAt.Equal(time.Date(2025, 8, 29, 3, 0, 0, 0, time.UTC)))
}

func TestDecodeOrdersMalformed(t *testing.T) {
	require := require.New(t)

	_, err := decodeOrders([]byte(`{"not_orders": []}`))
	require.Error(err)

	_, err = decodeOrders([]byte(`{
		"orders": [{"subtotal_price": "not-a-number", "created_at": "2025-08-29T10:00:00Z", "line_items": []}]
	}`))
	require.Error(err)

	_, err = decodeOrders([]byte(`{
		"orders": [{"subtotal_price": "10", "created_at": "yesterday", "line_items": []}]
	}`))
	require.Error(err)
}
