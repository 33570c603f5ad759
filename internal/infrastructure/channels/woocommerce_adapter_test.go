package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

func TestWoocommerceConfig_Validate(t *testing.T) {
	t.Run("valid config trims trailing slash", func(t *testing.T) {
		config := &WoocommerceConfig{Domain: "https://shop.example.com/", ConsumerKey: "ck", ConsumerSecret: "cs"}
		require.NoError(t, config.Validate())
		assert.Equal(t, "https://shop.example.com", config.Domain)
		assert.True(t, config.TimeoutSeconds > 0)
	})

	t.Run("missing fields", func(t *testing.T) {
		assert.ErrorIs(t, (&WoocommerceConfig{ConsumerKey: "ck", ConsumerSecret: "cs"}).Validate(), ErrWoocommerceConfigMissingDomain)
		assert.ErrorIs(t, (&WoocommerceConfig{Domain: "d", ConsumerSecret: "cs"}).Validate(), ErrWoocommerceConfigMissingKey)
		assert.ErrorIs(t, (&WoocommerceConfig{Domain: "d", ConsumerKey: "ck"}).Validate(), ErrWoocommerceConfigMissingSecret)
	})
}

func newWoocommerceTestAdapter(t *testing.T, serverURL string) *WoocommerceAdapter {
	t.Helper()
	adapter, err := NewWoocommerceAdapter(&WoocommerceConfig{
		Domain:         serverURL,
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
	})
	require.NoError(t, err)
	return adapter
}

// woocommerceTestServer checks basic auth before routing to the handler
func woocommerceTestServer(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ck" || pass != "cs" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code": "woocommerce_rest_cannot_view", "message": "Sorry"}`)
			return
		}
		handle(w, r)
	}))
}

func TestWoocommerceAdapter_FetchStockSnapshot(t *testing.T) {
	server := woocommerceTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, WoocommerceAPIPrefix+"/products", r.URL.Path)
		w.Header().Set(woocommerceTotalPagesHeader, "2")
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `[
				{"id": 1, "sku": "SKU-1", "stock_quantity": 5},
				{"id": 2, "sku": "", "stock_quantity": 1}
			]`)
		case "2":
			fmt.Fprint(w, `[{"id": 3, "sku": "SKU-3", "stock_quantity": null}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	defer server.Close()

	adapter := newWoocommerceTestAdapter(t, server.URL)
	items, err := adapter.FetchStockSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2) // the SKU-less row cannot be reconciled

	assert.Equal(t, "SKU-1", items[0].Key)
	assert.Equal(t, int64(5), items[0].Quantity)
	assert.True(t, items[0].Known)
	assert.Equal(t, "SKU-3", items[1].Key)
	assert.False(t, items[1].Known)
}

func TestWoocommerceAdapter_PushStockUpdate(t *testing.T) {
	var gotBody WoocommerceStockUpdate
	var gotPath string
	server := woocommerceTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set(woocommerceTotalPagesHeader, "1")
			fmt.Fprint(w, `[{"id": 7, "sku": "SKU-1", "stock_quantity": 2}]`)
		case http.MethodPut:
			gotPath = r.URL.Path
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &gotBody))
			fmt.Fprint(w, `{"id": 7, "sku": "SKU-1", "stock_quantity": 9}`)
		}
	})
	defer server.Close()

	adapter := newWoocommerceTestAdapter(t, server.URL)
	_, err := adapter.FetchStockSnapshot(context.Background())
	require.NoError(t, err)

	require.NoError(t, adapter.PushStockUpdate(context.Background(), stock.ProductKey("SKU-1"), 9))
	assert.Equal(t, WoocommerceAPIPrefix+"/products/7", gotPath)
	assert.Equal(t, int64(9), gotBody.StockQuantity)
}

func TestWoocommerceAdapter_PushUnknownKeyLooksUpBySku(t *testing.T) {
	t.Run("lookup succeeds", func(t *testing.T) {
		var updated bool
		server := woocommerceTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				assert.Equal(t, "SKU-NEW", r.URL.Query().Get("sku"))
				fmt.Fprint(w, `[{"id": 42, "sku": "SKU-NEW", "stock_quantity": 0}]`)
			case http.MethodPut:
				updated = true
				assert.Equal(t, WoocommerceAPIPrefix+"/products/42", r.URL.Path)
				fmt.Fprint(w, `{}`)
			}
		})
		defer server.Close()

		adapter := newWoocommerceTestAdapter(t, server.URL)
		require.NoError(t, adapter.PushStockUpdate(context.Background(), stock.ProductKey("SKU-NEW"), 3))
		assert.True(t, updated)
	})

	t.Run("lookup finds nothing", func(t *testing.T) {
		server := woocommerceTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		})
		defer server.Close()

		adapter := newWoocommerceTestAdapter(t, server.URL)
		err := adapter.PushStockUpdate(context.Background(), stock.ProductKey("SKU-GONE"), 3)
		assert.ErrorIs(t, err, channel.ErrProductNotFound)
	})
}

func TestWoocommerceAdapter_ErrorMapping(t *testing.T) {
	t.Run("bad credentials", func(t *testing.T) {
		server := woocommerceTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
		defer server.Close()

		adapter, err := NewWoocommerceAdapter(&WoocommerceConfig{
			Domain:         server.URL,
			ConsumerKey:    "wrong",
			ConsumerSecret: "wrong",
		})
		require.NoError(t, err)

		_, err = adapter.FetchStockSnapshot(context.Background())
		assert.ErrorIs(t, err, channel.ErrAuthExpired)
	})

	t.Run("rejected update carries the remote message", func(t *testing.T) {
		server := woocommerceTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				fmt.Fprint(w, `[{"id": 7, "sku": "SKU-1", "stock_quantity": 2}]`)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code": "rest_invalid_param", "message": "stock_quantity is not managed"}`)
		})
		defer server.Close()

		adapter := newWoocommerceTestAdapter(t, server.URL)
		err := adapter.PushStockUpdate(context.Background(), stock.ProductKey("SKU-1"), 9)
		assert.ErrorIs(t, err, channel.ErrRejectedByRemote)
		assert.Contains(t, err.Error(), "stock_quantity is not managed")
	})

	t.Run("throttled", func(t *testing.T) {
		server := woocommerceTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		defer server.Close()

		adapter := newWoocommerceTestAdapter(t, server.URL)
		_, err := adapter.FetchStockSnapshot(context.Background())
		assert.ErrorIs(t, err, channel.ErrRateLimited)
	})
}

func TestWoocommerceAdapter_RefreshAuthNotSupported(t *testing.T) {
	adapter := newWoocommerceTestAdapter(t, "http://unused")
	_, err := adapter.RefreshAuth(context.Background())
	assert.ErrorIs(t, err, channel.ErrAuthNotSupported)
}
