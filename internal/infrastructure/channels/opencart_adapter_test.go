package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

func TestOpencartConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *OpencartConfig
		wantErr error
	}{
		{
			name:    "valid config",
			config:  &OpencartConfig{Domain: "https://shop.example.com/admin", Username: "admin", Password: "pw"},
			wantErr: nil,
		},
		{
			name:    "missing domain",
			config:  &OpencartConfig{Username: "admin", Password: "pw"},
			wantErr: ErrOpencartConfigMissingDomain,
		},
		{
			name:    "missing username",
			config:  &OpencartConfig{Domain: "https://shop.example.com/admin/", Password: "pw"},
			wantErr: ErrOpencartConfigMissingUsername,
		},
		{
			name:    "missing password",
			config:  &OpencartConfig{Domain: "https://shop.example.com/admin/", Username: "admin"},
			wantErr: ErrOpencartConfigMissingPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.True(t, strings.HasSuffix(tt.config.Domain, "/"))
			assert.True(t, tt.config.TimeoutSeconds > 0)
		})
	}
}

// newOpencartTestServer mimics the admin login redirect: valid credentials
// get the redirect target's output, anything else gets the login page HTML
func newOpencartTestServer(t *testing.T, handle func(redirect string, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.FormValue("username") != "admin" || r.FormValue("password") != "secret" {
			fmt.Fprint(w, "<html>login</html>")
			return
		}
		handle(r.FormValue("redirect"), w)
	}))
}

func newOpencartTestAdapter(t *testing.T, serverURL string) *OpencartAdapter {
	t.Helper()
	adapter, err := NewOpencartAdapter(&OpencartConfig{
		Domain:   serverURL + "/",
		Username: "admin",
		Password: "secret",
	})
	require.NoError(t, err)
	return adapter
}

func TestOpencartAdapter_FetchStockSnapshot(t *testing.T) {
	server := newOpencartTestServer(t, func(redirect string, w http.ResponseWriter) {
		require.Contains(t, redirect, opencartListProductsEndpoint)
		fmt.Fprint(w, `[
			{"model": "SKU-1", "quantity": "5"},
			{"model": "SKU-2", "quantity": 3},
			{"model": "SKU-3", "quantity": -2}
		]`)
	})
	defer server.Close()

	adapter := newOpencartTestAdapter(t, server.URL)
	items, err := adapter.FetchStockSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, channel.StockItem{Key: "SKU-1", Quantity: 5, Known: true, Raw: `"5"`}, items[0])
	assert.Equal(t, channel.StockItem{Key: "SKU-2", Quantity: 3, Known: true, Raw: `3`}, items[1])
	assert.False(t, items[2].Known)
}

func TestOpencartAdapter_FetchRejectedLogin(t *testing.T) {
	server := newOpencartTestServer(t, func(redirect string, w http.ResponseWriter) {})
	defer server.Close()

	adapter, err := NewOpencartAdapter(&OpencartConfig{
		Domain:   server.URL + "/",
		Username: "admin",
		Password: "wrong",
	})
	require.NoError(t, err)

	_, err = adapter.FetchStockSnapshot(context.Background())
	assert.ErrorIs(t, err, channel.ErrAuthExpired)
}

func TestOpencartAdapter_PushStockUpdate(t *testing.T) {
	var gotRedirect string
	server := newOpencartTestServer(t, func(redirect string, w http.ResponseWriter) {
		gotRedirect = redirect
		fmt.Fprint(w, `{"success": true}`)
	})
	defer server.Close()

	adapter := newOpencartTestAdapter(t, server.URL)
	err := adapter.PushStockUpdate(context.Background(), stock.ProductKey("SKU-1"), 9)
	require.NoError(t, err)

	assert.Contains(t, gotRedirect, opencartSetQuantityEndpoint)
	assert.Contains(t, gotRedirect, "model=SKU-1")
	assert.Contains(t, gotRedirect, "quantity=9")
}

func TestOpencartAdapter_PushRejected(t *testing.T) {
	server := newOpencartTestServer(t, func(redirect string, w http.ResponseWriter) {
		fmt.Fprint(w, `{"success": false, "error": "unknown model"}`)
	})
	defer server.Close()

	adapter := newOpencartTestAdapter(t, server.URL)
	err := adapter.PushStockUpdate(context.Background(), stock.ProductKey("SKU-X"), 1)
	assert.ErrorIs(t, err, channel.ErrRejectedByRemote)
	assert.Contains(t, err.Error(), "unknown model")
}

func TestOpencartAdapter_RefreshAuthNotSupported(t *testing.T) {
	adapter := newOpencartTestAdapter(t, "http://unused")
	_, err := adapter.RefreshAuth(context.Background())
	assert.ErrorIs(t, err, channel.ErrAuthNotSupported)
}

func TestOpencartAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := newOpencartTestAdapter(t, server.URL)
	_, err := adapter.FetchStockSnapshot(context.Background())
	assert.ErrorIs(t, err, channel.ErrNetwork)
}
