package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

func TestLazadaConfig_Validate(t *testing.T) {
	t.Run("valid config applies defaults", func(t *testing.T) {
		config := &LazadaConfig{AppKey: "key", AppSecret: "secret"}
		require.NoError(t, config.Validate())
		assert.Equal(t, LazadaDefaultAPIURL, config.Domain)
		assert.Equal(t, LazadaAuthAPIURL, config.AuthDomain)
		assert.True(t, config.TimeoutSeconds > 0)
	})

	t.Run("missing app key", func(t *testing.T) {
		config := &LazadaConfig{AppSecret: "secret"}
		assert.ErrorIs(t, config.Validate(), ErrLazadaConfigMissingAppKey)
	})

	t.Run("missing app secret", func(t *testing.T) {
		config := &LazadaConfig{AppKey: "key"}
		assert.ErrorIs(t, config.Validate(), ErrLazadaConfigMissingAppSecret)
	})
}

func TestLazadaConfig_Sign(t *testing.T) {
	config := &LazadaConfig{AppKey: "key", AppSecret: "secret"}
	params := map[string]string{
		"app_key":   "key",
		"timestamp": "1700000000000",
		"offset":    "0",
	}

	sign1 := config.Sign("/products/get", params)
	sign2 := config.Sign("/products/get", params)
	assert.Equal(t, sign1, sign2)
	assert.Len(t, sign1, 64) // SHA256 produces 64 hex characters
	assert.Equal(t, strings.ToUpper(sign1), sign1)

	params["offset"] = "50"
	assert.NotEqual(t, sign1, config.Sign("/products/get", params))
}

// newLazadaTestAdapter points both API and auth domains at the test server
// and seeds a stored credential
func newLazadaTestAdapter(t *testing.T, serverURL string) (*LazadaAdapter, *memCredentialStore) {
	t.Helper()
	creds := newMemCredentialStore()
	require.NoError(t, creds.Save(context.Background(), &channel.Credential{
		Channel:      stock.ChannelCodeLazada,
		AccessToken:  "tok",
		RefreshToken: "refresh-tok",
	}))
	adapter, err := NewLazadaAdapter(&LazadaConfig{
		Domain:      serverURL,
		AuthDomain:  serverURL,
		AppKey:      "key",
		AppSecret:   "secret",
		RedirectURL: "https://ops.example.com/callback",
	}, creds)
	require.NoError(t, err)
	return adapter, creds
}

func TestLazadaAdapter_FetchStockSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, lazadaProductsGetEndpoint, r.URL.Path)
		assert.Equal(t, "tok", r.FormValue("access_token"))
		assert.NotEmpty(t, r.FormValue("sign"))
		assert.Equal(t, "sha256", r.FormValue("sign_method"))

		fmt.Fprint(w, `{
			"code": "0",
			"data": {
				"total_products": 2,
				"products": [
					{"item_id": 100, "skus": [{"SellerSku": "SKU-1", "SkuId": 11, "quantity": 5}]},
					{"item_id": 200, "skus": [{"SellerSku": "SKU-2", "SkuId": 21, "quantity": "-1"}]}
				]
			}
		}`)
	}))
	defer server.Close()

	adapter, _ := newLazadaTestAdapter(t, server.URL)
	items, err := adapter.FetchStockSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "SKU-1", items[0].Key)
	assert.Equal(t, int64(5), items[0].Quantity)
	assert.True(t, items[0].Known)
	assert.False(t, items[1].Known)
}

func TestLazadaAdapter_FetchWithoutCredential(t *testing.T) {
	adapter, err := NewLazadaAdapter(&LazadaConfig{
		AppKey:    "key",
		AppSecret: "secret",
	}, newMemCredentialStore())
	require.NoError(t, err)

	_, err = adapter.FetchStockSnapshot(context.Background())
	assert.ErrorIs(t, err, channel.ErrAuthExpired)
}

func TestLazadaAdapter_PushStockUpdate(t *testing.T) {
	var gotPayload string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case lazadaProductsGetEndpoint:
			fmt.Fprint(w, `{
				"code": "0",
				"data": {
					"total_products": 1,
					"products": [{"item_id": 100, "skus": [{"SellerSku": "SKU-1", "SkuId": 11, "quantity": 5}]}]
				}
			}`)
		case lazadaStockUpdateEndpoint:
			gotPayload = r.FormValue("payload")
			fmt.Fprint(w, `{"code": "0"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	adapter, _ := newLazadaTestAdapter(t, server.URL)
	// Prime the identifier cache
	_, err := adapter.FetchStockSnapshot(context.Background())
	require.NoError(t, err)

	require.NoError(t, adapter.PushStockUpdate(context.Background(), stock.ProductKey("SKU-1"), 8))
	assert.Contains(t, gotPayload, "<SellerSku>SKU-1</SellerSku>")
	assert.Contains(t, gotPayload, "<Quantity>8</Quantity>")
	assert.Contains(t, gotPayload, "<ItemId>100</ItemId>")
	assert.Contains(t, gotPayload, "<SkuId>11</SkuId>")
}

func TestLazadaAdapter_PushUnknownKeyLooksUpThenFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "SKU-GONE", r.FormValue("search"))
		fmt.Fprint(w, `{"code": "0", "data": {"total_products": 0, "products": []}}`)
	}))
	defer server.Close()

	adapter, _ := newLazadaTestAdapter(t, server.URL)
	err := adapter.PushStockUpdate(context.Background(), stock.ProductKey("SKU-GONE"), 4)
	assert.ErrorIs(t, err, channel.ErrProductNotFound)
}

func TestLazadaAdapter_ErrorCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{name: "expired token", code: "IllegalAccessToken", want: channel.ErrAuthExpired},
		{name: "throttled", code: "ApiCallLimit", want: channel.ErrRateLimited},
		{name: "other failure", code: "500", want: channel.ErrRejectedByRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"code": %q, "message": "nope"}`, tt.code)
			}))
			defer server.Close()

			adapter, _ := newLazadaTestAdapter(t, server.URL)
			_, err := adapter.FetchStockSnapshot(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLazadaAdapter_RefreshAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, lazadaTokenRefreshEndpoint, r.URL.Path)
		assert.Equal(t, "refresh-tok", r.FormValue("refresh_token"))
		fmt.Fprint(w, `{"code": "0", "access_token": "tok2", "refresh_token": "refresh-tok2", "expires_in": 3600}`)
	}))
	defer server.Close()

	adapter, creds := newLazadaTestAdapter(t, server.URL)
	cred, err := adapter.RefreshAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok2", cred.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cred.ExpiresAt, time.Minute)

	stored, err := creds.Load(context.Background(), stock.ChannelCodeLazada)
	require.NoError(t, err)
	assert.Equal(t, "tok2", stored.AccessToken)
	assert.Equal(t, "refresh-tok2", stored.RefreshToken)
}

func TestLazadaAdapter_ExchangeAuthCode(t *testing.T) {
	t.Run("valid code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			require.Equal(t, lazadaTokenCreateEndpoint, r.URL.Path)
			assert.Equal(t, "abc123", r.FormValue("code"))
			fmt.Fprint(w, `{"code": "0", "access_token": "tok", "refresh_token": "rt", "expires_in": 3600}`)
		}))
		defer server.Close()

		adapter, creds := newLazadaTestAdapter(t, server.URL)
		cred, err := adapter.ExchangeAuthCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "tok", cred.AccessToken)

		stored, err := creds.Load(context.Background(), stock.ChannelCodeLazada)
		require.NoError(t, err)
		assert.Equal(t, "tok", stored.AccessToken)
	})

	t.Run("rejected code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code": "InvalidCode", "message": "authorization code expired"}`)
		}))
		defer server.Close()

		adapter, _ := newLazadaTestAdapter(t, server.URL)
		_, err := adapter.ExchangeAuthCode(context.Background(), "stale")
		assert.ErrorIs(t, err, channel.ErrInvalidAuthCode)
	})
}

func TestLazadaAdapter_AuthorizationURL(t *testing.T) {
	adapter, _ := newLazadaTestAdapter(t, "http://unused")
	u, err := adapter.AuthorizationURL()
	require.NoError(t, err)
	assert.Contains(t, u, LazadaAuthorizeURL)
	assert.Contains(t, u, "client_id=key")
	assert.Contains(t, u, "response_type=code")
}
