package channels

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

const (
	lazadaProductsGetEndpoint  = "/products/get"
	lazadaStockUpdateEndpoint  = "/product/price_quantity/update"
	lazadaTokenCreateEndpoint  = "/auth/token/create"
	lazadaTokenRefreshEndpoint = "/auth/token/refresh"

	lazadaSignMethod = "sha256"
	lazadaPartnerID  = "lazop-sdk-go-20180422"
	lazadaPageSize   = 50
)

// lazadaSkuRef carries the identifiers the stock update API requires on top
// of the seller SKU
type lazadaSkuRef struct {
	ItemID int64
	SkuID  int64
}

// LazadaAdapter implements the StockChannel port for the Lazada Open
// Platform. Credentials are short-lived OAuth tokens held in the credential
// store; every request is signed with the app secret.
type LazadaAdapter struct {
	config     *LazadaConfig
	creds      channel.CredentialStore
	httpClient *http.Client
	limiter    *rate.Limiter

	mu      sync.RWMutex
	skuRefs map[string]lazadaSkuRef
}

// NewLazadaAdapter creates a new Lazada adapter with the given configuration
func NewLazadaAdapter(config *LazadaConfig, creds channel.CredentialStore) (*LazadaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &LazadaAdapter{
		config: config,
		creds:  creds,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		skuRefs: make(map[string]lazadaSkuRef),
	}, nil
}

// Code returns the channel code this adapter handles
func (a *LazadaAdapter) Code() stock.ChannelCode {
	return stock.ChannelCodeLazada
}

// FetchStockSnapshot pages through /products/get and flattens every SKU of
// every listing into one stock item
func (a *LazadaAdapter) FetchStockSnapshot(ctx context.Context) ([]channel.StockItem, error) {
	var items []channel.StockItem
	offset := int64(0)

	for {
		resp, err := a.call(ctx, a.config.Domain, lazadaProductsGetEndpoint, map[string]string{
			"offset": strconv.FormatInt(offset, 10),
			"limit":  strconv.Itoa(lazadaPageSize),
		}, true)
		if err != nil {
			return nil, err
		}

		var data LazadaProductsData
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, fmt.Errorf("lazada: failed to parse products: %w", err)
		}

		for _, product := range data.Products {
			for _, sku := range product.Skus {
				qty, known, raw := quantityFromRaw(sku.Quantity)
				items = append(items, channel.StockItem{
					Key:      sku.SellerSku,
					Quantity: qty,
					Known:    known,
					Raw:      raw,
				})
				a.rememberSku(sku.SellerSku, lazadaSkuRef{ItemID: product.ItemID, SkuID: sku.SkuID})
			}
		}

		offset += lazadaPageSize
		if offset >= data.TotalProducts || len(data.Products) == 0 {
			break
		}
	}
	return items, nil
}

// PushStockUpdate sets the absolute quantity of one SKU. The update API
// needs the listing and SKU identifiers, so an unseen key costs one lookup.
func (a *LazadaAdapter) PushStockUpdate(ctx context.Context, key stock.ProductKey, quantity int64) error {
	ref, err := a.resolveSku(ctx, key)
	if err != nil {
		return err
	}

	payload, err := xml.Marshal(lazadaUpdatePayload{
		SellerSku: key.String(),
		Quantity:  quantity,
		ItemID:    ref.ItemID,
		SkuID:     ref.SkuID,
	})
	if err != nil {
		return fmt.Errorf("lazada: failed to build payload: %w", err)
	}

	_, err = a.call(ctx, a.config.Domain, lazadaStockUpdateEndpoint, map[string]string{
		"payload": xml.Header + string(payload),
	}, true)
	return err
}

// RefreshAuth exchanges the stored refresh token for a fresh access token
// and persists it
func (a *LazadaAdapter) RefreshAuth(ctx context.Context) (*channel.Credential, error) {
	cred, err := a.creds.Load(ctx, stock.ChannelCodeLazada)
	if err != nil {
		return nil, fmt.Errorf("%w: no refresh token on file", channel.ErrAuthExpired)
	}

	resp, err := a.token(ctx, lazadaTokenRefreshEndpoint, map[string]string{
		"refresh_token": cred.RefreshToken,
	})
	if err != nil {
		return nil, err
	}
	return a.saveToken(ctx, resp)
}

// AuthorizationURL returns the page where an operator approves shop access
func (a *LazadaAdapter) AuthorizationURL() (string, error) {
	if a.config.RedirectURL == "" {
		return "", fmt.Errorf("%w: lazada redirect_url not configured", channel.ErrAuthNotSupported)
	}
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("force_auth", "true")
	q.Set("redirect_uri", a.config.RedirectURL)
	q.Set("client_id", a.config.AppKey)
	return LazadaAuthorizeURL + "?" + q.Encode(), nil
}

// ExchangeAuthCode turns an operator approval code into a persisted credential
func (a *LazadaAdapter) ExchangeAuthCode(ctx context.Context, code string) (*channel.Credential, error) {
	resp, err := a.token(ctx, lazadaTokenCreateEndpoint, map[string]string{
		"code": code,
	})
	if err != nil {
		if channel.IsTransient(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", channel.ErrInvalidAuthCode, err)
	}
	return a.saveToken(ctx, resp)
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// lazadaUpdatePayload is the XML body of the stock update request
type lazadaUpdatePayload struct {
	XMLName   xml.Name `xml:"Request"`
	SellerSku string   `xml:"Product>Skus>Sku>SellerSku"`
	Quantity  int64    `xml:"Product>Skus>Sku>Quantity"`
	ItemID    int64    `xml:"Product>Skus>Sku>ItemId"`
	SkuID     int64    `xml:"Product>Skus>Sku>SkuId"`
}

func (a *LazadaAdapter) rememberSku(sellerSku string, ref lazadaSkuRef) {
	a.mu.Lock()
	a.skuRefs[sellerSku] = ref
	a.mu.Unlock()
}

// resolveSku returns the listing identifiers for a seller SKU, consulting the
// remote when the key was not seen in a fetch
func (a *LazadaAdapter) resolveSku(ctx context.Context, key stock.ProductKey) (lazadaSkuRef, error) {
	a.mu.RLock()
	ref, ok := a.skuRefs[key.String()]
	a.mu.RUnlock()
	if ok {
		return ref, nil
	}

	resp, err := a.call(ctx, a.config.Domain, lazadaProductsGetEndpoint, map[string]string{
		"search": key.String(),
	}, true)
	if err != nil {
		return lazadaSkuRef{}, err
	}

	var data LazadaProductsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return lazadaSkuRef{}, fmt.Errorf("lazada: failed to parse products: %w", err)
	}
	for _, product := range data.Products {
		for _, sku := range product.Skus {
			if sku.SellerSku == key.String() {
				ref = lazadaSkuRef{ItemID: product.ItemID, SkuID: sku.SkuID}
				a.rememberSku(sku.SellerSku, ref)
				return ref, nil
			}
		}
	}
	return lazadaSkuRef{}, fmt.Errorf("%w: %s", channel.ErrProductNotFound, key)
}

// call performs a signed API request and unwraps the response envelope
func (a *LazadaAdapter) call(ctx context.Context, domain, apiPath string, params map[string]string, withToken bool) (*LazadaResponse, error) {
	if withToken {
		cred, err := a.creds.Load(ctx, stock.ChannelCodeLazada)
		if err != nil {
			return nil, fmt.Errorf("%w: no access token on file", channel.ErrAuthExpired)
		}
		params["access_token"] = cred.AccessToken
	}

	body, err := a.doRequest(ctx, domain, apiPath, params)
	if err != nil {
		return nil, err
	}

	var resp LazadaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("lazada: failed to parse response: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, classifyLazadaCode(resp.Code, resp.Message)
	}
	return &resp, nil
}

// token performs a signed request against the auth domain
func (a *LazadaAdapter) token(ctx context.Context, apiPath string, params map[string]string) (*LazadaTokenResponse, error) {
	body, err := a.doRequest(ctx, a.config.AuthDomain, apiPath, params)
	if err != nil {
		return nil, err
	}

	var resp LazadaTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("lazada: failed to parse token response: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, classifyLazadaCode(resp.Code, resp.Message)
	}
	return &resp, nil
}

// saveToken persists a token response as the channel credential
func (a *LazadaAdapter) saveToken(ctx context.Context, resp *LazadaTokenResponse) (*channel.Credential, error) {
	cred := &channel.Credential{
		Channel:      stock.ChannelCodeLazada,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		cred.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if err := a.creds.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("lazada: failed to store credential: %w", err)
	}
	return cred, nil
}

// doRequest signs and posts one request, returning the raw body
func (a *LazadaAdapter) doRequest(ctx context.Context, domain, apiPath string, params map[string]string) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("lazada: rate limiter: %w", err)
	}

	params["app_key"] = a.config.AppKey
	params["sign_method"] = lazadaSignMethod
	params["timestamp"] = strconv.FormatInt(time.Now().UnixMilli(), 10)
	params["partner_id"] = lazadaPartnerID
	params["sign"] = a.config.Sign(apiPath, params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		domain+apiPath, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("lazada: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrNetwork, err)
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}

// classifyLazadaCode maps a Lazada application error code to a channel
// sentinel error
func classifyLazadaCode(code, message string) error {
	switch code {
	case "IllegalAccessToken", "InvalidAccessToken", "SessionExpired", "MissingParameter:access_token":
		return fmt.Errorf("%w: %s %s", channel.ErrAuthExpired, code, message)
	case "ApiCallLimit":
		return fmt.Errorf("%w: %s %s", channel.ErrRateLimited, code, message)
	default:
		return fmt.Errorf("%w: %s %s", channel.ErrRejectedByRemote, code, message)
	}
}

// Ensure LazadaAdapter implements the StockChannel port and the operator
// authorization flow
var (
	_ channel.StockChannel = (*LazadaAdapter)(nil)
	_ channel.Authorizer   = (*LazadaAdapter)(nil)
)
