package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

const (
	woocommercePageSize         = 100
	woocommerceTotalPagesHeader = "X-WP-TotalPages"
)

// WoocommerceAdapter implements the StockChannel port for a WooCommerce
// store over the wc/v3 REST API with basic auth
type WoocommerceAdapter struct {
	config     *WoocommerceConfig
	httpClient *http.Client
	limiter    *rate.Limiter

	mu         sync.RWMutex
	productIDs map[string]int64
}

// NewWoocommerceAdapter creates a new WooCommerce adapter with the given
// configuration
func NewWoocommerceAdapter(config *WoocommerceConfig) (*WoocommerceAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &WoocommerceAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		productIDs: make(map[string]int64),
	}, nil
}

// Code returns the channel code this adapter handles
func (a *WoocommerceAdapter) Code() stock.ChannelCode {
	return stock.ChannelCodeWoocommerce
}

// FetchStockSnapshot pages through the products listing. Rows without a SKU
// cannot participate in reconciliation and are skipped; rows without a
// stock quantity are reported as not-known.
func (a *WoocommerceAdapter) FetchStockSnapshot(ctx context.Context) ([]channel.StockItem, error) {
	var items []channel.StockItem
	page := 1

	for {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(woocommercePageSize))
		params.Set("page", strconv.Itoa(page))

		body, header, err := a.doRequest(ctx, http.MethodGet, "/products", params, nil)
		if err != nil {
			return nil, err
		}

		var products []WoocommerceProduct
		if err := json.Unmarshal(body, &products); err != nil {
			return nil, fmt.Errorf("woocommerce: failed to parse products: %w", err)
		}

		for _, product := range products {
			if product.Sku == "" {
				continue
			}
			qty, known, raw := quantityFromRaw(product.StockQuantity)
			items = append(items, channel.StockItem{
				Key:      product.Sku,
				Quantity: qty,
				Known:    known,
				Raw:      raw,
			})
			a.rememberProduct(product.Sku, product.ID)
		}

		totalPages, _ := strconv.Atoi(header.Get(woocommerceTotalPagesHeader))
		page++
		if page > totalPages || len(products) == 0 {
			break
		}
	}
	return items, nil
}

// PushStockUpdate sets the absolute quantity of one product
func (a *WoocommerceAdapter) PushStockUpdate(ctx context.Context, key stock.ProductKey, quantity int64) error {
	id, err := a.resolveProduct(ctx, key)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(WoocommerceStockUpdate{StockQuantity: quantity})
	if err != nil {
		return fmt.Errorf("woocommerce: failed to build payload: %w", err)
	}

	resource := fmt.Sprintf("/products/%d", id)
	_, _, err = a.doRequest(ctx, http.MethodPut, resource, nil, payload)
	return err
}

// RefreshAuth is not applicable; WooCommerce uses static consumer keys
func (a *WoocommerceAdapter) RefreshAuth(ctx context.Context) (*channel.Credential, error) {
	return nil, channel.ErrAuthNotSupported
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (a *WoocommerceAdapter) rememberProduct(sku string, id int64) {
	a.mu.Lock()
	a.productIDs[sku] = id
	a.mu.Unlock()
}

// resolveProduct returns the numeric product id for a SKU, consulting the
// remote when the key was not seen in a fetch
func (a *WoocommerceAdapter) resolveProduct(ctx context.Context, key stock.ProductKey) (int64, error) {
	a.mu.RLock()
	id, ok := a.productIDs[key.String()]
	a.mu.RUnlock()
	if ok {
		return id, nil
	}

	params := url.Values{}
	params.Set("sku", key.String())
	body, _, err := a.doRequest(ctx, http.MethodGet, "/products", params, nil)
	if err != nil {
		return 0, err
	}

	var products []WoocommerceProduct
	if err := json.Unmarshal(body, &products); err != nil {
		return 0, fmt.Errorf("woocommerce: failed to parse products: %w", err)
	}
	for _, product := range products {
		if product.Sku == key.String() {
			a.rememberProduct(product.Sku, product.ID)
			return product.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", channel.ErrProductNotFound, key)
}

// doRequest performs one authenticated request against the wc/v3 API
func (a *WoocommerceAdapter) doRequest(ctx context.Context, method, resource string, params url.Values, payload []byte) ([]byte, http.Header, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("woocommerce: rate limiter: %w", err)
	}

	target := a.config.Domain + WoocommerceAPIPrefix + resource
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("woocommerce: failed to create request: %w", err)
	}
	req.SetBasicAuth(a.config.ConsumerKey, a.config.ConsumerSecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", channel.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", channel.ErrNetwork, err)
	}

	if resp.StatusCode >= 300 {
		// wc/v3 errors carry a machine code and a human message
		var wcErr WoocommerceError
		if json.Unmarshal(body, &wcErr) == nil && wcErr.Message != "" && resp.StatusCode == http.StatusBadRequest {
			return nil, nil, fmt.Errorf("%w: %s %s", channel.ErrRejectedByRemote, wcErr.Code, wcErr.Message)
		}
		return nil, nil, classifyStatus(resp.StatusCode)
	}
	return body, resp.Header, nil
}

// Ensure WoocommerceAdapter implements the StockChannel port
var _ channel.StockChannel = (*WoocommerceAdapter)(nil)
