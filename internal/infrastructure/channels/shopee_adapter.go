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
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

const (
	shopeeItemsGetEndpoint             = "/api/v1/items/get"
	shopeeItemGetEndpoint              = "/api/v1/item/get"
	shopeeStockUpdateEndpoint          = "/api/v1/items/update_stock"
	shopeeVariationStockUpdateEndpoint = "/api/v1/items/update_variation_stock"
	shopeeAuthPartnerEndpoint          = "/api/v1/shop/auth_partner"

	shopeePageSize = 100
)

// shopeeItemRef identifies a listing, and the variation within it when the
// SKU lives on a variation
type shopeeItemRef struct {
	ItemID      int64
	VariationID int64
}

// ShopeeAdapter implements the StockChannel port for the Shopee partner API
// (v1). Every request is individually signed with the partner key.
type ShopeeAdapter struct {
	config     *ShopeeConfig
	httpClient *http.Client
	limiter    *rate.Limiter

	mu       sync.RWMutex
	itemRefs map[string]shopeeItemRef
}

// NewShopeeAdapter creates a new Shopee adapter with the given configuration
func NewShopeeAdapter(config *ShopeeConfig) (*ShopeeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopeeAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		itemRefs: make(map[string]shopeeItemRef),
	}, nil
}

// Code returns the channel code this adapter handles
func (a *ShopeeAdapter) Code() stock.ChannelCode {
	return stock.ChannelCodeShopee
}

// FetchStockSnapshot pages through the item listing and loads each item's
// detail. Listings with multiple variations are tracked per variation; the
// parent row carries no sellable stock of its own then.
func (a *ShopeeAdapter) FetchStockSnapshot(ctx context.Context) ([]channel.StockItem, error) {
	var refs []ShopeeItemRef
	offset := 0

	for {
		body, err := a.doRequest(ctx, shopeeItemsGetEndpoint, map[string]any{
			"pagination_entries_per_page": shopeePageSize,
			"pagination_offset":           offset,
		})
		if err != nil {
			return nil, err
		}

		var page ShopeeItemsGetResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("shopee: failed to parse items page: %w", err)
		}
		if !page.IsSuccess() {
			return nil, classifyShopeeError(page.Error, page.Msg)
		}

		refs = append(refs, page.Items...)
		if !page.More {
			break
		}
		offset += shopeePageSize
	}

	var items []channel.StockItem
	for _, ref := range refs {
		body, err := a.doRequest(ctx, shopeeItemGetEndpoint, map[string]any{
			"item_id": ref.ItemID,
		})
		if err != nil {
			return nil, err
		}

		var detail ShopeeItemGetResponse
		if err := json.Unmarshal(body, &detail); err != nil {
			return nil, fmt.Errorf("shopee: failed to parse item %d: %w", ref.ItemID, err)
		}
		if !detail.IsSuccess() {
			return nil, classifyShopeeError(detail.Error, detail.Msg)
		}
		if detail.Item == nil {
			continue
		}

		item := detail.Item
		if len(item.Variations) > 1 {
			for _, variation := range item.Variations {
				qty, known, raw := quantityFromRaw(variation.Stock)
				items = append(items, channel.StockItem{
					Key:      variation.VariationSku,
					Quantity: qty,
					Known:    known,
					Raw:      raw,
				})
				a.rememberItem(variation.VariationSku, shopeeItemRef{
					ItemID:      item.ItemID,
					VariationID: variation.VariationID,
				})
			}
			continue
		}

		qty, known, raw := quantityFromRaw(item.Stock)
		items = append(items, channel.StockItem{
			Key:      item.ItemSku,
			Quantity: qty,
			Known:    known,
			Raw:      raw,
		})
		a.rememberItem(item.ItemSku, shopeeItemRef{ItemID: item.ItemID})
	}
	return items, nil
}

// PushStockUpdate sets the absolute quantity of one listing or variation.
// The v1 API is addressed by numeric identifiers, so only keys seen in a
// fetch can be pushed.
func (a *ShopeeAdapter) PushStockUpdate(ctx context.Context, key stock.ProductKey, quantity int64) error {
	a.mu.RLock()
	ref, ok := a.itemRefs[key.String()]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s not seen in any fetch", channel.ErrProductNotFound, key)
	}

	endpoint := shopeeStockUpdateEndpoint
	payload := map[string]any{
		"item_id": ref.ItemID,
		"stock":   quantity,
	}
	if ref.VariationID != 0 {
		endpoint = shopeeVariationStockUpdateEndpoint
		payload["variation_id"] = ref.VariationID
	}

	body, err := a.doRequest(ctx, endpoint, payload)
	if err != nil {
		return err
	}

	var resp ShopeeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("shopee: failed to parse response: %w", err)
	}
	if !resp.IsSuccess() {
		return classifyShopeeError(resp.Error, resp.Msg)
	}
	return nil
}

// RefreshAuth is not applicable; every Shopee request is signed with the
// partner key
func (a *ShopeeAdapter) RefreshAuth(ctx context.Context) (*channel.Credential, error) {
	return nil, channel.ErrAuthNotSupported
}

// AuthorizationURL returns the page where an operator binds the shop to the
// partner account
func (a *ShopeeAdapter) AuthorizationURL() (string, error) {
	redirect := a.config.RedirectURL
	if redirect == "" {
		redirect = fmt.Sprintf("https://shopee.ph/shop/%d", a.config.ShopID)
	}
	q := url.Values{}
	q.Set("id", strconv.FormatInt(a.config.PartnerID, 10))
	q.Set("token", a.config.AuthToken(redirect))
	q.Set("redirect", redirect)
	return a.config.Domain + shopeeAuthPartnerEndpoint + "?" + q.Encode(), nil
}

// ExchangeAuthCode is not applicable; the v1 authorization completes on
// Shopee's side once the operator approves
func (a *ShopeeAdapter) ExchangeAuthCode(ctx context.Context, code string) (*channel.Credential, error) {
	return nil, channel.ErrAuthNotSupported
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (a *ShopeeAdapter) rememberItem(sku string, ref shopeeItemRef) {
	if sku == "" {
		return
	}
	a.mu.Lock()
	a.itemRefs[sku] = ref
	a.mu.Unlock()
}

// doRequest signs and posts one JSON request, returning the raw body
func (a *ShopeeAdapter) doRequest(ctx context.Context, endpoint string, payload map[string]any) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("shopee: rate limiter: %w", err)
	}

	payload["partner_id"] = a.config.PartnerID
	payload["shopid"] = a.config.ShopID
	payload["timestamp"] = time.Now().Unix()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("shopee: failed to build payload: %w", err)
	}

	target := a.config.Domain + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("shopee: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", a.config.Sign(target, string(body)))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrNetwork, err)
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return respBody, nil
}

// classifyShopeeError maps a Shopee application error to a channel sentinel
// error
func classifyShopeeError(code, msg string) error {
	switch {
	case code == "error_auth" || code == "error_permission":
		return fmt.Errorf("%w: %s %s", channel.ErrAuthExpired, code, msg)
	case code == "error_not_found":
		return fmt.Errorf("%w: %s %s", channel.ErrProductNotFound, code, msg)
	case strings.Contains(code, "limit") || code == "error_busy":
		return fmt.Errorf("%w: %s %s", channel.ErrRateLimited, code, msg)
	case code == "error_server":
		return fmt.Errorf("%w: %s %s", channel.ErrNetwork, code, msg)
	default:
		return fmt.Errorf("%w: %s %s", channel.ErrRejectedByRemote, code, msg)
	}
}

// Ensure ShopeeAdapter implements the StockChannel port and the operator
// authorization flow
var (
	_ channel.StockChannel = (*ShopeeAdapter)(nil)
	_ channel.Authorizer   = (*ShopeeAdapter)(nil)
)
