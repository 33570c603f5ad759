package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

const (
	opencartLoginEndpoint        = "common/login"
	opencartListProductsEndpoint = "module/store_sync/listlocalproducts"
	opencartSetQuantityEndpoint  = "module/store_sync/setlocalquantity"
)

// OpencartAdapter implements the StockChannel port for an Opencart storefront
// running the store_sync admin extension
type OpencartAdapter struct {
	config     *OpencartConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOpencartAdapter creates a new Opencart adapter with the given configuration
func NewOpencartAdapter(config *OpencartConfig) (*OpencartAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &OpencartAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}, nil
}

// Code returns the channel code this adapter handles
func (a *OpencartAdapter) Code() stock.ChannelCode {
	return stock.ChannelCodeOpencart
}

// FetchStockSnapshot lists every product the storefront tracks
func (a *OpencartAdapter) FetchStockSnapshot(ctx context.Context) ([]channel.StockItem, error) {
	body, err := a.doRequest(ctx, opencartListProductsEndpoint, "")
	if err != nil {
		return nil, err
	}

	var rows []OpencartProductRow
	if err := json.Unmarshal(body, &rows); err != nil {
		// A rejected login does not fail the HTTP request; Opencart just
		// serves the login page instead of the redirect target.
		return nil, fmt.Errorf("%w: opencart login not accepted", channel.ErrAuthExpired)
	}

	items := make([]channel.StockItem, 0, len(rows))
	for _, row := range rows {
		qty, known, raw := quantityFromRaw(row.Quantity)
		items = append(items, channel.StockItem{
			Key:      row.Model,
			Quantity: qty,
			Known:    known,
			Raw:      raw,
		})
	}
	return items, nil
}

// PushStockUpdate sets the absolute quantity of one product on the storefront
func (a *OpencartAdapter) PushStockUpdate(ctx context.Context, key stock.ProductKey, quantity int64) error {
	payload := url.Values{}
	payload.Set("model", key.String())
	payload.Set("quantity", strconv.FormatInt(quantity, 10))

	body, err := a.doRequest(ctx, opencartSetQuantityEndpoint, payload.Encode())
	if err != nil {
		return err
	}

	var resp OpencartUpdateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: opencart login not accepted", channel.ErrAuthExpired)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", channel.ErrRejectedByRemote, resp.Error)
	}
	return nil
}

// RefreshAuth is not applicable; Opencart authenticates every call with the
// admin password
func (a *OpencartAdapter) RefreshAuth(ctx context.Context) (*channel.Credential, error) {
	return nil, channel.ErrAuthNotSupported
}

// doRequest reaches an admin endpoint through the login redirect: the
// credentials and the target URL go to common/login and Opencart replies
// with the redirect target's output
func (a *OpencartAdapter) doRequest(ctx context.Context, endpoint, payload string) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("opencart: rate limiter: %w", err)
	}

	target := a.config.Domain + endpoint
	if payload != "" {
		target += "&" + payload
	}

	form := url.Values{}
	form.Set("username", a.config.Username)
	form.Set("password", a.config.Password)
	form.Set("redirect", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.Domain+opencartLoginEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("opencart: failed to create request: %w", err)
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

// Ensure OpencartAdapter implements the StockChannel port
var _ channel.StockChannel = (*OpencartAdapter)(nil)
