package channel

import (
	"context"
	"sort"
	"sync"

	"github.com/skeo/stocksync/internal/domain/stock"
)

// StockItem is one raw stock reading as reported by a remote system, before
// normalization. Known is false when the remote value was missing, negative
// or non-numeric; Raw keeps the original representation for anomaly logs.
type StockItem struct {
	Key      string
	Quantity int64
	Known    bool
	Raw      string
}

// ---------------------------------------------------------------------------
// StockChannel Port Interface
// ---------------------------------------------------------------------------

// StockChannel is the port every sales channel adapter implements. It is
// defined in the domain layer; concrete adapters (Opencart, Lazada, Shopee,
// WooCommerce) live in the infrastructure layer.
type StockChannel interface {
	// Code returns the channel this adapter handles
	Code() stock.ChannelCode

	// FetchStockSnapshot returns the current stock reading for every product
	// the remote knows about. Failures are classified with the sentinel
	// errors in this package.
	FetchStockSnapshot(ctx context.Context) ([]StockItem, error)

	// PushStockUpdate sets the absolute quantity for one product on the
	// remote. ErrRejectedByRemote wraps the remote's raw refusal message.
	PushStockUpdate(ctx context.Context, key stock.ProductKey, quantity int64) error

	// RefreshAuth exchanges the stored refresh token for a fresh credential
	// and persists it. Channels without token auth return ErrAuthNotSupported.
	RefreshAuth(ctx context.Context) (*Credential, error)
}

// Authorizer is implemented by channels whose credentials come from an
// out-of-band operator flow: the operator opens the authorization URL in a
// browser, approves access, and feeds the resulting code back in.
type Authorizer interface {
	// AuthorizationURL returns the URL an operator must visit to approve
	// access
	AuthorizationURL() (string, error)

	// ExchangeAuthCode turns an approval code into a persisted credential
	ExchangeAuthCode(ctx context.Context, code string) (*Credential, error)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry holds the configured channel adapters, keyed by channel code
type Registry struct {
	mu       sync.RWMutex
	channels map[stock.ChannelCode]StockChannel
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{channels: make(map[stock.ChannelCode]StockChannel)}
}

// Register adds or replaces the adapter for its channel code
func (r *Registry) Register(ch StockChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.Code()] = ch
}

// Get returns the adapter for a channel code, ErrNotRegistered when absent
func (r *Registry) Get(code stock.ChannelCode) (StockChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[code]
	if !ok {
		return nil, ErrNotRegistered
	}
	return ch, nil
}

// List returns all registered adapters in deterministic code order
func (r *Registry) List() []StockChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StockChannel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out
}

// Codes returns the registered channel codes in deterministic order
func (r *Registry) Codes() []stock.ChannelCode {
	list := r.List()
	codes := make([]stock.ChannelCode, len(list))
	for i, ch := range list {
		codes[i] = ch.Code()
	}
	return codes
}
