package channel

import (
	"context"
	"time"

	"github.com/skeo/stocksync/internal/domain/stock"
)

// Credential is an OAuth-style token pair for one channel. Credentials are
// owned by the channel adapter; the reconciliation engine never inspects
// them, it only reacts to ErrAuthExpired.
type Credential struct {
	Channel      stock.ChannelCode
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token has passed its expiry.
// A zero ExpiresAt means the credential does not expire.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// CredentialStore is the port for persisted channel credentials
type CredentialStore interface {
	// Load returns the stored credential for a channel,
	// ErrCredentialNotFound when none exists
	Load(ctx context.Context, channel stock.ChannelCode) (*Credential, error)

	// Save inserts or replaces the credential for its channel
	Save(ctx context.Context, cred *Credential) error
}
