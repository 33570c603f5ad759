package channels

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ShopeeConfig holds configuration for the Shopee partner API adapter.
// Shopee authenticates per request: every call carries an HMAC of the URL
// and body under the partner key, so there is no token to refresh.
type ShopeeConfig struct {
	// Domain is the partner API base URL
	Domain string
	// PartnerID is the numeric partner identifier
	PartnerID int64
	// PartnerKey is the shared secret issued to the partner
	PartnerKey string
	// ShopID is the numeric shop identifier
	ShopID int64
	// RedirectURL is where Shopee sends the operator after shop
	// authorization
	RedirectURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RateLimit is the sustained requests-per-second ceiling
	RateLimit float64
	// RateBurst is the burst allowance on top of RateLimit
	RateBurst int
}

// ShopeeDefaultAPIURL is the production partner API endpoint
const ShopeeDefaultAPIURL = "https://partner.shopeemobile.com"

// Errors for Shopee configuration
var (
	ErrShopeeConfigMissingPartnerID  = errors.New("shopee: partner id is required")
	ErrShopeeConfigMissingPartnerKey = errors.New("shopee: partner key is required")
	ErrShopeeConfigMissingShopID     = errors.New("shopee: shop id is required")
)

// Validate validates the Shopee configuration and applies defaults
func (c *ShopeeConfig) Validate() error {
	if c.PartnerID == 0 {
		return ErrShopeeConfigMissingPartnerID
	}
	if c.PartnerKey == "" {
		return ErrShopeeConfigMissingPartnerKey
	}
	if c.ShopID == 0 {
		return ErrShopeeConfigMissingShopID
	}
	if c.Domain == "" {
		c.Domain = ShopeeDefaultAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 5
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 5
	}
	return nil
}

// Sign generates the request signature: HMAC-SHA256 of "url|body" under the
// partner key, hex-encoded
func (c *ShopeeConfig) Sign(url, body string) string {
	h := hmac.New(sha256.New, []byte(c.PartnerKey))
	h.Write([]byte(url + "|" + body))
	return hex.EncodeToString(h.Sum(nil))
}

// AuthToken generates the token for the shop authorization URL: SHA256 of
// the partner key concatenated with the redirect URL
func (c *ShopeeConfig) AuthToken(redirectURL string) string {
	sum := sha256.Sum256([]byte(c.PartnerKey + redirectURL))
	return hex.EncodeToString(sum[:])
}
