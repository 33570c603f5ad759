package channels

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// LazadaConfig holds configuration for the Lazada Open Platform adapter
type LazadaConfig struct {
	// Domain is the country-specific API base URL, e.g.
	// "https://api.lazada.com.ph/rest"
	Domain string
	// AuthDomain is the token endpoint base URL, shared across countries
	AuthDomain string
	// AppKey is the application key from the Lazada open platform
	AppKey string
	// AppSecret is the application secret from the Lazada open platform
	AppSecret string
	// RedirectURL is the callback registered with the app; required only for
	// the operator authorization flow
	RedirectURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RateLimit is the sustained requests-per-second ceiling
	RateLimit float64
	// RateBurst is the burst allowance on top of RateLimit
	RateBurst int
}

const (
	// LazadaDefaultAPIURL is the cross-country API endpoint
	LazadaDefaultAPIURL = "https://api.lazada.com/rest"
	// LazadaAuthAPIURL is the token endpoint
	LazadaAuthAPIURL = "https://auth.lazada.com/rest"
	// LazadaAuthorizeURL is where an operator approves shop access
	LazadaAuthorizeURL = "https://auth.lazada.com/oauth/authorize"
)

// Errors for Lazada configuration
var (
	ErrLazadaConfigMissingAppKey    = errors.New("lazada: app key is required")
	ErrLazadaConfigMissingAppSecret = errors.New("lazada: app secret is required")
)

// Validate validates the Lazada configuration and applies defaults
func (c *LazadaConfig) Validate() error {
	if c.AppKey == "" {
		return ErrLazadaConfigMissingAppKey
	}
	if c.AppSecret == "" {
		return ErrLazadaConfigMissingAppSecret
	}
	if c.Domain == "" {
		c.Domain = LazadaDefaultAPIURL
	}
	if c.AuthDomain == "" {
		c.AuthDomain = LazadaAuthAPIURL
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

// Sign generates the signature for a Lazada API request.
// Lazada uses HMAC-SHA256 over the API path followed by the sorted
// key-value concatenation, hex-encoded in upper case.
func (c *LazadaConfig) Sign(apiPath string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(apiPath)
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(params[k])
	}

	h := hmac.New(sha256.New, []byte(c.AppSecret))
	h.Write([]byte(builder.String()))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}
