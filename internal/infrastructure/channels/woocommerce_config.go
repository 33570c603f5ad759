package channels

import (
	"errors"
	"strings"
)

// WoocommerceConfig holds configuration for the WooCommerce REST API adapter
type WoocommerceConfig struct {
	// Domain is the store base URL, e.g. "https://shop.example.com"
	Domain string
	// ConsumerKey is the REST API consumer key
	ConsumerKey string
	// ConsumerSecret is the REST API consumer secret
	ConsumerSecret string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RateLimit is the sustained requests-per-second ceiling
	RateLimit float64
	// RateBurst is the burst allowance on top of RateLimit
	RateBurst int
}

// WoocommerceAPIPrefix is the wc/v3 REST route prefix
const WoocommerceAPIPrefix = "/wp-json/wc/v3"

// Errors for WooCommerce configuration
var (
	ErrWoocommerceConfigMissingDomain = errors.New("woocommerce: domain is required")
	ErrWoocommerceConfigMissingKey    = errors.New("woocommerce: consumer key is required")
	ErrWoocommerceConfigMissingSecret = errors.New("woocommerce: consumer secret is required")
)

// Validate validates the WooCommerce configuration and applies defaults
func (c *WoocommerceConfig) Validate() error {
	if c.Domain == "" {
		return ErrWoocommerceConfigMissingDomain
	}
	if c.ConsumerKey == "" {
		return ErrWoocommerceConfigMissingKey
	}
	if c.ConsumerSecret == "" {
		return ErrWoocommerceConfigMissingSecret
	}
	c.Domain = strings.TrimSuffix(c.Domain, "/")
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
