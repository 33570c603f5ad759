package channels

import (
	"errors"
	"strings"
)

// OpencartConfig holds configuration for the Opencart storefront adapter.
// Opencart has no API token scheme; the adapter authenticates each call with
// the admin username and password through the login redirect trick the
// store_sync extension expects.
type OpencartConfig struct {
	// Domain is the admin base URL, e.g. "https://shop.example.com/admin/"
	Domain string
	// Username is the admin username
	Username string
	// Password is the admin password
	Password string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RateLimit is the sustained requests-per-second ceiling
	RateLimit float64
	// RateBurst is the burst allowance on top of RateLimit
	RateBurst int
}

// Errors for Opencart configuration
var (
	ErrOpencartConfigMissingDomain   = errors.New("opencart: domain is required")
	ErrOpencartConfigMissingUsername = errors.New("opencart: username is required")
	ErrOpencartConfigMissingPassword = errors.New("opencart: password is required")
)

// Validate validates the Opencart configuration and applies defaults
func (c *OpencartConfig) Validate() error {
	if c.Domain == "" {
		return ErrOpencartConfigMissingDomain
	}
	if c.Username == "" {
		return ErrOpencartConfigMissingUsername
	}
	if c.Password == "" {
		return ErrOpencartConfigMissingPassword
	}
	// Endpoint paths are appended directly to the domain.
	if !strings.HasSuffix(c.Domain, "/") {
		c.Domain += "/"
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
