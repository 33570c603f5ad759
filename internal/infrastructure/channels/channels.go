// Package channels contains the concrete sales channel adapters. Each
// adapter speaks one remote API (Opencart, Lazada, Shopee, WooCommerce) and
// translates its failures into the sentinel errors of the channel domain
// package.
package channels

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/skeo/stocksync/internal/domain/channel"
)

// maxResponseSize is the maximum allowed response size from a remote API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// quantityFromRaw normalizes a raw JSON scalar into a stock quantity. The
// remotes disagree on representation: numbers, quoted numbers, floats, null.
// Negative or unparseable values come back as not-known; the raw text is
// preserved for anomaly logs. A missing quantity is never coerced to zero.
func quantityFromRaw(raw json.RawMessage) (int64, bool, string) {
	text := string(raw)
	s := strings.Trim(strings.TrimSpace(text), `"`)
	if s == "" || s == "null" {
		return 0, false, text
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, false, text
	}
	return d.IntPart(), true, text
}

// classifyStatus maps an HTTP status code to a channel sentinel error.
// 2xx maps to nil.
func classifyStatus(status int) error {
	switch {
	case status < 300:
		return nil
	case status == 401 || status == 403:
		return fmt.Errorf("%w: HTTP %d", channel.ErrAuthExpired, status)
	case status == 404:
		return fmt.Errorf("%w: HTTP %d", channel.ErrProductNotFound, status)
	case status == 429:
		return fmt.Errorf("%w: HTTP %d", channel.ErrRateLimited, status)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d", channel.ErrNetwork, status)
	default:
		return fmt.Errorf("%w: HTTP %d", channel.ErrRejectedByRemote, status)
	}
}
