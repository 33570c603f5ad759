package stock

import "strings"

// ProductKey is the merchant-assigned identifier (SKU / model code) that joins
// the same product across channels. Keys are compared case-insensitively, so
// they are normalized to upper case with surrounding whitespace removed.
type ProductKey string

// NewProductKey normalizes a raw key and rejects empty input
func NewProductKey(raw string) (ProductKey, error) {
	k := strings.ToUpper(strings.TrimSpace(raw))
	if k == "" {
		return "", ErrEmptyProductKey
	}
	return ProductKey(k), nil
}

// String returns the normalized key
func (k ProductKey) String() string {
	return string(k)
}
