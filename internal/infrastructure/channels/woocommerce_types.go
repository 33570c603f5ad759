package channels

import "encoding/json"

// ---------------------------------------------------------------------------
// WooCommerce REST API Types
// ---------------------------------------------------------------------------

// WoocommerceProduct is one product of the wc/v3 products listing.
// StockQuantity is kept raw: the API emits integers, floats (with decimal
// stock plugins) or null when stock management is off.
type WoocommerceProduct struct {
	ID            int64           `json:"id"`
	Sku           string          `json:"sku"`
	StockQuantity json.RawMessage `json:"stock_quantity"`
}

// WoocommerceError is the wc/v3 error body
type WoocommerceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WoocommerceStockUpdate is the PUT body for a stock change
type WoocommerceStockUpdate struct {
	StockQuantity int64 `json:"stock_quantity"`
}
