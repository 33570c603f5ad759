package channels

import "encoding/json"

// ---------------------------------------------------------------------------
// Common Lazada API Response Types
// ---------------------------------------------------------------------------

// LazadaResponse is the base response envelope for Lazada API calls
type LazadaResponse struct {
	Code      string          `json:"code"`
	Message   string          `json:"message,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// IsSuccess returns true if the response indicates success
func (r *LazadaResponse) IsSuccess() bool {
	return r.Code == "" || r.Code == "0"
}

// ---------------------------------------------------------------------------
// Product Types
// ---------------------------------------------------------------------------

// LazadaProductsData is the data section of the /products/get response
type LazadaProductsData struct {
	TotalProducts int64           `json:"total_products"`
	Products      []LazadaProduct `json:"products"`
}

// LazadaProduct is one listing, holding one or more sellable SKUs
type LazadaProduct struct {
	ItemID int64       `json:"item_id"`
	Skus   []LazadaSku `json:"skus"`
}

// LazadaSku is one sellable variation. Quantity is kept raw because the API
// has emitted both numbers and quoted numbers over the years.
type LazadaSku struct {
	SellerSku string          `json:"SellerSku"`
	SkuID     int64           `json:"SkuId"`
	Quantity  json.RawMessage `json:"quantity"`
}

// ---------------------------------------------------------------------------
// Token Types
// ---------------------------------------------------------------------------

// LazadaTokenResponse is the /auth/token/create and /auth/token/refresh
// response; token fields sit beside the envelope fields
type LazadaTokenResponse struct {
	Code         string `json:"code"`
	Message      string `json:"message,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IsSuccess returns true if the response indicates success
func (r *LazadaTokenResponse) IsSuccess() bool {
	return r.Code == "" || r.Code == "0"
}
