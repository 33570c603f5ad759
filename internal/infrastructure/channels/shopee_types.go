package channels

import "encoding/json"

// ---------------------------------------------------------------------------
// Common Shopee API Response Types
// ---------------------------------------------------------------------------

// ShopeeResponse carries the error fields every Shopee v1 response may set
type ShopeeResponse struct {
	Error string `json:"error,omitempty"`
	Msg   string `json:"msg,omitempty"`
}

// IsSuccess returns true if the response indicates success
func (r *ShopeeResponse) IsSuccess() bool {
	return r.Error == ""
}

// ---------------------------------------------------------------------------
// Item Types
// ---------------------------------------------------------------------------

// ShopeeItemsGetResponse is the /api/v1/items/get response
type ShopeeItemsGetResponse struct {
	ShopeeResponse
	Items []ShopeeItemRef `json:"items"`
	More  bool            `json:"more"`
}

// ShopeeItemRef is one entry of the item listing; details need a second call
type ShopeeItemRef struct {
	ItemID int64 `json:"item_id"`
}

// ShopeeItemGetResponse is the /api/v1/item/get response
type ShopeeItemGetResponse struct {
	ShopeeResponse
	Item *ShopeeItem `json:"item,omitempty"`
}

// ShopeeItem is one listing. When it has more than one variation the
// variations carry the stock, otherwise the item itself does.
type ShopeeItem struct {
	ItemID     int64             `json:"item_id"`
	ItemSku    string            `json:"item_sku"`
	Stock      json.RawMessage   `json:"stock"`
	Variations []ShopeeVariation `json:"variations,omitempty"`
}

// ShopeeVariation is one sellable variation of a listing
type ShopeeVariation struct {
	VariationID  int64           `json:"variation_id"`
	VariationSku string          `json:"variation_sku"`
	Stock        json.RawMessage `json:"stock"`
}
