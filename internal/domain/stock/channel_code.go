package stock

// ---------------------------------------------------------------------------
// ChannelCode identifies an external sales channel
// ---------------------------------------------------------------------------

// ChannelCode identifies an external sales channel
type ChannelCode string

const (
	// ChannelCodeOpencart represents the Opencart storefront
	ChannelCodeOpencart ChannelCode = "OPENCART"
	// ChannelCodeLazada represents the Lazada marketplace
	ChannelCodeLazada ChannelCode = "LAZADA"
	// ChannelCodeShopee represents the Shopee marketplace
	ChannelCodeShopee ChannelCode = "SHOPEE"
	// ChannelCodeWoocommerce represents a WooCommerce store
	ChannelCodeWoocommerce ChannelCode = "WOOCOMMERCE"
)

// IsValid returns true if the channel code is valid
func (c ChannelCode) IsValid() bool {
	switch c {
	case ChannelCodeOpencart, ChannelCodeLazada, ChannelCodeShopee, ChannelCodeWoocommerce:
		return true
	default:
		return false
	}
}

// String returns the string representation of ChannelCode
func (c ChannelCode) String() string {
	return string(c)
}
