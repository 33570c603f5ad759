package channels

import "encoding/json"

// ---------------------------------------------------------------------------
// Opencart store_sync Extension Types
// ---------------------------------------------------------------------------

// OpencartProductRow is one row of the listlocalproducts response. Quantity
// is kept raw because older extension builds emit it as a quoted string.
type OpencartProductRow struct {
	Model    string          `json:"model"`
	Quantity json.RawMessage `json:"quantity"`
}

// OpencartUpdateResponse is the setlocalquantity response
type OpencartUpdateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
