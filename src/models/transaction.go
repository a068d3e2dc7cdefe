package models

import "time"

// Order types accepted in storage. Parsing is case-insensitive at the store
// boundary; the canonical stored form is upper case.
const (
	OrderBuy  = "BUY"
	OrderSell = "SELL"
)

// Transaction represents a single recorded trade. Records are immutable once
// stored; edits go through the store's update operation.
type Transaction struct {
	ID        int64     `json:"id,omitempty"` // Store-assigned, unique and increasing per store
	Date      time.Time `json:"date"`         // When the trade occurred; used only for ordering
	Ticker    string    `json:"ticker"`       // Instrument symbol, the lot-matching key
	Quantity  float64   `json:"quantity"`     // Units traded, never negative; direction comes from OrderType
	Price     float64   `json:"price"`        // Unit price at trade time
	OrderType string    `json:"order_type"`   // "BUY" or "SELL"
	Broker    string    `json:"broker"`       // Descriptive metadata, used only in groupings
	Sector    string    `json:"sector"`
	AssetType string    `json:"asset_type"`
	Company   string    `json:"company"`
}
