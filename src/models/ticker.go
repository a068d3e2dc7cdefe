package models

import "time"

// TickerInfo is one row of ticker reference data: descriptive metadata plus a
// manually maintained reference price. The reference store is the metadata
// authority for transactions recorded without sector/asset type/company.
type TickerInfo struct {
	Ticker         string    `json:"ticker"`
	Company        string    `json:"company"`
	Sector         string    `json:"sector"`
	AssetType      string    `json:"asset_type"`
	ReferencePrice float64   `json:"reference_price"` // Current unit price per the reference data, 0 when unknown
	UpdatedAt      time.Time `json:"updated_at"`
}
