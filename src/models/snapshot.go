package models

// Lot represents remaining unsold units from a single BUY. Lots are working
// copies owned by one matching run; they never alias caller data.
type Lot struct {
	Quantity float64 `json:"quantity"` // Remaining unmatched units
	Price    float64 `json:"price"`    // Unit cost basis of the originating BUY
}

// TickerSummary holds the per-instrument figures of one matching run.
type TickerSummary struct {
	Ticker            string  `json:"ticker"`
	TotalInvestment   float64 `json:"total_investment"`   // Gross BUY qty x price, not reduced by sells
	CurrentInvestment float64 `json:"current_investment"` // Cost basis of surviving lots
	HeldQuantity      float64 `json:"held_quantity"`      // Sum of surviving lot quantities
	CurrentPrice      float64 `json:"current_price"`      // Live price used, 0 when missing
	MarketValue       float64 `json:"market_value"`       // HeldQuantity x CurrentPrice
	RealizedProfit    float64 `json:"realized_profit"`
	UnrealizedProfit  float64 `json:"unrealized_profit"`
	TotalProfit       float64 `json:"total_profit"`
	Lots              []Lot   `json:"lots"` // Surviving lots, oldest first
}

// PortfolioSnapshot is the aggregate output of one matching run. It is
// recomputed in full on every call; nothing carries over between runs.
type PortfolioSnapshot struct {
	TotalInvestment   float64         `json:"total_investment"`   // Gross BUY qty x price across the full history
	CurrentInvestment float64         `json:"current_investment"` // Cost basis of all surviving lots
	MarketValue       float64         `json:"market_value"`       // Held quantity at live prices
	CurrentValue      float64         `json:"current_value"`      // Gross transacted value at live (or trade) prices; does not net buys against sells
	RealizedProfit    float64         `json:"realized_profit"`
	UnrealizedProfit  float64         `json:"unrealized_profit"`
	TotalProfit       float64         `json:"total_profit"`
	ProfitPercentage  float64         `json:"profit_percentage"` // TotalProfit over TotalInvestment, percent; 0 when nothing was invested
	Positions         []TickerSummary `json:"positions"`         // Sorted by ticker
}

// BreakdownEntry is one group row of a metadata breakdown.
type BreakdownEntry struct {
	Label        string  `json:"label"`
	Investment   float64 `json:"investment"`    // Gross BUY qty x price within the group
	CurrentValue float64 `json:"current_value"` // Gross transacted value at live (or trade) prices within the group
	Weight       float64 `json:"weight"`        // Investment share of the breakdown total, percent
}
