package services

import (
	"errors"

	"github.com/username/trackfolio/src/models"
)

var (
	ErrStoreFailure         = errors.New("transaction store failure")
	ErrPriceLookupFailed    = errors.New("price lookup failed")
	ErrUnknownDimension     = errors.New("unknown breakdown dimension")
	ErrUnknownPriceProvider = errors.New("unknown price provider")
)

// PriceService resolves current unit prices for a set of tickers. The
// returned map may omit tickers the source cannot price; callers treat
// absence per the engine's missing-price rules.
type PriceService interface {
	GetCurrentPrices(tickers []string) (map[string]float64, error)
}

// PortfolioService is the reporting layer's data supplier: it ties the
// transaction store, the price feed and the cost-basis engine together, and
// caches computed reports until the next write.
type PortfolioService interface {
	GetSnapshot() (*models.PortfolioSnapshot, error)
	GetHoldings() ([]models.TickerSummary, error)
	GetBreakdown(dimension string) ([]models.BreakdownEntry, error)

	ListTransactions() ([]models.Transaction, error)
	AddTransaction(tx models.Transaction) (models.Transaction, error)
	UpdateTransaction(tx models.Transaction) error
	DeleteTransaction(id int64) error
}
