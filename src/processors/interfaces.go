package processors

import (
	"github.com/username/trackfolio/src/models"
)

// PortfolioProcessor defines the interface for the FIFO cost-basis engine:
// it replays a transaction history against a current-price lookup and
// produces per-ticker and aggregate profit figures.
type PortfolioProcessor interface {
	// Process replays the full history. Selling more than the held lots
	// silently drops the excess.
	Process(transactions []models.Transaction, prices map[string]float64) *models.PortfolioSnapshot
	// ProcessStrict is Process with oversell detection: the first SELL that
	// exceeds the held lots aborts the run with a *NegativePositionError.
	ProcessStrict(transactions []models.Transaction, prices map[string]float64) (*models.PortfolioSnapshot, error)
}

// FieldSelector picks the grouping label for one transaction.
type FieldSelector func(tx models.Transaction) string

// BreakdownProcessor defines the interface for grouping transaction value
// along one metadata dimension chosen by a field selector.
type BreakdownProcessor interface {
	Breakdown(transactions []models.Transaction, prices map[string]float64, selector FieldSelector) []models.BreakdownEntry
}
