package store

import (
	"errors"
	"math"
	"strings"

	"github.com/username/trackfolio/src/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrEmptyTicker         = errors.New("ticker must not be empty")
	ErrInvalidOrderType    = errors.New("order type must be BUY or SELL")
)

// TransactionStore owns the lifecycle of transaction records: list-all,
// append, update-by-id, delete-by-id. Records are immutable once stored;
// changes go through Update.
type TransactionStore interface {
	// List returns every stored transaction, date ascending, id ascending.
	List() ([]models.Transaction, error)
	// Append stores a new transaction, assigns its ID and returns the stored copy.
	Append(tx models.Transaction) (models.Transaction, error)
	// Update replaces the record with tx.ID. ErrTransactionNotFound if absent.
	Update(tx models.Transaction) error
	// Delete removes the record with the given id. ErrTransactionNotFound if absent.
	Delete(id int64) error
}

// TickerStore holds ticker reference data: descriptive metadata plus the
// manually maintained reference price.
type TickerStore interface {
	// ListTickers returns all reference rows, ticker ascending.
	ListTickers() ([]models.TickerInfo, error)
	// GetTickers batch-fetches reference rows; unknown tickers are absent
	// from the result map.
	GetTickers(tickers []string) (map[string]models.TickerInfo, error)
	// PutTicker inserts or replaces the row for info.Ticker.
	PutTicker(info models.TickerInfo) error
}

// NormalizeTicker is the canonical stored form of a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// normalizeTransaction applies the store-boundary cleaning rules so stored
// rows are already canonical: ticker upper-cased and trimmed, order type
// validated case-insensitively, unusable quantity/price stored as 0.
func normalizeTransaction(tx models.Transaction) (models.Transaction, error) {
	tx.Ticker = NormalizeTicker(tx.Ticker)
	if tx.Ticker == "" {
		return models.Transaction{}, ErrEmptyTicker
	}

	tx.OrderType = strings.ToUpper(strings.TrimSpace(tx.OrderType))
	if tx.OrderType != models.OrderBuy && tx.OrderType != models.OrderSell {
		return models.Transaction{}, ErrInvalidOrderType
	}

	tx.Quantity = sanitizeStoredAmount(tx.Quantity)
	tx.Price = sanitizeStoredAmount(tx.Price)
	return tx, nil
}

func sanitizeStoredAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
