package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/utils"
)

// SQLiteStore persists transactions in the `transactions` table created by
// database.InitDB. Dates are stored as RFC3339 UTC text.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) List() ([]models.Transaction, error) {
	rows, err := s.db.Query(`SELECT id, date, ticker, quantity, price, order_type, broker, sector, asset_type, company FROM transactions ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var date string
		var broker, sector, assetType, company sql.NullString
		if err := rows.Scan(&tx.ID, &date, &tx.Ticker, &tx.Quantity, &tx.Price, &tx.OrderType, &broker, &sector, &assetType, &company); err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}
		// A row with a corrupt date still loads; it sorts to the front.
		tx.Date = utils.ParseDate(date)
		if tx.Date.IsZero() {
			logger.L.Warn("Stored transaction has unparseable date, using zero time", "id", tx.ID, "date", date)
		}
		tx.Broker = broker.String
		tx.Sector = sector.String
		tx.AssetType = assetType.String
		tx.Company = company.String
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows: %w", err)
	}
	return transactions, nil
}

func (s *SQLiteStore) Append(tx models.Transaction) (models.Transaction, error) {
	tx, err := normalizeTransaction(tx)
	if err != nil {
		return models.Transaction{}, err
	}

	result, err := s.db.Exec(
		`INSERT INTO transactions (date, ticker, quantity, price, order_type, broker, sector, asset_type, company) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		utils.FormatDate(tx.Date), tx.Ticker, tx.Quantity, tx.Price, tx.OrderType, tx.Broker, tx.Sector, tx.AssetType, tx.Company,
	)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("error inserting transaction for %s: %w", tx.Ticker, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.Transaction{}, fmt.Errorf("error reading inserted transaction id: %w", err)
	}
	tx.ID = id
	return tx, nil
}

func (s *SQLiteStore) Update(tx models.Transaction) error {
	tx, err := normalizeTransaction(tx)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(
		`UPDATE transactions SET date = ?, ticker = ?, quantity = ?, price = ?, order_type = ?, broker = ?, sector = ?, asset_type = ?, company = ? WHERE id = ?`,
		utils.FormatDate(tx.Date), tx.Ticker, tx.Quantity, tx.Price, tx.OrderType, tx.Broker, tx.Sector, tx.AssetType, tx.Company, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating transaction %d: %w", tx.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking updated rows for transaction %d: %w", tx.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrTransactionNotFound, tx.ID)
	}
	return nil
}

func (s *SQLiteStore) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting transaction %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted rows for transaction %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrTransactionNotFound, id)
	}
	return nil
}

// SQLiteTickerStore persists ticker reference data in the `tickers` table.
type SQLiteTickerStore struct {
	db *sql.DB
}

func NewSQLiteTickerStore(db *sql.DB) *SQLiteTickerStore {
	return &SQLiteTickerStore{db: db}
}

func (s *SQLiteTickerStore) ListTickers() ([]models.TickerInfo, error) {
	rows, err := s.db.Query(`SELECT ticker, company, sector, asset_type, reference_price, updated_at FROM tickers ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying tickers: %w", err)
	}
	defer rows.Close()

	var infos []models.TickerInfo
	for rows.Next() {
		info, err := scanTickerRow(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ticker rows: %w", err)
	}
	return infos, nil
}

// GetTickers batch-fetches reference rows in a single query. An IN clause
// with generated placeholders keeps this one round trip regardless of the
// number of tickers.
func (s *SQLiteTickerStore) GetTickers(tickers []string) (map[string]models.TickerInfo, error) {
	infos := make(map[string]models.TickerInfo)
	if len(tickers) == 0 {
		return infos, nil
	}

	query := `SELECT ticker, company, sector, asset_type, reference_price, updated_at FROM tickers WHERE ticker IN (?` + strings.Repeat(",?", len(tickers)-1) + `)`
	args := make([]interface{}, len(tickers))
	for i, ticker := range tickers {
		args[i] = NormalizeTicker(ticker)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying tickers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		info, err := scanTickerRow(rows)
		if err != nil {
			return nil, err
		}
		infos[info.Ticker] = info
	}
	return infos, rows.Err()
}

func (s *SQLiteTickerStore) PutTicker(info models.TickerInfo) error {
	info.Ticker = NormalizeTicker(info.Ticker)
	if info.Ticker == "" {
		return ErrEmptyTicker
	}
	info.ReferencePrice = sanitizeStoredAmount(info.ReferencePrice)

	_, err := s.db.Exec(
		`INSERT INTO tickers (ticker, company, sector, asset_type, reference_price, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ticker) DO UPDATE SET company = excluded.company, sector = excluded.sector, asset_type = excluded.asset_type, reference_price = excluded.reference_price, updated_at = excluded.updated_at`,
		info.Ticker, info.Company, info.Sector, info.AssetType, info.ReferencePrice, utils.FormatDate(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("error upserting ticker %s: %w", info.Ticker, err)
	}
	return nil
}

func scanTickerRow(rows *sql.Rows) (models.TickerInfo, error) {
	var info models.TickerInfo
	var company, sector, assetType, updatedAt sql.NullString
	if err := rows.Scan(&info.Ticker, &company, &sector, &assetType, &info.ReferencePrice, &updatedAt); err != nil {
		return models.TickerInfo{}, fmt.Errorf("error scanning ticker row: %w", err)
	}
	info.Company = company.String
	info.Sector = sector.String
	info.AssetType = assetType.String
	if updatedAt.Valid {
		info.UpdatedAt = utils.ParseDate(updatedAt.String)
	}
	return info, nil
}
