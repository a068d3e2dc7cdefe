package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/username/trackfolio/src/models"
)

// MemoryStore keeps transactions in process memory. IDs come from a
// millisecond timestamp bumped past the previous ID on collision, so they
// stay strictly increasing within one store instance. Safe for concurrent
// use; every record that crosses the boundary is a copy.
type MemoryStore struct {
	mu           sync.Mutex
	transactions []models.Transaction
	lastID       int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) List() ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Append(tx models.Transaction) (models.Transaction, error) {
	tx, err := normalizeTransaction(tx)
	if err != nil {
		return models.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = s.nextID()
	s.transactions = append(s.transactions, tx)
	return tx, nil
}

func (s *MemoryStore) Update(tx models.Transaction) error {
	tx, err := normalizeTransaction(tx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.transactions {
		if s.transactions[i].ID == tx.ID {
			s.transactions[i] = tx
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", ErrTransactionNotFound, tx.ID)
}

func (s *MemoryStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.transactions {
		if s.transactions[i].ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", ErrTransactionNotFound, id)
}

// nextID must be called with the mutex held.
func (s *MemoryStore) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// MemoryTickerStore keeps ticker reference data in process memory.
type MemoryTickerStore struct {
	mu      sync.Mutex
	tickers map[string]models.TickerInfo
}

func NewMemoryTickerStore() *MemoryTickerStore {
	return &MemoryTickerStore{tickers: make(map[string]models.TickerInfo)}
}

func (s *MemoryTickerStore) ListTickers() ([]models.TickerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.TickerInfo, 0, len(s.tickers))
	for _, info := range s.tickers {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (s *MemoryTickerStore) GetTickers(tickers []string) (map[string]models.TickerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.TickerInfo, len(tickers))
	for _, ticker := range tickers {
		if info, ok := s.tickers[NormalizeTicker(ticker)]; ok {
			out[info.Ticker] = info
		}
	}
	return out, nil
}

func (s *MemoryTickerStore) PutTicker(info models.TickerInfo) error {
	info.Ticker = NormalizeTicker(info.Ticker)
	if info.Ticker == "" {
		return ErrEmptyTicker
	}
	info.ReferencePrice = sanitizeStoredAmount(info.ReferencePrice)
	info.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickers[info.Ticker] = info
	return nil
}
