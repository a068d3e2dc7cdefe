package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/processors"
	"github.com/username/trackfolio/src/store"
)

const (
	// Computed report caches, cleared on every write.
	ckSnapshot  = "res_snapshot"
	ckBreakdown = "res_breakdown_%s"

	// Short-lived per-ticker quote cache used by the Yahoo source.
	ckQuote = "quote_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// breakdownSelectors maps the public dimension names onto field selectors.
var breakdownSelectors = map[string]processors.FieldSelector{
	"sector":    processors.SelectSector,
	"broker":    processors.SelectBroker,
	"assetType": processors.SelectAssetType,
	"company":   processors.SelectCompany,
	"ticker":    processors.SelectTicker,
}

type portfolioServiceImpl struct {
	transactionStore   store.TransactionStore
	tickerStore        store.TickerStore
	priceService       PriceService
	portfolioProcessor processors.PortfolioProcessor
	breakdownProcessor processors.BreakdownProcessor
	reportCache        *cache.Cache
}

func NewPortfolioService(
	transactionStore store.TransactionStore,
	tickerStore store.TickerStore,
	priceService PriceService,
	reportCache *cache.Cache,
) PortfolioService {
	return &portfolioServiceImpl{
		transactionStore:   transactionStore,
		tickerStore:        tickerStore,
		priceService:       priceService,
		portfolioProcessor: processors.NewPortfolioProcessor(),
		breakdownProcessor: processors.NewBreakdownProcessor(),
		reportCache:        reportCache,
	}
}

func (s *portfolioServiceImpl) GetSnapshot() (*models.PortfolioSnapshot, error) {
	if cached, found := s.reportCache.Get(ckSnapshot); found {
		logger.L.Debug("Cache hit for portfolio snapshot")
		return cached.(*models.PortfolioSnapshot), nil
	}
	logger.L.Info("Cache miss for portfolio snapshot, recomputing from store")

	transactions, prices, err := s.loadInputs()
	if err != nil {
		return nil, err
	}

	snapshot := s.portfolioProcessor.Process(transactions, prices)
	s.reportCache.Set(ckSnapshot, snapshot, DefaultCacheExpiration)
	return snapshot, nil
}

// GetHoldings returns the snapshot positions that still hold units.
func (s *portfolioServiceImpl) GetHoldings() ([]models.TickerSummary, error) {
	snapshot, err := s.GetSnapshot()
	if err != nil {
		return nil, err
	}

	holdings := make([]models.TickerSummary, 0, len(snapshot.Positions))
	for _, position := range snapshot.Positions {
		if position.HeldQuantity > 0 {
			holdings = append(holdings, position)
		}
	}
	return holdings, nil
}

func (s *portfolioServiceImpl) GetBreakdown(dimension string) ([]models.BreakdownEntry, error) {
	selector, ok := breakdownSelectors[dimension]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: sector, broker, assetType, company, ticker)", ErrUnknownDimension, dimension)
	}

	cacheKey := fmt.Sprintf(ckBreakdown, dimension)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for breakdown", "dimension", dimension)
		return cached.([]models.BreakdownEntry), nil
	}
	logger.L.Info("Cache miss for breakdown, recomputing from store", "dimension", dimension)

	transactions, prices, err := s.loadInputs()
	if err != nil {
		return nil, err
	}

	entries := s.breakdownProcessor.Breakdown(transactions, prices, selector)
	s.reportCache.Set(cacheKey, entries, DefaultCacheExpiration)
	return entries, nil
}

func (s *portfolioServiceImpl) ListTransactions() ([]models.Transaction, error) {
	transactions, err := s.transactionStore.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return transactions, nil
}

func (s *portfolioServiceImpl) AddTransaction(tx models.Transaction) (models.Transaction, error) {
	stored, err := s.transactionStore.Append(tx)
	if err != nil {
		return models.Transaction{}, err
	}
	s.invalidateReportCache()
	logger.L.Info("Transaction added", "id", stored.ID, "ticker", stored.Ticker, "orderType", stored.OrderType)
	return stored, nil
}

func (s *portfolioServiceImpl) UpdateTransaction(tx models.Transaction) error {
	if err := s.transactionStore.Update(tx); err != nil {
		return err
	}
	s.invalidateReportCache()
	logger.L.Info("Transaction updated", "id", tx.ID)
	return nil
}

func (s *portfolioServiceImpl) DeleteTransaction(id int64) error {
	if err := s.transactionStore.Delete(id); err != nil {
		return err
	}
	s.invalidateReportCache()
	logger.L.Info("Transaction deleted", "id", id)
	return nil
}

// invalidateReportCache drops every computed report so the next read
// recomputes from the full post-write history. Simple and always consistent.
func (s *portfolioServiceImpl) invalidateReportCache() {
	s.reportCache.Delete(ckSnapshot)
	for dimension := range breakdownSelectors {
		s.reportCache.Delete(fmt.Sprintf(ckBreakdown, dimension))
	}
}

// loadInputs assembles one computation's inputs: the full transaction list,
// enriched with reference metadata, plus current prices for its tickers. A
// price feed failure degrades to an empty map; a store failure does not.
func (s *portfolioServiceImpl) loadInputs() ([]models.Transaction, map[string]float64, error) {
	transactions, err := s.transactionStore.List()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	tickers := distinctTickers(transactions)
	transactions = s.enrichMetadata(transactions, tickers)

	prices, err := s.priceService.GetCurrentPrices(tickers)
	if err != nil {
		logger.L.Warn("Price feed failed, valuing holdings without live prices", "error", err)
		prices = map[string]float64{}
	}
	return transactions, prices, nil
}

// enrichMetadata fills empty Sector/AssetType/Company fields from the ticker
// reference store. The transaction row wins when it already carries a value.
func (s *portfolioServiceImpl) enrichMetadata(transactions []models.Transaction, tickers []string) []models.Transaction {
	infos, err := s.tickerStore.GetTickers(tickers)
	if err != nil {
		logger.L.Warn("Could not load ticker reference data for enrichment", "error", err)
		return transactions
	}
	if len(infos) == 0 {
		return transactions
	}

	for i, tx := range transactions {
		info, ok := infos[tx.Ticker]
		if !ok {
			continue
		}
		if tx.Sector == "" {
			transactions[i].Sector = info.Sector
		}
		if tx.AssetType == "" {
			transactions[i].AssetType = info.AssetType
		}
		if tx.Company == "" {
			transactions[i].Company = info.Company
		}
	}
	return transactions
}

func distinctTickers(transactions []models.Transaction) []string {
	seen := make(map[string]bool)
	tickers := make([]string, 0)
	for _, tx := range transactions {
		if tx.Ticker == "" || seen[tx.Ticker] {
			continue
		}
		seen[tx.Ticker] = true
		tickers = append(tickers, tx.Ticker)
	}
	return tickers
}
