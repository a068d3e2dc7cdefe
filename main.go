package main

import (
	"encoding/json"
	"os"

	"github.com/patrickmn/go-cache"
	"github.com/username/trackfolio/src/config"
	"github.com/username/trackfolio/src/database"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/services"
	"github.com/username/trackfolio/src/store"
	"github.com/username/trackfolio/src/utils"
)

// displayPrecision is applied only here; the engine itself never rounds.
const displayPrecision = 2

// report is the single JSON document emitted on stdout.
type report struct {
	Snapshot   *models.PortfolioSnapshot          `json:"snapshot"`
	Holdings   []models.TickerSummary             `json:"holdings"`
	Breakdowns map[string][]models.BreakdownEntry `json:"breakdowns"`
}

// Breakdown dimensions in the emitted document, JSON key → service name.
var reportDimensions = map[string]string{
	"sector":     "sector",
	"broker":     "broker",
	"asset_type": "assetType",
	"company":    "company",
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Starting trackfolio report run", "priceProvider", config.Cfg.PriceProvider)

	database.InitDB(config.Cfg.DatabasePath)
	defer database.DB.Close()

	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	quoteCache := cache.New(config.Cfg.PriceCacheTTL, services.CacheCleanupInterval)

	transactionStore := store.NewSQLiteStore(database.DB)
	tickerStore := store.NewSQLiteTickerStore(database.DB)

	priceService, err := services.NewPriceService(config.Cfg.PriceProvider, tickerStore, quoteCache)
	if err != nil {
		logger.L.Error("Failed to create price service", "error", err)
		os.Exit(1)
	}

	portfolioService := services.NewPortfolioService(transactionStore, tickerStore, priceService, reportCache)

	out, err := buildReport(portfolioService)
	if err != nil {
		logger.L.Error("Failed to build report", "error", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		logger.L.Error("Failed to encode report", "error", err)
		os.Exit(1)
	}
	logger.L.Info("Report run complete", "positions", len(out.Snapshot.Positions))
}

func buildReport(portfolioService services.PortfolioService) (*report, error) {
	snapshot, err := portfolioService.GetSnapshot()
	if err != nil {
		return nil, err
	}

	holdings, err := portfolioService.GetHoldings()
	if err != nil {
		return nil, err
	}

	breakdowns := make(map[string][]models.BreakdownEntry, len(reportDimensions))
	for jsonKey, dimension := range reportDimensions {
		entries, err := portfolioService.GetBreakdown(dimension)
		if err != nil {
			return nil, err
		}
		breakdowns[jsonKey] = roundBreakdown(entries)
	}

	return &report{
		Snapshot:   roundSnapshot(snapshot),
		Holdings:   roundSummaries(holdings),
		Breakdowns: breakdowns,
	}, nil
}

func roundSnapshot(snapshot *models.PortfolioSnapshot) *models.PortfolioSnapshot {
	out := *snapshot
	out.TotalInvestment = round(out.TotalInvestment)
	out.CurrentInvestment = round(out.CurrentInvestment)
	out.MarketValue = round(out.MarketValue)
	out.CurrentValue = round(out.CurrentValue)
	out.RealizedProfit = round(out.RealizedProfit)
	out.UnrealizedProfit = round(out.UnrealizedProfit)
	out.TotalProfit = round(out.TotalProfit)
	out.ProfitPercentage = round(out.ProfitPercentage)
	out.Positions = roundSummaries(out.Positions)
	return &out
}

func roundSummaries(summaries []models.TickerSummary) []models.TickerSummary {
	out := make([]models.TickerSummary, len(summaries))
	for i, summary := range summaries {
		summary.TotalInvestment = round(summary.TotalInvestment)
		summary.CurrentInvestment = round(summary.CurrentInvestment)
		summary.MarketValue = round(summary.MarketValue)
		summary.RealizedProfit = round(summary.RealizedProfit)
		summary.UnrealizedProfit = round(summary.UnrealizedProfit)
		summary.TotalProfit = round(summary.TotalProfit)
		out[i] = summary
	}
	return out
}

func roundBreakdown(entries []models.BreakdownEntry) []models.BreakdownEntry {
	out := make([]models.BreakdownEntry, len(entries))
	for i, entry := range entries {
		entry.Investment = round(entry.Investment)
		entry.CurrentValue = round(entry.CurrentValue)
		entry.Weight = round(entry.Weight)
		out[i] = entry
	}
	return out
}

func round(v float64) float64 {
	return utils.RoundFloat(v, displayPrecision)
}
