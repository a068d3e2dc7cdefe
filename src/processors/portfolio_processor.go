package processors

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/username/trackfolio/src/models"
)

// NegativePositionError reports a SELL that exceeded the held lots for a
// ticker during a strict run.
type NegativePositionError struct {
	Ticker string
	Date   time.Time
	Excess float64 // Units sold beyond the held quantity
}

func (e *NegativePositionError) Error() string {
	return fmt.Sprintf("negative position for %s on %s: %v units sold beyond held lots",
		e.Ticker, e.Date.Format("2006-01-02"), e.Excess)
}

type portfolioProcessor struct{}

func NewPortfolioProcessor() PortfolioProcessor {
	return &portfolioProcessor{}
}

func (p *portfolioProcessor) Process(transactions []models.Transaction, prices map[string]float64) *models.PortfolioSnapshot {
	snapshot, _ := p.run(transactions, prices, false)
	return snapshot
}

func (p *portfolioProcessor) ProcessStrict(transactions []models.Transaction, prices map[string]float64) (*models.PortfolioSnapshot, error) {
	return p.run(transactions, prices, true)
}

// tickerState is the per-ticker working state of one replay: the open lot
// queue plus the running figures.
type tickerState struct {
	lots            []*models.Lot
	totalInvestment float64
	realizedProfit  float64
}

func (p *portfolioProcessor) run(transactions []models.Transaction, prices map[string]float64, strict bool) (*models.PortfolioSnapshot, error) {
	ordered := sortTransactionsByDate(transactions)

	states := make(map[string]*tickerState)
	var currentValue float64

	for _, tx := range ordered {
		if tx.Ticker == "" {
			continue
		}
		qty := sanitizeAmount(tx.Quantity)
		price := sanitizeAmount(tx.Price)

		// Gross transacted value at the live price, falling back to the
		// recorded trade price when the ticker has no quote. Counts both
		// sides; it never nets BUY against SELL.
		if live, ok := prices[tx.Ticker]; ok {
			currentValue += qty * live
		} else {
			currentValue += qty * price
		}

		state := states[tx.Ticker]
		if state == nil {
			state = &tickerState{}
			states[tx.Ticker] = state
		}

		switch tx.OrderType {
		case models.OrderBuy:
			state.lots = append(state.lots, &models.Lot{Quantity: qty, Price: price})
			state.totalInvestment += qty * price
		case models.OrderSell:
			remaining := qty
			for remaining > 0 && len(state.lots) > 0 {
				lot := state.lots[0]
				matched := math.Min(remaining, lot.Quantity)

				state.realizedProfit += (price - lot.Price) * matched

				lot.Quantity -= matched
				remaining -= matched

				// Remove exhausted lots
				if lot.Quantity == 0 {
					state.lots = state.lots[1:]
				}
			}
			if remaining > 0 && strict {
				return nil, &NegativePositionError{Ticker: tx.Ticker, Date: tx.Date, Excess: remaining}
			}
			// Sold more than held: the excess creates no negative lot and no
			// realized profit, it is simply dropped.
		}
	}

	tickers := make([]string, 0, len(states))
	for ticker := range states {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	snapshot := &models.PortfolioSnapshot{
		CurrentValue: currentValue,
		Positions:    make([]models.TickerSummary, 0, len(tickers)),
	}

	for _, ticker := range tickers {
		state := states[ticker]
		currentPrice := prices[ticker] // missing tickers are valued at 0

		summary := models.TickerSummary{
			Ticker:          ticker,
			TotalInvestment: state.totalInvestment,
			CurrentPrice:    currentPrice,
			RealizedProfit:  state.realizedProfit,
			Lots:            make([]models.Lot, 0, len(state.lots)),
		}

		// Surviving lots are the current holding.
		for _, lot := range state.lots {
			if lot.Quantity <= 0 {
				continue
			}
			summary.CurrentInvestment += lot.Quantity * lot.Price
			summary.UnrealizedProfit += lot.Quantity * (currentPrice - lot.Price)
			summary.HeldQuantity += lot.Quantity
			summary.Lots = append(summary.Lots, *lot)
		}
		summary.MarketValue = summary.HeldQuantity * currentPrice
		summary.TotalProfit = summary.RealizedProfit + summary.UnrealizedProfit

		snapshot.TotalInvestment += summary.TotalInvestment
		snapshot.CurrentInvestment += summary.CurrentInvestment
		snapshot.MarketValue += summary.MarketValue
		snapshot.RealizedProfit += summary.RealizedProfit
		snapshot.UnrealizedProfit += summary.UnrealizedProfit
		snapshot.Positions = append(snapshot.Positions, summary)
	}

	snapshot.TotalProfit = snapshot.RealizedProfit + snapshot.UnrealizedProfit
	if snapshot.TotalInvestment != 0 {
		snapshot.ProfitPercentage = snapshot.TotalProfit / snapshot.TotalInvestment * 100
	}

	return snapshot, nil
}

// sortTransactionsByDate returns a date-ordered copy. The sort is stable, so
// same-date transactions keep their relative input order and the caller's
// slice is never reordered.
func sortTransactionsByDate(transactions []models.Transaction) []models.Transaction {
	ordered := make([]models.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})
	return ordered
}

// sanitizeAmount coerces unusable numeric input to 0: NaN, infinities and
// negative values all count as absent.
func sanitizeAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
