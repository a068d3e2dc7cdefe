package processors

import (
	"sort"

	"github.com/username/trackfolio/src/models"
)

// Selectors for the supported breakdown dimensions.
func SelectSector(tx models.Transaction) string    { return tx.Sector }
func SelectBroker(tx models.Transaction) string    { return tx.Broker }
func SelectAssetType(tx models.Transaction) string { return tx.AssetType }
func SelectCompany(tx models.Transaction) string   { return tx.Company }
func SelectTicker(tx models.Transaction) string    { return tx.Ticker }

type breakdownProcessor struct{}

func NewBreakdownProcessor() BreakdownProcessor {
	return &breakdownProcessor{}
}

// Breakdown buckets transaction value by the label the selector yields.
// Transactions with an empty label are left out. Entries come back sorted by
// investment, largest first, ties by label.
func (p *breakdownProcessor) Breakdown(transactions []models.Transaction, prices map[string]float64, selector FieldSelector) []models.BreakdownEntry {
	type bucket struct {
		investment   float64
		currentValue float64
	}

	buckets := make(map[string]*bucket)
	var investedTotal float64

	for _, tx := range transactions {
		label := selector(tx)
		if label == "" {
			continue
		}
		qty := sanitizeAmount(tx.Quantity)
		price := sanitizeAmount(tx.Price)

		b := buckets[label]
		if b == nil {
			b = &bucket{}
			buckets[label] = b
		}

		if tx.OrderType == models.OrderBuy {
			b.investment += qty * price
			investedTotal += qty * price
		}
		// Same coarse value metric as the snapshot: every transacted position
		// at the live price, trade price when no quote exists.
		if live, ok := prices[tx.Ticker]; ok {
			b.currentValue += qty * live
		} else {
			b.currentValue += qty * price
		}
	}

	entries := make([]models.BreakdownEntry, 0, len(buckets))
	for label, b := range buckets {
		entry := models.BreakdownEntry{
			Label:        label,
			Investment:   b.investment,
			CurrentValue: b.currentValue,
		}
		if investedTotal != 0 {
			entry.Weight = b.investment / investedTotal * 100
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Investment != entries[j].Investment {
			return entries[i].Investment > entries[j].Investment
		}
		return entries[i].Label < entries[j].Label
	})
	return entries
}
