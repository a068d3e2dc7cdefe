package store

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/trackfolio/src/database"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newSQLiteFixture(t *testing.T) (*SQLiteStore, *SQLiteTickerStore) {
	t.Helper()
	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { database.DB.Close() })
	return NewSQLiteStore(database.DB), NewSQLiteTickerStore(database.DB)
}

// The two transaction store implementations must be interchangeable; every
// contract test runs against both.
func forEachStore(t *testing.T, test func(t *testing.T, s TransactionStore)) {
	t.Run("memory", func(t *testing.T) {
		test(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, _ := newSQLiteFixture(t)
		test(t, s)
	})
}

func forEachTickerStore(t *testing.T, test func(t *testing.T, s TickerStore)) {
	t.Run("memory", func(t *testing.T) {
		test(t, NewMemoryTickerStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		_, s := newSQLiteFixture(t)
		test(t, s)
	})
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAppend_NormalizesAtTheBoundary(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TransactionStore) {
		stored, err := s.Append(models.Transaction{
			Date:      day("2024-03-01"),
			Ticker:    "  acme ",
			OrderType: "buy",
			Quantity:  10,
			Price:     100,
		})
		require.NoError(t, err)

		assert.Equal(t, "ACME", stored.Ticker)
		assert.Equal(t, models.OrderBuy, stored.OrderType)
		assert.NotZero(t, stored.ID)

		listed, err := s.List()
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "ACME", listed[0].Ticker)
	})
}

func TestAppend_RejectsBadRecords(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TransactionStore) {
		_, err := s.Append(models.Transaction{Ticker: "  ", OrderType: "BUY"})
		assert.ErrorIs(t, err, ErrEmptyTicker)

		_, err = s.Append(models.Transaction{Ticker: "ACME", OrderType: "HOLD"})
		assert.ErrorIs(t, err, ErrInvalidOrderType)
	})
}

func TestAppend_CoercesUnusableAmountsToZero(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TransactionStore) {
		stored, err := s.Append(models.Transaction{
			Date:      day("2024-03-01"),
			Ticker:    "ACME",
			OrderType: "SELL",
			Quantity:  math.NaN(),
			Price:     -5,
		})
		require.NoError(t, err)
		assert.Zero(t, stored.Quantity)
		assert.Zero(t, stored.Price)
	})
}

func TestList_OrdersByDateThenID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TransactionStore) {
		later, err := s.Append(models.Transaction{Date: day("2024-03-02"), Ticker: "B", OrderType: "BUY", Quantity: 1, Price: 1})
		require.NoError(t, err)
		earlier, err := s.Append(models.Transaction{Date: day("2024-03-01"), Ticker: "A", OrderType: "BUY", Quantity: 1, Price: 1})
		require.NoError(t, err)
		sameDay, err := s.Append(models.Transaction{Date: day("2024-03-02"), Ticker: "C", OrderType: "BUY", Quantity: 1, Price: 1})
		require.NoError(t, err)

		listed, err := s.List()
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, []int64{earlier.ID, later.ID, sameDay.ID},
			[]int64{listed[0].ID, listed[1].ID, listed[2].ID})
	})
}

func TestUpdate_ReplacesRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TransactionStore) {
		stored, err := s.Append(models.Transaction{Date: day("2024-03-01"), Ticker: "ACME", OrderType: "BUY", Quantity: 10, Price: 100})
		require.NoError(t, err)

		stored.Quantity = 20
		stored.Broker = "Degiro"
		require.NoError(t, s.Update(stored))

		listed, err := s.List()
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, 20.0, listed[0].Quantity)
		assert.Equal(t, "Degiro", listed[0].Broker)
	})
}

func TestUpdate_UnknownIDIsNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TransactionStore) {
		err := s.Update(models.Transaction{ID: 12345, Date: day("2024-03-01"), Ticker: "ACME", OrderType: "BUY"})
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestDelete_RemovesRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TransactionStore) {
		stored, err := s.Append(models.Transaction{Date: day("2024-03-01"), Ticker: "ACME", OrderType: "BUY", Quantity: 1, Price: 1})
		require.NoError(t, err)

		require.NoError(t, s.Delete(stored.ID))
		assert.ErrorIs(t, s.Delete(stored.ID), ErrTransactionNotFound)

		listed, err := s.List()
		require.NoError(t, err)
		assert.Empty(t, listed)
	})
}

func TestMemoryStore_IDsAreStrictlyIncreasing(t *testing.T) {
	s := NewMemoryStore()
	var previous int64
	for i := 0; i < 10; i++ {
		stored, err := s.Append(models.Transaction{Date: day("2024-03-01"), Ticker: "ACME", OrderType: "BUY", Quantity: 1, Price: 1})
		require.NoError(t, err)
		assert.Greater(t, stored.ID, previous)
		previous = stored.ID
	}
}

func TestMemoryStore_ListReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Append(models.Transaction{Date: day("2024-03-01"), Ticker: "ACME", OrderType: "BUY", Quantity: 10, Price: 100})
	require.NoError(t, err)

	listed, err := s.List()
	require.NoError(t, err)
	listed[0].Quantity = 999

	again, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, 10.0, again[0].Quantity)
}

func TestTickerStore_PutAndGet(t *testing.T) {
	forEachTickerStore(t, func(t *testing.T, s TickerStore) {
		require.NoError(t, s.PutTicker(models.TickerInfo{
			Ticker:         " acme ",
			Company:        "Acme Corp",
			Sector:         "Industrials",
			AssetType:      "Stock",
			ReferencePrice: 132.5,
		}))

		infos, err := s.GetTickers([]string{"ACME", "MISSING"})
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, "Acme Corp", infos["ACME"].Company)
		assert.Equal(t, 132.5, infos["ACME"].ReferencePrice)
	})
}

func TestTickerStore_PutUpserts(t *testing.T) {
	forEachTickerStore(t, func(t *testing.T, s TickerStore) {
		require.NoError(t, s.PutTicker(models.TickerInfo{Ticker: "ACME", ReferencePrice: 100}))
		require.NoError(t, s.PutTicker(models.TickerInfo{Ticker: "ACME", ReferencePrice: 110, Sector: "Industrials"}))

		infos, err := s.ListTickers()
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, 110.0, infos[0].ReferencePrice)
		assert.Equal(t, "Industrials", infos[0].Sector)
	})
}

func TestTickerStore_ListSortsByTicker(t *testing.T) {
	forEachTickerStore(t, func(t *testing.T, s TickerStore) {
		require.NoError(t, s.PutTicker(models.TickerInfo{Ticker: "ZZZ"}))
		require.NoError(t, s.PutTicker(models.TickerInfo{Ticker: "AAA"}))

		infos, err := s.ListTickers()
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, "AAA", infos[0].Ticker)
		assert.Equal(t, "ZZZ", infos[1].Ticker)
	})
}

func TestTickerStore_GetTickersEmptyInput(t *testing.T) {
	forEachTickerStore(t, func(t *testing.T, s TickerStore) {
		infos, err := s.GetTickers(nil)
		require.NoError(t, err)
		assert.Empty(t, infos)
	})
}
