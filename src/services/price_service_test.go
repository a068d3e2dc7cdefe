package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/store"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestStaticPriceService_ReturnsRequestedSubset(t *testing.T) {
	svc := NewStaticPriceService(map[string]float64{"acme": 130, "GLOB": 55})

	prices, err := svc.GetCurrentPrices([]string{"ACME", "MISSING"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"ACME": 130}, prices)
}

func TestStaticPriceService_CopiesTheSourceMap(t *testing.T) {
	source := map[string]float64{"ACME": 130}
	svc := NewStaticPriceService(source)
	source["ACME"] = 999

	prices, err := svc.GetCurrentPrices([]string{"ACME"})
	require.NoError(t, err)
	assert.Equal(t, 130.0, prices["ACME"])
}

func TestReferencePriceService_ReadsReferencePrices(t *testing.T) {
	tickers := store.NewMemoryTickerStore()
	require.NoError(t, tickers.PutTicker(models.TickerInfo{Ticker: "ACME", ReferencePrice: 132.5}))
	require.NoError(t, tickers.PutTicker(models.TickerInfo{Ticker: "GLOB", ReferencePrice: 0})) // unpriced row

	svc := NewReferencePriceService(tickers)
	prices, err := svc.GetCurrentPrices([]string{"ACME", "GLOB", "MISSING"})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"ACME": 132.5}, prices)
}

func TestNewPriceService_Factory(t *testing.T) {
	tickers := store.NewMemoryTickerStore()
	quoteCache := cache.New(time.Minute, time.Minute)

	svc, err := NewPriceService("reference", tickers, quoteCache)
	require.NoError(t, err)
	assert.NotNil(t, svc)

	svc, err = NewPriceService("static", tickers, quoteCache)
	require.NoError(t, err)
	assert.NotNil(t, svc)

	_, err = NewPriceService("bloomberg", tickers, quoteCache)
	assert.ErrorIs(t, err, ErrUnknownPriceProvider)
}

// yahooFixture wires a yahooPriceService against stub session and quote
// endpoints, counting quote requests so tests can observe cache hits and
// session retries.
type yahooFixture struct {
	svc           *yahooPriceService
	quoteRequests int
}

func newYahooFixture(t *testing.T, quoteHandler func(f *yahooFixture, w http.ResponseWriter, r *http.Request)) *yahooFixture {
	t.Helper()
	f := &yahooFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>"CrumbStore":{"crumb":"test-crumb"}</html>`)
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		f.quoteRequests++
		quoteHandler(f, w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	f.svc = &yahooPriceService{
		httpClient: server.Client(),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		quoteCache: cache.New(time.Minute, time.Minute),
		sessionURL: server.URL + "/session",
		quoteURL:   server.URL + "/v7/finance/quote?symbols=%s&crumb=%s",
	}
	require.NoError(t, f.svc.initializeSession())
	return f
}

func quoteJSON(symbol string, price float64) string {
	return fmt.Sprintf(`{"quoteResponse":{"result":[{"symbol":"%s","regularMarketPrice":%v,"currency":"USD"}],"error":null}}`, symbol, price)
}

func TestYahooPriceService_FetchesAndCachesQuotes(t *testing.T) {
	f := newYahooFixture(t, func(f *yahooFixture, w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-crumb", r.URL.Query().Get("crumb"))
		fmt.Fprint(w, quoteJSON(r.URL.Query().Get("symbols"), 130))
	})

	prices, err := f.svc.GetCurrentPrices([]string{"acme", "ACME"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"ACME": 130}, prices)
	assert.Equal(t, 1, f.quoteRequests) // duplicates collapse to one request

	// Second call is served from the quote cache.
	prices, err = f.svc.GetCurrentPrices([]string{"ACME"})
	require.NoError(t, err)
	assert.Equal(t, 130.0, prices["ACME"])
	assert.Equal(t, 1, f.quoteRequests)
}

func TestYahooPriceService_RetriesWithFreshSessionOnAuthFailure(t *testing.T) {
	f := newYahooFixture(t, func(f *yahooFixture, w http.ResponseWriter, r *http.Request) {
		if f.quoteRequests == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, quoteJSON(r.URL.Query().Get("symbols"), 42))
	})

	prices, err := f.svc.GetCurrentPrices([]string{"ACME"})
	require.NoError(t, err)
	assert.Equal(t, 42.0, prices["ACME"])
	assert.Equal(t, 2, f.quoteRequests)
}

func TestYahooPriceService_SkipsUnpriceableTickers(t *testing.T) {
	f := newYahooFixture(t, func(f *yahooFixture, w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbols")
		if symbol == "BAD" {
			fmt.Fprint(w, `{"quoteResponse":{"result":[],"error":null}}`)
			return
		}
		fmt.Fprint(w, quoteJSON(symbol, 7))
	})

	prices, err := f.svc.GetCurrentPrices([]string{"BAD", "GOOD"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"GOOD": 7}, prices)
}
