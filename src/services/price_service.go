package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/trackfolio/src/config"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/store"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// referencePriceService reads current prices from the ticker reference
// store. Tickers without a row, or with a non-positive reference price, are
// left out of the result.
type referencePriceService struct {
	tickerStore store.TickerStore
}

func NewReferencePriceService(tickerStore store.TickerStore) PriceService {
	return &referencePriceService{tickerStore: tickerStore}
}

func (s *referencePriceService) GetCurrentPrices(tickers []string) (map[string]float64, error) {
	infos, err := s.tickerStore.GetTickers(tickers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceLookupFailed, err)
	}

	prices := make(map[string]float64, len(infos))
	for ticker, info := range infos {
		if info.ReferencePrice > 0 {
			prices[ticker] = info.ReferencePrice
		}
	}
	return prices, nil
}

// staticPriceService serves a fixed price map; used for tests and offline
// runs. The map is copied both ways, callers never share state with it.
type staticPriceService struct {
	prices map[string]float64
}

func NewStaticPriceService(prices map[string]float64) PriceService {
	copied := make(map[string]float64, len(prices))
	for ticker, price := range prices {
		copied[store.NormalizeTicker(ticker)] = price
	}
	return &staticPriceService{prices: copied}
}

func (s *staticPriceService) GetCurrentPrices(tickers []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(tickers))
	for _, ticker := range tickers {
		normalized := store.NormalizeTicker(ticker)
		if price, ok := s.prices[normalized]; ok {
			prices[normalized] = price
		}
	}
	return prices, nil
}

// Structs for Yahoo Finance API responses
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			Currency           string  `json:"currency"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

const yahooUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

// yahooPriceService fetches live quotes from the Yahoo Finance v7 quote API.
// The API wants a session: cookies from an initial page visit plus a "crumb"
// scraped from it. Quote requests go through a rate limiter and a short-lived
// per-ticker cache; a ticker that cannot be priced is skipped, not an error.
type yahooPriceService struct {
	mu         sync.Mutex // guards crumb and session re-initialization
	httpClient *http.Client
	crumb      string
	limiter    *rate.Limiter
	quoteCache *cache.Cache

	// Overridable for tests.
	sessionURL string
	quoteURL   string // fmt pattern: symbol, crumb
}

func NewYahooPriceService(quoteCache *cache.Cache) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	timeout := 30 * time.Second
	requestsPerSecond := 4.0
	if config.Cfg != nil {
		timeout = config.Cfg.HTTPClientTimeout
		requestsPerSecond = config.Cfg.PriceRequestsPerSecond
	}

	s := &yahooPriceService{
		httpClient: &http.Client{Jar: jar, Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		quoteCache: quoteCache,
		sessionURL: "https://finance.yahoo.com/quote/VHYL.L",
		quoteURL:   "https://query2.finance.yahoo.com/v7/finance/quote?symbols=%s&crumb=%s",
	}

	if err := s.initializeSession(); err != nil {
		logger.L.Error("Failed to initialize Yahoo Finance session. Price fetching may fail.", "error", err)
	}
	return s
}

// initializeSession visits a Yahoo Finance page to collect cookies and the
// crumb. Must be called with the mutex held or before the service is shared.
func (s *yahooPriceService) initializeSession() error {
	logger.L.Info("Initializing Yahoo Finance session to get crumb and cookies...")
	req, err := http.NewRequest("GET", s.sessionURL, nil)
	if err != nil {
		return err
	}
	// A valid User-Agent is crucial.
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make initial request to Yahoo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Yahoo response body: %w", err)
	}

	re := regexp.MustCompile(`"CrumbStore":{"crumb":"(.*?)"}`)
	matches := re.FindStringSubmatch(string(body))
	if len(matches) < 2 {
		return fmt.Errorf("could not find crumb in Yahoo Finance response. The page structure may have changed")
	}

	s.crumb = matches[1]
	logger.L.Info("Successfully obtained Yahoo Finance crumb.")
	return nil
}

func (s *yahooPriceService) GetCurrentPrices(tickers []string) (map[string]float64, error) {
	prices := make(map[string]float64)

	seen := make(map[string]bool, len(tickers))
	for _, raw := range tickers {
		ticker := store.NormalizeTicker(raw)
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true

		if cached, found := s.quoteCache.Get(quoteCacheKey(ticker)); found {
			prices[ticker] = cached.(float64)
			continue
		}

		price, err := s.fetchQuote(ticker)
		if err != nil {
			logger.L.Warn("Yahoo fetch: could not get price", "ticker", ticker, "error", err)
			continue
		}

		s.quoteCache.Set(quoteCacheKey(ticker), price, cache.DefaultExpiration)
		prices[ticker] = price
	}
	return prices, nil
}

// fetchQuote calls the v7 quote endpoint. An expired session answers 401 or
// 403; one retry with a fresh session covers that.
func (s *yahooPriceService) fetchQuote(ticker string) (float64, error) {
	if err := s.limiter.Wait(context.Background()); err != nil {
		return 0, err
	}

	price, status, err := s.doQuoteRequest(ticker)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		logger.L.Warn("Yahoo session rejected, re-initializing", "ticker", ticker, "status", status)
		s.mu.Lock()
		initErr := s.initializeSession()
		s.mu.Unlock()
		if initErr != nil {
			return 0, fmt.Errorf("failed to re-initialize Yahoo session: %w", initErr)
		}
		price, _, err = s.doQuoteRequest(ticker)
	}
	return price, err
}

func (s *yahooPriceService) doQuoteRequest(ticker string) (float64, int, error) {
	s.mu.Lock()
	crumb := s.crumb
	s.mu.Unlock()

	quoteURL := fmt.Sprintf(s.quoteURL, ticker, crumb)
	req, err := http.NewRequest("GET", quoteURL, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to call Yahoo quote API for ticker %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return 0, resp.StatusCode, fmt.Errorf("yahoo quote API returned non-OK status %d for ticker %s. Body: %s", resp.StatusCode, ticker, string(bodyBytes))
	}

	var quoteData yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteData); err != nil {
		return 0, resp.StatusCode, fmt.Errorf("failed to decode Yahoo quote response for ticker %s: %w", ticker, err)
	}
	if quoteData.QuoteResponse.Error != nil || len(quoteData.QuoteResponse.Result) == 0 {
		return 0, resp.StatusCode, fmt.Errorf("yahoo quote API returned an error or no result for ticker %s", ticker)
	}

	return quoteData.QuoteResponse.Result[0].RegularMarketPrice, resp.StatusCode, nil
}

func quoteCacheKey(ticker string) string {
	return fmt.Sprintf(ckQuote, ticker)
}

// NewPriceService builds the price source named by provider: "reference"
// reads the ticker reference store, "static" serves an empty fixed map for
// fully offline runs, "yahoo" fetches live quotes.
func NewPriceService(provider string, tickerStore store.TickerStore, quoteCache *cache.Cache) (PriceService, error) {
	switch provider {
	case "reference":
		return NewReferencePriceService(tickerStore), nil
	case "static":
		return NewStaticPriceService(nil), nil
	case "yahoo":
		return NewYahooPriceService(quoteCache), nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: reference, static, yahoo)", ErrUnknownPriceProvider, provider)
	}
}
