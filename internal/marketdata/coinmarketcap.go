package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"cryptobot/internal/model"
)

const (
	maxAttempts = 3
	baseDelay   = 2 * time.Second
)

// requestError marks a network or HTTP status failure; only these are retried.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// CoinMarketCapClient implements the Client interface for the CoinMarketCap quotes API.
type CoinMarketCapClient struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
	rec     Recorder
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewCoinMarketCapClient creates a new CoinMarketCapClient.
func NewCoinMarketCapClient(logger *slog.Logger, baseURL, apiKey string, timeout time.Duration, rec Recorder) *CoinMarketCapClient {
	if rec == nil {
		rec = noopRecorder{}
	}
	return &CoinMarketCapClient{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		rec:     rec,
		sleep:   sleepContext,
	}
}

func (c *CoinMarketCapClient) GetName() string {
	return "coinmarketcap"
}

// FetchPrices requests EUR and USD quotes for symbols. Request failures are retried
// up to three attempts with exponential backoff; symbols missing from either response
// or with unreadable prices are skipped.
func (c *CoinMarketCapClient) FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error) {
	c.logger.Info("Fetcher: fetching cryptocurrency prices", "symbols", len(symbols))

	var (
		eurBody, usdBody []byte
		lastErr          error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		eurBody, lastErr = c.fetchQuotes(ctx, symbols, model.CurrencyEUR)
		if lastErr == nil {
			usdBody, lastErr = c.fetchQuotes(ctx, symbols, model.CurrencyUSD)
		}
		if lastErr == nil {
			break
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var reqErr *requestError
		if !errors.As(lastErr, &reqErr) {
			return nil, lastErr
		}
		if attempt == maxAttempts {
			c.logger.Error("Fetcher: retries exhausted", "attempts", attempt, "error", lastErr)
			return nil, &model.FetchExhaustedError{Attempts: attempt, Err: reqErr.err}
		}

		delay := backoffDelay(attempt)
		c.rec.FetchRetry()
		c.logger.Warn("Fetcher: request failed, retrying",
			"attempt", attempt,
			"maxAttempts", maxAttempts,
			"delay", delay,
			"error", lastErr,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	eurData, err := quoteData(eurBody, model.CurrencyEUR)
	if err != nil {
		return nil, err
	}
	usdData, err := quoteData(usdBody, model.CurrencyUSD)
	if err != nil {
		return nil, err
	}

	snapshot := make(model.PriceSnapshot, len(symbols))
	for _, sym := range symbols {
		key := gjson.Escape(string(sym))
		eurSym, usdSym := eurData.Get(key), usdData.Get(key)
		if !eurSym.Exists() || !usdSym.Exists() {
			c.logger.Warn("Fetcher: symbol not found in API response", "symbol", sym)
			continue
		}

		eur, err := quotePrice(eurSym, model.CurrencyEUR)
		if err != nil {
			c.logger.Warn("Fetcher: error processing symbol", "symbol", sym, "error", err)
			continue
		}
		usd, err := quotePrice(usdSym, model.CurrencyUSD)
		if err != nil {
			c.logger.Warn("Fetcher: error processing symbol", "symbol", sym, "error", err)
			continue
		}

		snapshot[sym] = model.Quote{EUR: eur, USD: usd}
		c.logger.Info("Fetcher: fetched prices",
			"symbol", sym,
			"eur", eur.StringFixed(2),
			"usd", usd.StringFixed(2),
		)
	}

	if len(snapshot) == 0 {
		return nil, model.ErrNoPricesAvailable
	}
	return snapshot, nil
}

func (c *CoinMarketCapClient) fetchQuotes(ctx context.Context, symbols []model.Symbol, currency string) ([]byte, error) {
	endpoint, err := url.Parse(c.baseURL + "/v1/cryptocurrency/quotes/latest")
	if err != nil {
		return nil, err
	}

	names := make([]string, len(symbols))
	for i, sym := range symbols {
		names[i] = string(sym)
	}
	query := endpoint.Query()
	query.Set("symbol", strings.Join(names, ","))
	query.Set("convert", currency)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	c.rec.MarketDataRequest()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &requestError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &requestError{err: fmt.Errorf("coinmarketcap error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &requestError{err: err}
	}
	return body, nil
}

func quoteData(body []byte, currency string) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("parse %s quotes: invalid JSON", currency)
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsObject() {
		return gjson.Result{}, fmt.Errorf("parse %s quotes: missing data object", currency)
	}
	return data, nil
}

func quotePrice(symbolData gjson.Result, currency string) (decimal.Decimal, error) {
	price := symbolData.Get("quote." + currency + ".price")
	if price.Type != gjson.Number {
		return decimal.Decimal{}, fmt.Errorf("quote.%s.price missing or not a number", currency)
	}
	d, err := decimal.NewFromString(price.Raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("quote.%s.price is negative: %s", currency, d)
	}
	return d, nil
}

// backoffDelay returns 2s, 4s, 8s, ... for attempt 1, 2, 3, ...
func backoffDelay(attempt int) time.Duration {
	return baseDelay << (attempt - 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
