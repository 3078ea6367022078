// Package marketdata provides the read-only market context collaborator
// backed by Yahoo Finance.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	"github.com/investlens/lenscore/config"
	"github.com/investlens/lenscore/internal/models"
)

// ErrNotFound reports that the ticker resolved to no market data.
var ErrNotFound = errors.New("ticker not found")

var symbolRe = regexp.MustCompile(`^[A-Z0-9.\-=^]{1,12}$`)

// ValidateSymbol rejects obviously malformed tickers before any
// network round trip.
func ValidateSymbol(symbol string) error {
	if !symbolRe.MatchString(strings.ToUpper(strings.TrimSpace(symbol))) {
		return fmt.Errorf("invalid ticker symbol: %q", symbol)
	}
	return nil
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// YahooProvider fetches quotes and history from Yahoo Finance.
type YahooProvider struct {
	cache *memoryCache
}

func NewYahooProvider(cfg *config.Config) *YahooProvider {
	return &YahooProvider{
		cache: newMemoryCache(cfg.CacheTTL, cfg.CacheEnabled),
	}
}

// GetSnapshot fetches the latest quote for a ticker and normalizes it
// into the debate engine's snapshot shape.
func (p *YahooProvider) GetSnapshot(ctx context.Context, ticker string) (*models.MarketSnapshot, error) {
	if err := ValidateSymbol(ticker); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}
	symbol := NormalizeSymbol(ticker)

	if cached, ok := p.cache.get("snapshot:" + symbol); ok {
		snap := cached.(models.MarketSnapshot)
		return &snap, nil
	}

	q, err := equity.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	if q == nil || q.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	name := q.ShortName
	if name == "" {
		name = symbol
	}

	snap := models.MarketSnapshot{
		Symbol:        symbol,
		Name:          name,
		Price:         decimal.NewFromFloat(q.RegularMarketPrice).Round(2),
		Change:        decimal.NewFromFloat(q.RegularMarketChange).Round(2),
		ChangePercent: decimal.NewFromFloat(q.RegularMarketChangePercent).Round(2),
		Currency:      q.CurrencyID,
		Volume:        int64(q.RegularMarketVolume),
		MarketCap:     q.MarketCap,
		PERatio:       q.TrailingPE,
		FetchedAt:     time.Now(),
	}

	p.cache.set("snapshot:"+symbol, snap)
	return &snap, nil
}

// GetHistory fetches daily OHLCV candles for the given period
// ("1mo", "3mo", "6mo", "1y", "2y").
func (p *YahooProvider) GetHistory(ctx context.Context, ticker, period string) (*models.History, error) {
	if err := ValidateSymbol(ticker); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}
	symbol := NormalizeSymbol(ticker)

	cacheKey := fmt.Sprintf("history:%s:%s", symbol, period)
	if cached, ok := p.cache.get(cacheKey); ok {
		hist := cached.(models.History)
		return &hist, nil
	}

	end := time.Now()
	start := end.AddDate(0, -periodMonths(period), 0)

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	hist := models.History{Symbol: symbol, Period: period, Interval: "1d"}
	for iter.Next() {
		bar := iter.Bar()
		hist.Candles = append(hist.Candles, models.Candle{
			Date:   time.Unix(int64(bar.Timestamp), 0).Format("2006-01-02"),
			Open:   bar.Open.Round(2),
			High:   bar.High.Round(2),
			Low:    bar.Low.Round(2),
			Close:  bar.Close.Round(2),
			Volume: int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}
	if len(hist.Candles) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	p.cache.set(cacheKey, hist)
	return &hist, nil
}

func periodMonths(period string) int {
	switch strings.ToLower(period) {
	case "1mo":
		return 1
	case "3mo":
		return 3
	case "1y":
		return 12
	case "2y":
		return 24
	default: // 6mo
		return 6
	}
}
