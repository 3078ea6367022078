package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is the immutable market context fetched once per debate
// run and shared by every persona prompt.
type MarketSnapshot struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Currency      string          `json:"currency"`
	Volume        int64           `json:"volume"`
	MarketCap     int64           `json:"market_cap,omitempty"`
	PERatio       float64         `json:"pe_ratio,omitempty"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// Candle is one OHLCV bar of historical data.
type Candle struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// History is a series of candles for one symbol.
type History struct {
	Symbol   string   `json:"symbol"`
	Period   string   `json:"period"`
	Interval string   `json:"interval"`
	Candles  []Candle `json:"candles"`
}
