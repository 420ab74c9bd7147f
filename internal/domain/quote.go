package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal places kept on quoted prices.
const PricePrecision = 6

// Quote is one venue's synthetic price for one tick.
type Quote struct {
	Venue     string          `json:"dex"`
	Pair      string          `json:"pair"`
	Price     decimal.Decimal `json:"price"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Spread    decimal.Decimal `json:"spread"`
	Volume24h int64           `json:"volume24h"`
	Liquidity int64           `json:"liquidity"`
	Fee       decimal.Decimal `json:"fee"`
	Color     string          `json:"color"`
	Timestamp time.Time       `json:"timestamp"`

	// Market context at generation time
	Maturity float64 `json:"market_maturity"`
	Trend    float64 `json:"trend"`
}

// QuoteBatch is everything produced by one tick for one pair.
type QuoteBatch struct {
	Seq       uint64         `json:"seq"`
	Pair      string         `json:"pair"`
	Quotes    []Quote        `json:"quotes"`
	Insights  MarketInsights `json:"insights"`
	Event     string         `json:"event,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RoundPrice converts a float price to a display decimal.
func RoundPrice(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(PricePrecision)
}
