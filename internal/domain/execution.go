package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a simulated fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Fill is one leg of a simulated arbitrage execution.
type Fill struct {
	Venue     string          `json:"dex"`
	Pair      string          `json:"pair"`
	Side      Side            `json:"side"`
	Qty       decimal.Decimal `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Fee       decimal.Decimal `json:"fee"`
	Timestamp time.Time       `json:"timestamp"`
}

// ExecutionReport describes a simulated round trip. Nothing is sent anywhere.
type ExecutionReport struct {
	OpportunityID string          `json:"opportunity_id"`
	Pair          string          `json:"pair"`
	Size          decimal.Decimal `json:"size"`
	BuyCost       decimal.Decimal `json:"buy_cost"`
	SellProceeds  decimal.Decimal `json:"sell_proceeds"`
	Fees          decimal.Decimal `json:"fees"`
	GasEstimate   decimal.Decimal `json:"gas_estimate"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	ExpectedNet   decimal.Decimal `json:"expected_net"`
	Fills         []Fill          `json:"fills"`
	Timestamp     time.Time       `json:"timestamp"`
}
