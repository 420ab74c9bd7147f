package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType is the kind of a synthetic pending transaction.
type TxType string

const (
	TxSwap            TxType = "swap"
	TxAddLiquidity    TxType = "add_liquidity"
	TxRemoveLiquidity TxType = "remove_liquidity"
)

// TxTypes lists the transaction kinds in selection order.
var TxTypes = [...]TxType{TxSwap, TxAddLiquidity, TxRemoveLiquidity}

// PendingTx is a synthetic mempool entry.
type PendingTx struct {
	ID              string              `json:"id"`
	Type            TxType              `json:"type"`
	Pair            string              `json:"pair"`
	Venue           string              `json:"dex"`
	Amount          decimal.Decimal     `json:"amount"`
	Price           decimal.Decimal     `json:"price"`
	GasPrice        int64               `json:"gas_price"`
	Timestamp       time.Time           `json:"timestamp"`
	MevOpportunity  bool                `json:"mev_opportunity"`
	PotentialProfit decimal.NullDecimal `json:"potential_profit"`
	Exploited       bool                `json:"exploited"`
}

// Exploitable reports whether a strategy may still target the tx.
func (t *PendingTx) Exploitable() bool {
	return t.MevOpportunity && !t.Exploited
}

// MevResult is the outcome of one strategy run against one pending tx.
type MevResult struct {
	ID        string          `json:"id"`
	Strategy  StrategyID      `json:"strategy"`
	TargetTx  string          `json:"target_tx"`
	Profit    decimal.Decimal `json:"profit"`
	GasUsed   int64           `json:"gas_used"`
	GasPrice  int64           `json:"gas_price"`
	Success   bool            `json:"success"`
	Timestamp time.Time       `json:"timestamp"`
	Steps     []string        `json:"steps,omitempty"`
}

// StrategyID names an MEV strategy.
type StrategyID string

const (
	StrategySandwich     StrategyID = "SANDWICH"
	StrategyFrontrunning StrategyID = "FRONTRUNNING"
	StrategyArbitrage    StrategyID = "ARBITRAGE"
)

// MevStats summarises a result log.
type MevStats struct {
	Results           int             `json:"results"`
	Successful        int             `json:"successful"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	SuccessRatePct    decimal.Decimal `json:"success_rate"`
	OpenOpportunities int             `json:"open_opportunities"`
}
