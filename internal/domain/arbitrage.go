package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel grades an opportunity by its gross profit size.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

var (
	lowRiskProfit    = decimal.NewFromInt(10)
	mediumRiskProfit = decimal.NewFromInt(5)
)

// RiskLevelOf grades a gross profit: >10 Low, >5 Medium, else High.
func RiskLevelOf(profit decimal.Decimal) RiskLevel {
	switch {
	case profit.GreaterThan(lowRiskProfit):
		return RiskLow
	case profit.GreaterThan(mediumRiskProfit):
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ArbitrageOpportunity is a buy-low/sell-high venue pair within one tick.
type ArbitrageOpportunity struct {
	ID            string          `json:"id"`
	Pair          string          `json:"pair"`
	BuyVenue      string          `json:"buy_dex"`
	SellVenue     string          `json:"sell_dex"`
	BuyPrice      decimal.Decimal `json:"buy_price"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	GrossProfit   decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	GasEstimate   decimal.Decimal `json:"gas_estimate"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	Risk          RiskLevel       `json:"risk_level"`
	Timestamp     time.Time       `json:"timestamp"`
}

// ArbitrageSummary aggregates a scan result.
type ArbitrageSummary struct {
	Count             int             `json:"count"`
	TotalNetProfit    decimal.Decimal `json:"total_net_profit"`
	BestProfitPercent decimal.Decimal `json:"best_profit_percent"`
}
