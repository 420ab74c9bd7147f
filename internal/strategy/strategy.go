package strategy

import (
	"fmt"
	"strings"

	"dex_sim/internal/domain"
)

// DefaultProfitShare applies to strategies without a configured range.
const DefaultProfitShare = 0.5

// Definition describes an MEV strategy and how much of a target's
// potential profit it captures.
type Definition struct {
	ID            domain.StrategyID `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Steps         []string          `json:"steps"`
	RiskLevel     string            `json:"risk_level"`
	Profitability string            `json:"profitability"`

	// Captured share is uniform in [ShareMin, ShareMin+ShareSpan).
	ShareMin  float64 `json:"share_min"`
	ShareSpan float64 `json:"share_span"`
}

// ProfitShare draws the captured fraction of potential profit.
func (d Definition) ProfitShare(rng domain.Rand) float64 {
	return d.ShareMin + rng.Float64()*d.ShareSpan
}

var definitions = []Definition{
	{
		ID:          domain.StrategySandwich,
		Name:        "Sandwich Attack",
		Description: "Place trades before and after a large transaction to profit from price impact",
		Steps: []string{
			"Detect large pending transaction in mempool",
			"Place buy order with higher gas to execute first",
			"Target transaction executes at worse price",
			"Place sell order to capture profit",
		},
		RiskLevel:     "High",
		Profitability: "Medium-High",
		ShareMin:      0.3,
		ShareSpan:     0.4,
	},
	{
		ID:          domain.StrategyFrontrunning,
		Name:        "Front-running",
		Description: "Execute similar trades ahead of detected transactions",
		Steps: []string{
			"Monitor mempool for profitable transactions",
			"Copy transaction with higher gas fee",
			"Execute before original transaction",
			"Profit from first-mover advantage",
		},
		RiskLevel:     "Medium",
		Profitability: "Medium",
		ShareMin:      0.2,
		ShareSpan:     0.3,
	},
	{
		ID:          domain.StrategyArbitrage,
		Name:        "Cross-DEX Arbitrage",
		Description: "Exploit price differences between different exchanges",
		Steps: []string{
			"Monitor prices across multiple DEXs",
			"Identify profitable price discrepancies",
			"Execute simultaneous buy/sell orders",
			"Capture risk-free profit from price difference",
		},
		RiskLevel:     "Low",
		Profitability: "Low-Medium",
		ShareMin:      0.8,
		ShareSpan:     0.2,
	},
}

// All returns every strategy in display order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup finds a strategy by id.
func Lookup(id domain.StrategyID) (Definition, bool) {
	for _, d := range definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// Parse accepts a strategy id in any case.
func Parse(s string) (domain.StrategyID, error) {
	id := domain.StrategyID(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := Lookup(id); !ok {
		return "", fmt.Errorf("%q: %w", s, domain.ErrUnknownStrategy)
	}
	return id, nil
}

// ProfitShare draws the captured fraction for id. Unknown ids capture
// DefaultProfitShare.
func ProfitShare(id domain.StrategyID, rng domain.Rand) float64 {
	if d, ok := Lookup(id); ok {
		return d.ProfitShare(rng)
	}
	return DefaultProfitShare
}

// Steps returns the playbook for id, or nil.
func Steps(id domain.StrategyID) []string {
	if d, ok := Lookup(id); ok {
		return d.Steps
	}
	return nil
}
