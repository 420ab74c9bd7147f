package domain

import (
	"fmt"
	"strings"
)

// LiquidityTier grades how deep a venue's pools are.
// Thinner venues deviate more and quote wider spreads.
type LiquidityTier string

const (
	LiquidityHigh   LiquidityTier = "High"
	LiquidityMedium LiquidityTier = "Medium"
	LiquidityLow    LiquidityTier = "Low"
)

// PriceMultiplier is applied to every new price; >= 1.
func (t LiquidityTier) PriceMultiplier() float64 {
	switch t {
	case LiquidityHigh:
		return 1
	case LiquidityMedium:
		return 1.001
	default:
		return 1.002
	}
}

// SpreadFactor scales the base spread.
func (t LiquidityTier) SpreadFactor() float64 {
	switch t {
	case LiquidityHigh:
		return 0.8
	case LiquidityMedium:
		return 1.2
	default:
		return 1.8
	}
}

// DepthFactor scales the reported pool liquidity.
func (t LiquidityTier) DepthFactor() float64 {
	switch t {
	case LiquidityHigh:
		return 2
	case LiquidityMedium:
		return 1.5
	default:
		return 1
	}
}

// ParseLiquidityTier accepts High/Medium/Low in any case.
func ParseLiquidityTier(s string) (LiquidityTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return LiquidityHigh, nil
	case "medium":
		return LiquidityMedium, nil
	case "low":
		return LiquidityLow, nil
	}
	return "", fmt.Errorf("unknown liquidity tier %q", s)
}

// Venue is a synthetic DEX quoting prices.
type Venue struct {
	Name      string        `json:"name" yaml:"name"`
	Fee       float64       `json:"fee" yaml:"fee"`
	Liquidity LiquidityTier `json:"liquidity" yaml:"liquidity"`
	Color     string        `json:"color" yaml:"color"`
}

// TradingPair is a configured market.
type TradingPair struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	BaseToken  string  `json:"base_token" yaml:"base_token"`
	QuoteToken string  `json:"quote_token" yaml:"quote_token"`
	BasePrice  float64 `json:"base_price" yaml:"base_price"`
}

// DefaultVenues is the static venue list. Order matters: later venues lag.
func DefaultVenues() []Venue {
	return []Venue{
		{Name: "UniswapV3", Fee: 0.003, Liquidity: LiquidityHigh, Color: "#FF007A"},
		{Name: "SushiSwap", Fee: 0.003, Liquidity: LiquidityMedium, Color: "#0E4F99"},
		{Name: "PancakeSwap", Fee: 0.0025, Liquidity: LiquidityMedium, Color: "#1FC7D4"},
		{Name: "1inch", Fee: 0.002, Liquidity: LiquidityLow, Color: "#94A3B8"},
	}
}

// DefaultPairs is the static trading pair list.
func DefaultPairs() []TradingPair {
	return []TradingPair{
		{Symbol: "ETH/USDC", BaseToken: "ETH", QuoteToken: "USDC", BasePrice: 2000},
		{Symbol: "WBTC/ETH", BaseToken: "WBTC", QuoteToken: "ETH", BasePrice: 15.5},
		{Symbol: "UNI/ETH", BaseToken: "UNI", QuoteToken: "ETH", BasePrice: 0.003},
		{Symbol: "LINK/USDC", BaseToken: "LINK", QuoteToken: "USDC", BasePrice: 12.5},
	}
}
