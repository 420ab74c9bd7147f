package domain

import "math"

const (
	InitialVolatility = 0.001
	MaxVolatility     = 0.03

	baseDeviation     = 0.05
	maturityDeviation = 0.15
)

// MarketState holds the evolving synthetic state of a single trading pair.
// It is owned by exactly one goroutine (the Sequencer); it is not safe for
// concurrent use.
type MarketState struct {
	// Hot fields (read on every quote)
	Trend      float64 `json:"trend"`
	Momentum   float64 `json:"momentum"`
	Volatility float64 `json:"volatility"`
	Maturity   float64 `json:"maturity"`

	TrendDuration int                `json:"trend_duration"`
	LastQuote     map[string]float64 `json:"last_quote"`

	// Cold fields
	Pair      string  `json:"pair"`
	BasePrice float64 `json:"base_price"`
}

// NewMarketState creates a state anchored at basePrice with initial values.
func NewMarketState(pair string, basePrice float64) *MarketState {
	s := &MarketState{Pair: pair, BasePrice: basePrice}
	s.Reset()
	return s
}

// Reset restores the initial values. BasePrice and Pair are kept.
func (s *MarketState) Reset() {
	s.Trend = 0
	s.Momentum = 0
	s.Volatility = InitialVolatility
	s.Maturity = 0
	s.TrendDuration = 0
	s.LastQuote = make(map[string]float64)
}

// MaxDeviation is the allowed relative distance from BasePrice.
// It widens from 5% to 20% as the market matures.
func (s *MarketState) MaxDeviation() float64 {
	return baseDeviation + s.Maturity*maturityDeviation
}

// Bounds returns the price band quotes are clamped into.
func (s *MarketState) Bounds() (lo, hi float64) {
	dev := s.MaxDeviation()
	return s.BasePrice * (1 - dev), s.BasePrice * (1 + dev)
}

// ClampPrice clamps p into Bounds.
func (s *MarketState) ClampPrice(p float64) float64 {
	lo, hi := s.Bounds()
	return math.Max(lo, math.Min(hi, p))
}

// Clone returns a deep copy (used for external reads and state dumps).
func (s *MarketState) Clone() MarketState {
	c := *s
	c.LastQuote = make(map[string]float64, len(s.LastQuote))
	for k, v := range s.LastQuote {
		c.LastQuote[k] = v
	}
	return c
}

// Insights projects the state into the educational read model.
func (s *MarketState) Insights() MarketInsights {
	return MarketInsights{
		Pair:           s.Pair,
		MaturityPct:    int(math.Floor(s.Maturity * 100)),
		TrendDirection: TrendDirectionOf(s.Trend),
		TrendStrength:  math.Abs(s.Trend),
		Volatility:     s.Volatility,
		Phase:          MarketPhaseOf(s.Maturity),
	}
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
