package domain

// TrendDirection is the coarse reading of MarketState.Trend.
type TrendDirection string

const (
	TrendBullish  TrendDirection = "Bullish"
	TrendBearish  TrendDirection = "Bearish"
	TrendSideways TrendDirection = "Sideways"
)

// MarketPhase is the coarse reading of MarketState.Maturity.
type MarketPhase string

const (
	PhaseEarly   MarketPhase = "Early Development"
	PhaseGrowing MarketPhase = "Growing Market"
	PhaseMature  MarketPhase = "Mature Market"
)

// MarketInsights is a read-only projection of a MarketState.
type MarketInsights struct {
	Pair           string         `json:"pair"`
	MaturityPct    int            `json:"maturity"`
	TrendDirection TrendDirection `json:"trend_direction"`
	TrendStrength  float64        `json:"trend_strength"`
	Volatility     float64        `json:"volatility"`
	Phase          MarketPhase    `json:"phase"`
}

// TrendDirectionOf classifies a trend value. |trend| <= 0.1 is sideways.
func TrendDirectionOf(trend float64) TrendDirection {
	switch {
	case trend > 0.1:
		return TrendBullish
	case trend < -0.1:
		return TrendBearish
	default:
		return TrendSideways
	}
}

// MarketPhaseOf classifies a maturity value.
func MarketPhaseOf(maturity float64) MarketPhase {
	switch {
	case maturity < 0.3:
		return PhaseEarly
	case maturity < 0.7:
		return PhaseGrowing
	default:
		return PhaseMature
	}
}
