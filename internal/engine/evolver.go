package engine

import (
	"math"

	"dex_sim/internal/domain"
)

const (
	maturityStep           = 0.002
	maxTrendChangeChance   = 0.1
	trendChangePerTick     = 0.001
	regimeTrendRange       = 0.8 // new trend is uniform in [-0.4, 0.4]
	regimeMomentumShare    = 0.3
	trendDriftRange        = 0.1 // drift is uniform in [-0.05, 0.05]
	momentumTargetShare    = 0.5
	momentumBlend          = 0.1
	volatilityPerMaturity  = 0.01 // half of a 2% volatility band
	eventChancePerMaturity = 0.005
)

// EvolveTrend advances s by one tick and returns the market event that
// fired, or domain.EventNone.
//
// Order matters: maturity, duration, regime change or drift, volatility,
// then the optional event. Every step clamps what it touches.
func EvolveTrend(s *domain.MarketState, rng domain.Rand) domain.MarketEvent {
	s.Maturity = math.Min(1, s.Maturity+maturityStep)
	s.TrendDuration++

	changeChance := math.Min(maxTrendChangeChance, float64(s.TrendDuration)*trendChangePerTick)
	if rng.Float64() < changeChance {
		s.Trend = rng.Float64()*regimeTrendRange - regimeTrendRange/2
		s.TrendDuration = 0
		s.Momentum = s.Trend * regimeMomentumShare
	} else {
		drift := (rng.Float64() - 0.5) * trendDriftRange
		s.Trend = domain.Clamp(s.Trend+drift, -1, 1)

		target := s.Trend * momentumTargetShare
		s.Momentum += (target - s.Momentum) * momentumBlend
	}

	s.Volatility = domain.InitialVolatility + s.Maturity*volatilityPerMaturity

	if rng.Float64() < eventChancePerMaturity*s.Maturity {
		ev := domain.MarketEvents[rng.IntN(len(domain.MarketEvents))]
		ev.Apply(s)
		return ev
	}
	return domain.EventNone
}
