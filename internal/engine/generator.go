package engine

import (
	"math"
	"time"

	"dex_sim/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	initialSpread        = 0.005 // first quote lands within ±0.25% of base
	trendWeight          = 0.001
	momentumWeight       = 0.0005
	lagPerVenue          = 0.1
	lagDamping           = 0.3
	laggedTrendWeight    = 0.0002
	spreadVolatilityRate = 0.5

	baseVolume       = 100_000
	volatilityVolume = 1_000_000
	randomVolume     = 0.5
	baseLiquidity    = 1_000_000
)

// GenerateQuotes produces one quote per venue from s and stores the new
// clamped price for each venue in s.LastQuote.
//
// Venue order matters: a venue's index sets how slowly it follows the trend.
// The caller is expected to have advanced s with EvolveTrend first.
func GenerateQuotes(s *domain.MarketState, venues []domain.Venue, rng domain.Rand, now time.Time) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(venues))

	for i, v := range venues {
		last, ok := s.LastQuote[v.Name]
		if !ok {
			last = s.BasePrice * (1 + (rng.Float64()-0.5)*initialSpread)
			s.LastQuote[v.Name] = last
		}

		trendInfluence := s.Trend * trendWeight * s.Maturity
		momentumInfluence := s.Momentum * momentumWeight
		randomWalk := (rng.Float64() - 0.5) * s.Volatility

		lag := float64(i) * lagPerVenue
		laggedTrend := s.Trend * (1 - lag*lagDamping)

		delta := trendInfluence + momentumInfluence + randomWalk + laggedTrend*laggedTrendWeight
		price := s.ClampPrice(last * (1 + delta) * v.Liquidity.PriceMultiplier())
		s.LastQuote[v.Name] = price

		spread := price * (v.Fee + s.Volatility*spreadVolatilityRate) * v.Liquidity.SpreadFactor()

		volumeBase := baseVolume * s.Maturity
		volume := volumeBase + s.Volatility*volatilityVolume + rng.Float64()*volumeBase*randomVolume
		liquidity := baseLiquidity * s.Maturity * v.Liquidity.DepthFactor()

		quotes = append(quotes, domain.Quote{
			Venue:     v.Name,
			Pair:      s.Pair,
			Price:     domain.RoundPrice(price),
			Bid:       domain.RoundPrice(price - spread/2),
			Ask:       domain.RoundPrice(price + spread/2),
			Spread:    domain.RoundPrice(spread),
			Volume24h: int64(math.Floor(volume)),
			Liquidity: int64(math.Floor(liquidity)),
			Fee:       decimal.NewFromFloat(v.Fee),
			Color:     v.Color,
			Timestamp: now,
			Maturity:  s.Maturity,
			Trend:     s.Trend,
		})
	}

	return quotes
}
