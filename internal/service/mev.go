package service

import (
	"sync"
	"time"

	"dex_sim/internal/domain"
	"dex_sim/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxMevResults bounds the rolling result log.
const MaxMevResults = 10

const successProbability = 0.8

// MevScorer runs a strategy against the next exploitable pending tx.
type MevScorer struct {
	mu  sync.Mutex
	rng domain.Rand
}

// NewMevScorer creates a scorer drawing outcomes from rng.
func NewMevScorer(rng domain.Rand) *MevScorer {
	return &MevScorer{rng: rng}
}

// Score marks the first exploitable tx in pool as exploited and returns the
// outcome. It returns false when nothing in the pool can be targeted.
func (s *MevScorer) Score(id domain.StrategyID, pool *Mempool, now time.Time) (*domain.MevResult, bool) {
	target := pool.nextTarget()
	if target == nil {
		return nil, false
	}
	target.Exploited = true

	s.mu.Lock()
	defer s.mu.Unlock()

	potential := decimal.Zero
	if target.PotentialProfit.Valid {
		potential = target.PotentialProfit.Decimal
	}
	share := strategy.ProfitShare(id, s.rng)

	return &domain.MevResult{
		ID:        uuid.NewString(),
		Strategy:  id,
		TargetTx:  target.ID,
		Profit:    potential.Mul(decimal.NewFromFloat(share)).Round(domain.PricePrecision),
		GasUsed:   int64(s.rng.IntN(200000) + 100000),
		GasPrice:  target.GasPrice + int64(s.rng.IntN(50)+10),
		Success:   s.rng.Float64() < successProbability,
		Timestamp: now,
		Steps:     strategy.Steps(id),
	}, true
}

// ResultLog keeps the most recent MEV results, newest first.
type ResultLog struct {
	results []domain.MevResult
	limit   int
}

// NewResultLog creates a log holding at most limit results.
func NewResultLog(limit int) *ResultLog {
	if limit <= 0 {
		limit = MaxMevResults
	}
	return &ResultLog{limit: limit}
}

// Add prepends r, dropping the oldest result past the limit.
func (l *ResultLog) Add(r domain.MevResult) {
	l.results = append([]domain.MevResult{r}, l.results...)
	if len(l.results) > l.limit {
		l.results = l.results[:l.limit]
	}
}

// Results returns a copy of the log.
func (l *ResultLog) Results() []domain.MevResult {
	out := make([]domain.MevResult, len(l.results))
	copy(out, l.results)
	return out
}

// Clear empties the log.
func (l *ResultLog) Clear() {
	l.results = nil
}

// Stats sums profit over successful results and computes the success rate.
func (l *ResultLog) Stats() domain.MevStats {
	stats := domain.MevStats{
		Results:        len(l.results),
		TotalProfit:    decimal.Zero,
		SuccessRatePct: decimal.Zero,
	}
	for i := range l.results {
		if l.results[i].Success {
			stats.Successful++
			stats.TotalProfit = stats.TotalProfit.Add(l.results[i].Profit)
		}
	}
	if stats.Results > 0 {
		stats.SuccessRatePct = decimal.NewFromInt(int64(stats.Successful)).
			Div(decimal.NewFromInt(int64(stats.Results))).
			Mul(hundred).
			Round(1)
	}
	return stats
}
