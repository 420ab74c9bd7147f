package service

import (
	"sort"
	"sync"

	"dex_sim/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxOpportunities caps a scan result.
const MaxOpportunities = 10

var hundred = decimal.NewFromInt(100)

// ArbitrageScanner finds cross-venue price gaps in one tick's quotes.
// Gas and execution costs are drawn from rng, so a scanner is safe for
// concurrent use only through its own lock.
type ArbitrageScanner struct {
	mu  sync.Mutex
	rng domain.Rand
}

// NewArbitrageScanner creates a scanner drawing costs from rng.
func NewArbitrageScanner(rng domain.Rand) *ArbitrageScanner {
	return &ArbitrageScanner{rng: rng}
}

// Scan checks every ordered venue pair (buy on one, sell on the other) and
// keeps gaps whose gross profit exceeds threshold, best first.
func (s *ArbitrageScanner) Scan(quotes []domain.Quote, threshold decimal.Decimal) []domain.ArbitrageOpportunity {
	if len(quotes) < 2 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var opps []domain.ArbitrageOpportunity
	for i := range quotes {
		for j := i + 1; j < len(quotes); j++ {
			if opp, ok := s.check(&quotes[i], &quotes[j], threshold); ok {
				opps = append(opps, opp)
			}
			if opp, ok := s.check(&quotes[j], &quotes[i], threshold); ok {
				opps = append(opps, opp)
			}
		}
	}

	sort.SliceStable(opps, func(a, b int) bool {
		return opps[a].GrossProfit.GreaterThan(opps[b].GrossProfit)
	})
	if len(opps) > MaxOpportunities {
		opps = opps[:MaxOpportunities]
	}
	return opps
}

// check evaluates buying at buy.Ask and selling at sell.Bid.
// Must be called with lock held
func (s *ArbitrageScanner) check(buy, sell *domain.Quote, threshold decimal.Decimal) (domain.ArbitrageOpportunity, bool) {
	profit := sell.Bid.Sub(buy.Ask)
	if !profit.GreaterThan(threshold) {
		return domain.ArbitrageOpportunity{}, false
	}

	gas := decimal.NewFromFloat(s.rng.Float64()*50 + 20).Round(2)
	cost := decimal.NewFromFloat(s.rng.Float64()*10 + 5)

	pct := decimal.Zero
	if !buy.Ask.IsZero() {
		pct = profit.Div(buy.Ask).Mul(hundred).Round(4)
	}

	return domain.ArbitrageOpportunity{
		ID:            uuid.NewString(),
		Pair:          buy.Pair,
		BuyVenue:      buy.Venue,
		SellVenue:     sell.Venue,
		BuyPrice:      buy.Ask,
		SellPrice:     sell.Bid,
		GrossProfit:   profit,
		ProfitPercent: pct,
		GasEstimate:   gas,
		NetProfit:     profit.Sub(cost).Round(domain.PricePrecision),
		Risk:          domain.RiskLevelOf(profit),
		Timestamp:     buy.Timestamp,
	}, true
}

// Summarize totals a scan result.
func Summarize(opps []domain.ArbitrageOpportunity) domain.ArbitrageSummary {
	sum := domain.ArbitrageSummary{
		Count:             len(opps),
		TotalNetProfit:    decimal.Zero,
		BestProfitPercent: decimal.Zero,
	}
	for i := range opps {
		sum.TotalNetProfit = sum.TotalNetProfit.Add(opps[i].NetProfit)
		if i == 0 || opps[i].ProfitPercent.GreaterThan(sum.BestProfitPercent) {
			sum.BestProfitPercent = opps[i].ProfitPercent
		}
	}
	return sum
}
