package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// MaturitySource reports how developed a pair's market currently is.
// The mempool generator uses it to size transactions and opportunities.
type MaturitySource interface {
	Maturity(pair string) float64
}

// BatchSink receives quote batches produced by the Sequencer.
type BatchSink interface {
	OnBatch(batch QuoteBatch)
}

// SessionLedger records derived results for the running session.
type SessionLedger interface {
	SaveMevResult(ctx context.Context, r MevResult) error
	SaveOpportunities(ctx context.Context, seq uint64, opps []ArbitrageOpportunity) error
	MarkExecuted(ctx context.Context, opportunityID string) error
	ClearMevResults(ctx context.Context) error
	// ClearOpportunities drops recorded opportunities for pair, or all when pair is empty.
	ClearOpportunities(ctx context.Context, pair string) error
}

// Rand is the random source used by every stochastic component.
// *math/rand/v2.Rand satisfies it; tests inject seeded or scripted sources.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Executor simulates acting on an arbitrage opportunity.
type Executor interface {
	Execute(ctx context.Context, opp ArbitrageOpportunity, size decimal.Decimal) (ExecutionReport, error)
}
