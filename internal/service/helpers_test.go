package service

import (
	"context"
	"sync"
	"time"

	"dex_sim/internal/domain"

	"github.com/shopspring/decimal"
)

// fixedRand returns the same draw every time.
type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }
func (r fixedRand) IntN(n int) int     { return int(float64(r) * float64(n)) }

type fakeLedger struct {
	mu           sync.Mutex
	mev          []domain.MevResult
	opps         map[uint64][]domain.ArbitrageOpportunity
	executed     []string
	mevClears    int
	clearedPairs []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{opps: make(map[uint64][]domain.ArbitrageOpportunity)}
}

func (l *fakeLedger) SaveMevResult(_ context.Context, r domain.MevResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mev = append(l.mev, r)
	return nil
}

func (l *fakeLedger) SaveOpportunities(_ context.Context, seq uint64, opps []domain.ArbitrageOpportunity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opps[seq] = opps
	return nil
}

func (l *fakeLedger) MarkExecuted(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.executed = append(l.executed, id)
	return nil
}

func (l *fakeLedger) ClearMevResults(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mevClears++
	l.mev = nil
	return nil
}

func (l *fakeLedger) ClearOpportunities(_ context.Context, pair string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clearedPairs = append(l.clearedPairs, pair)
	return nil
}

var testTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quote(venue, price, bid, ask string) domain.Quote {
	p := dec(price)
	b, a := dec(bid), dec(ask)
	return domain.Quote{
		Venue:     venue,
		Pair:      "ETH/USDC",
		Price:     p,
		Bid:       b,
		Ask:       a,
		Spread:    a.Sub(b),
		Volume24h: 1000,
		Timestamp: testTime,
	}
}
