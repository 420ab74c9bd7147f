package engine

import (
	"fmt"
	"time"

	"dex_sim/internal/domain"
)

// Step is the output of one market transition.
type Step struct {
	Quotes []domain.Quote
	Event  domain.MarketEvent
}

// Market is the market state store together with its transition function.
// It holds one MarketState per configured pair and is not safe for
// concurrent use: exactly one owner (normally the Sequencer) drives it.
type Market struct {
	pairs  []domain.TradingPair
	venues []domain.Venue
	states map[string]*domain.MarketState
	rng    domain.Rand
}

// NewMarket creates a store with one fresh state per pair.
func NewMarket(pairs []domain.TradingPair, venues []domain.Venue, rng domain.Rand) *Market {
	m := &Market{
		pairs:  pairs,
		venues: venues,
		states: make(map[string]*domain.MarketState, len(pairs)),
		rng:    rng,
	}
	for _, p := range pairs {
		m.states[p.Symbol] = domain.NewMarketState(p.Symbol, p.BasePrice)
	}
	return m
}

// Pairs returns the configured pairs in configuration order.
func (m *Market) Pairs() []domain.TradingPair {
	return m.pairs
}

// Venues returns the configured venues in quoting order.
func (m *Market) Venues() []domain.Venue {
	return m.venues
}

// Get returns the live state for pair.
func (m *Market) Get(pair string) (*domain.MarketState, error) {
	s, ok := m.states[pair]
	if !ok {
		return nil, fmt.Errorf("%q: %w", pair, domain.ErrUnknownPair)
	}
	return s, nil
}

// Reset restores pair to its initial values. The pair stays configured.
func (m *Market) Reset(pair string) error {
	s, err := m.Get(pair)
	if err != nil {
		return err
	}
	s.Reset()
	return nil
}

// ResetAll restores every pair to its initial values.
func (m *Market) ResetAll() {
	for _, s := range m.states {
		s.Reset()
	}
}

// Insights is a pure read of the pair's state.
func (m *Market) Insights(pair string) (domain.MarketInsights, error) {
	s, err := m.Get(pair)
	if err != nil {
		return domain.MarketInsights{}, err
	}
	return s.Insights(), nil
}

// Maturity implements domain.MaturitySource. Unknown pairs report 0.
func (m *Market) Maturity(pair string) float64 {
	if s, ok := m.states[pair]; ok {
		return s.Maturity
	}
	return 0
}

// Step evolves the pair's trend by one tick and quotes every venue.
// An unknown pair fails with domain.ErrUnknownPair before anything mutates.
func (m *Market) Step(pair string, now time.Time) (Step, error) {
	s, err := m.Get(pair)
	if err != nil {
		return Step{}, err
	}

	ev := EvolveTrend(s, m.rng)
	return Step{
		Quotes: GenerateQuotes(s, m.venues, m.rng, now),
		Event:  ev,
	}, nil
}

// GenerateQuotes is Step without the event detail.
func (m *Market) GenerateQuotes(pair string, now time.Time) ([]domain.Quote, error) {
	st, err := m.Step(pair, now)
	if err != nil {
		return nil, err
	}
	return st.Quotes, nil
}

// Snapshot deep-copies every state, keyed by pair.
func (m *Market) Snapshot() map[string]domain.MarketState {
	out := make(map[string]domain.MarketState, len(m.states))
	for k, s := range m.states {
		out[k] = s.Clone()
	}
	return out
}
