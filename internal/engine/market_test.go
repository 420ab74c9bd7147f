package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"dex_sim/internal/domain"
)

func newTestMarket(rng domain.Rand) *Market {
	return NewMarket(domain.DefaultPairs(), domain.DefaultVenues(), rng)
}

func TestMarket_BoundsHoldOverManyTicks(t *testing.T) {
	m := newTestMarket(NewRand(42))
	now := time.Unix(1700000000, 0)

	for _, pair := range m.Pairs() {
		prevMaturity := 0.0
		for i := 0; i < 2000; i++ {
			quotes, err := m.GenerateQuotes(pair.Symbol, now)
			if err != nil {
				t.Fatalf("tick %d: %v", i, err)
			}
			if len(quotes) != len(m.Venues()) {
				t.Fatalf("Expected %d quotes, got %d", len(m.Venues()), len(quotes))
			}

			s, _ := m.Get(pair.Symbol)
			if s.Maturity < prevMaturity || s.Maturity > 1 {
				t.Fatalf("tick %d: maturity %v after %v", i, s.Maturity, prevMaturity)
			}
			prevMaturity = s.Maturity

			if s.Trend < -1 || s.Trend > 1 || s.Momentum < -1 || s.Momentum > 1 {
				t.Fatalf("tick %d: trend %v momentum %v out of range", i, s.Trend, s.Momentum)
			}
			if s.Volatility < domain.InitialVolatility || s.Volatility > domain.MaxVolatility {
				t.Fatalf("tick %d: volatility %v out of range", i, s.Volatility)
			}

			lo, hi := s.Bounds()
			for venue, p := range s.LastQuote {
				if p < lo || p > hi {
					t.Fatalf("tick %d: %s price %v outside [%v, %v]", i, venue, p, lo, hi)
				}
			}
			for _, q := range quotes {
				if q.Bid.GreaterThan(q.Price) || q.Ask.LessThan(q.Price) {
					t.Fatalf("tick %d: %s bid/ask %s/%s straddle %s", i, q.Venue, q.Bid, q.Ask, q.Price)
				}
			}
		}
	}
}

func TestMarket_FirstQuoteIsDeterministicWithFlatRandomness(t *testing.T) {
	m := newTestMarket(&scriptedRand{})
	s, _ := m.Get("ETH/USDC")

	// GenerateQuotes without evolving: trend and momentum are zero.
	quotes := GenerateQuotes(s, m.Venues(), &scriptedRand{}, time.Unix(0, 0))

	want := map[string]string{
		"UniswapV3":   "2000",
		"SushiSwap":   "2002",
		"PancakeSwap": "2002",
		"1inch":       "2004",
	}
	for _, q := range quotes {
		if q.Price.String() != want[q.Venue] {
			t.Errorf("%s price = %s, want %s", q.Venue, q.Price, want[q.Venue])
		}
	}

	uni := quotes[0]
	if uni.Bid.String() != "1997.2" || uni.Ask.String() != "2002.8" || uni.Spread.String() != "5.6" {
		t.Errorf("UniswapV3 bid/ask/spread = %s/%s/%s, want 1997.2/2002.8/5.6", uni.Bid, uni.Ask, uni.Spread)
	}
	if uni.Liquidity != 0 {
		t.Errorf("Expected no liquidity at maturity 0, got %d", uni.Liquidity)
	}
	if uni.Volume24h < 999 || uni.Volume24h > 1000 {
		t.Errorf("Expected volatility-only volume ~1000, got %d", uni.Volume24h)
	}
}

func TestMarket_UnknownPairDoesNotMutate(t *testing.T) {
	m := newTestMarket(NewRand(7))
	now := time.Unix(1700000000, 0)
	for i := 0; i < 10; i++ {
		if _, err := m.GenerateQuotes("ETH/USDC", now); err != nil {
			t.Fatal(err)
		}
	}

	before := m.Snapshot()
	_, err := m.GenerateQuotes("DOGE/USDC", now)
	if !errors.Is(err, domain.ErrUnknownPair) {
		t.Fatalf("Expected ErrUnknownPair, got %v", err)
	}
	if !reflect.DeepEqual(before, m.Snapshot()) {
		t.Error("State changed after failed generation")
	}

	if _, err := m.Insights("DOGE/USDC"); !errors.Is(err, domain.ErrUnknownPair) {
		t.Errorf("Expected ErrUnknownPair from Insights, got %v", err)
	}
	if err := m.Reset("DOGE/USDC"); !errors.Is(err, domain.ErrUnknownPair) {
		t.Errorf("Expected ErrUnknownPair from Reset, got %v", err)
	}
}

func TestMarket_ResetThenRegenerate(t *testing.T) {
	m := newTestMarket(NewRand(99))
	now := time.Unix(1700000000, 0)
	for i := 0; i < 500; i++ {
		m.GenerateQuotes("LINK/USDC", now)
	}

	if err := m.Reset("LINK/USDC"); err != nil {
		t.Fatal(err)
	}
	s, _ := m.Get("LINK/USDC")
	if s.Maturity != 0 || s.Trend != 0 || s.Momentum != 0 || s.Volatility != 0.001 {
		t.Fatalf("Unexpected state after reset: %+v", s)
	}
	if len(s.LastQuote) != 0 {
		t.Fatal("Expected quotes cleared after reset")
	}

	if _, err := m.GenerateQuotes("LINK/USDC", now); err != nil {
		t.Fatal(err)
	}
	for venue, p := range s.LastQuote {
		if math.Abs(p/s.BasePrice-1) > 0.01 {
			t.Errorf("%s re-initialised at %v, too far from base %v", venue, p, s.BasePrice)
		}
	}
}

func TestMarket_ResetAllKeepsPairs(t *testing.T) {
	m := newTestMarket(NewRand(3))
	now := time.Unix(1700000000, 0)
	for _, p := range m.Pairs() {
		m.GenerateQuotes(p.Symbol, now)
	}

	m.ResetAll()
	m.ResetAll()

	for _, p := range m.Pairs() {
		s, err := m.Get(p.Symbol)
		if err != nil {
			t.Fatalf("pair %s removed by reset: %v", p.Symbol, err)
		}
		if s.Maturity != 0 || len(s.LastQuote) != 0 {
			t.Errorf("pair %s not reset: %+v", p.Symbol, s)
		}
	}
}

func TestMarket_InsightsIsPure(t *testing.T) {
	m := newTestMarket(NewRand(11))
	now := time.Unix(1700000000, 0)
	for i := 0; i < 301; i++ {
		m.GenerateQuotes("WBTC/ETH", now)
	}

	first, err := m.Insights("WBTC/ETH")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := m.Insights("WBTC/ETH")
	if first != second {
		t.Errorf("Insights changed without a tick: %+v vs %+v", first, second)
	}
	if first.MaturityPct != 60 {
		t.Errorf("Expected 60%% maturity after 301 ticks, got %d", first.MaturityPct)
	}
}
