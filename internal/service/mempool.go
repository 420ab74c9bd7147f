package service

import (
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"dex_sim/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"
)

// DefaultPoolSize is the number of pending transactions in a fresh pool.
const DefaultPoolSize = 20

// Mempool is a synthetic set of pending transactions, newest first.
// It is not safe for concurrent use; MevSimulator guards it.
type Mempool struct {
	txs []domain.PendingTx
}

// NewMempool wraps txs as a pool. The slice is taken over, not copied.
func NewMempool(txs []domain.PendingTx) *Mempool {
	return &Mempool{txs: txs}
}

// Transactions returns a copy of the pool.
func (p *Mempool) Transactions() []domain.PendingTx {
	if p == nil {
		return nil
	}
	out := make([]domain.PendingTx, len(p.txs))
	copy(out, p.txs)
	return out
}

// Len returns the pool size.
func (p *Mempool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.txs)
}

// OpenOpportunities counts transactions a strategy may still target.
func (p *Mempool) OpenOpportunities() int {
	if p == nil {
		return 0
	}
	n := 0
	for i := range p.txs {
		if p.txs[i].Exploitable() {
			n++
		}
	}
	return n
}

// nextTarget returns the first exploitable transaction.
func (p *Mempool) nextTarget() *domain.PendingTx {
	if p == nil {
		return nil
	}
	for i := range p.txs {
		if p.txs[i].Exploitable() {
			return &p.txs[i]
		}
	}
	return nil
}

// MempoolGenerator builds synthetic pools whose size and opportunity rate
// grow with market maturity.
type MempoolGenerator struct {
	pairs    []domain.TradingPair
	venues   []domain.Venue
	maturity domain.MaturitySource
	rng      domain.Rand
}

// NewMempoolGenerator creates a generator. A nil maturity source treats
// every market as brand new.
func NewMempoolGenerator(pairs []domain.TradingPair, venues []domain.Venue, maturity domain.MaturitySource, rng domain.Rand) *MempoolGenerator {
	return &MempoolGenerator{pairs: pairs, venues: venues, maturity: maturity, rng: rng}
}

// GeneratePool draws count pending transactions relative to now.
func (g *MempoolGenerator) GeneratePool(count int, now time.Time) *Mempool {
	if count <= 0 || len(g.pairs) == 0 || len(g.venues) == 0 {
		return NewMempool(nil)
	}

	txs := make([]domain.PendingTx, 0, count)
	for i := 0; i < count; i++ {
		txs = append(txs, g.generateTx(i, now))
	}

	sort.SliceStable(txs, func(a, b int) bool {
		return txs[a].Timestamp.After(txs[b].Timestamp)
	})
	return NewMempool(txs)
}

func (g *MempoolGenerator) generateTx(i int, now time.Time) domain.PendingTx {
	pair := g.pairs[g.rng.IntN(len(g.pairs))]
	venue := g.venues[g.rng.IntN(len(g.venues))]
	txType := domain.TxTypes[g.rng.IntN(len(domain.TxTypes))]

	m := 0.0
	if g.maturity != nil {
		m = g.maturity.Maturity(pair.Symbol)
	}

	amount := (10 + m*1000) * (1 + g.rng.Float64())
	price := g.rng.Float64()*2000 + 1000
	gasPrice := int64(g.rng.Float64()*100 + 20)
	age := time.Duration(g.rng.Float64() * float64(time.Hour))
	opportunity := g.rng.Float64() > 0.9-m*0.2

	var potential decimal.NullDecimal
	if g.rng.Float64() > 0.7 {
		scale := m
		if scale == 0 {
			scale = 0.1
		}
		potential = decimal.NewNullDecimal(decimal.NewFromFloat(g.rng.Float64() * 500 * scale).Round(2))
	}

	ts := now.Add(-age)
	return domain.PendingTx{
		ID:              txHash(i, pair.Symbol, venue.Name, txType, amount, ts),
		Type:            txType,
		Pair:            pair.Symbol,
		Venue:           venue.Name,
		Amount:          decimal.NewFromFloat(amount).Round(4),
		Price:           decimal.NewFromFloat(price).Round(2),
		GasPrice:        gasPrice,
		Timestamp:       ts,
		MevOpportunity:  opportunity,
		PotentialProfit: potential,
	}
}

// txHash derives an EVM-style transaction id from the tx contents.
func txHash(i int, pair, venue string, txType domain.TxType, amount float64, ts time.Time) string {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "%d|%s|%s|%s|%.8f|%d", i, pair, venue, txType, amount, ts.UnixNano())
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
