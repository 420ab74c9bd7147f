package execution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dex_sim/internal/domain"

	"github.com/shopspring/decimal"
)

// PaperExecution fills arbitrage opportunities against in-memory balances.
// Both legs fill at the quoted prices; venue fees are charged in the quote token.
type PaperExecution struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	fees     map[string]decimal.Decimal
	executed map[string]bool
	fills    []domain.Fill
	ledger   domain.SessionLedger
	now      func() time.Time
}

// NewPaperExecution creates a paper account charging each venue's fee.
// ledger may be nil.
func NewPaperExecution(venues []domain.Venue, ledger domain.SessionLedger) *PaperExecution {
	fees := make(map[string]decimal.Decimal, len(venues))
	for _, v := range venues {
		fees[v.Name] = decimal.NewFromFloat(v.Fee)
	}
	return &PaperExecution{
		balances: make(map[string]decimal.Decimal),
		fees:     fees,
		executed: make(map[string]bool),
		ledger:   ledger,
		now:      time.Now,
	}
}

// Deposit credits amount of token.
func (p *PaperExecution) Deposit(token string, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[token] = p.balances[token].Add(amount)
}

// GetBalance returns the balance of token.
func (p *PaperExecution) GetBalance(token string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[token]
}

// GetFills returns every fill so far, oldest first.
func (p *PaperExecution) GetFills() []domain.Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Fill, len(p.fills))
	copy(out, p.fills)
	return out
}

// Execute buys size base tokens on the buy venue and sells them on the sell
// venue. Balances are untouched when the account cannot fund the buy leg.
func (p *PaperExecution) Execute(ctx context.Context, opp domain.ArbitrageOpportunity, size decimal.Decimal) (domain.ExecutionReport, error) {
	if !size.IsPositive() {
		return domain.ExecutionReport{}, fmt.Errorf("execute %s: size must be positive, got %s", opp.ID, size)
	}
	_, quote, ok := strings.Cut(opp.Pair, "/")
	if !ok {
		return domain.ExecutionReport{}, fmt.Errorf("execute %s: pair %q: %w", opp.ID, opp.Pair, domain.ErrUnknownPair)
	}
	buyFee, ok := p.fees[opp.BuyVenue]
	if !ok {
		return domain.ExecutionReport{}, fmt.Errorf("execute %s: %s: %w", opp.ID, opp.BuyVenue, domain.ErrUnknownVenue)
	}
	sellFee, ok := p.fees[opp.SellVenue]
	if !ok {
		return domain.ExecutionReport{}, fmt.Errorf("execute %s: %s: %w", opp.ID, opp.SellVenue, domain.ErrUnknownVenue)
	}

	cost := opp.BuyPrice.Mul(size)
	proceeds := opp.SellPrice.Mul(size)
	buyFeeAmt := cost.Mul(buyFee).Round(domain.PricePrecision)
	sellFeeAmt := proceeds.Mul(sellFee).Round(domain.PricePrecision)

	p.mu.Lock()
	if p.executed[opp.ID] {
		p.mu.Unlock()
		return domain.ExecutionReport{}, fmt.Errorf("execute %s: %w", opp.ID, domain.ErrAlreadyExecuted)
	}
	needed := cost.Add(buyFeeAmt)
	if p.balances[quote].LessThan(needed) {
		have := p.balances[quote]
		p.mu.Unlock()
		return domain.ExecutionReport{}, fmt.Errorf("execute %s: need %s %s, have %s: %w",
			opp.ID, needed, quote, have, domain.ErrInsufficientBalance)
	}

	now := p.now()
	buy := domain.Fill{Venue: opp.BuyVenue, Pair: opp.Pair, Side: domain.SideBuy, Qty: size, Price: opp.BuyPrice, Fee: buyFeeAmt, Timestamp: now}
	sell := domain.Fill{Venue: opp.SellVenue, Pair: opp.Pair, Side: domain.SideSell, Qty: size, Price: opp.SellPrice, Fee: sellFeeAmt, Timestamp: now}

	// Both legs settle together, so only the quote balance moves.
	p.balances[quote] = p.balances[quote].Sub(needed).Add(proceeds).Sub(sellFeeAmt)
	p.fills = append(p.fills, buy, sell)
	p.executed[opp.ID] = true
	p.mu.Unlock()

	fees := buyFeeAmt.Add(sellFeeAmt)
	report := domain.ExecutionReport{
		OpportunityID: opp.ID,
		Pair:          opp.Pair,
		Size:          size,
		BuyCost:       cost,
		SellProceeds:  proceeds,
		Fees:          fees,
		GasEstimate:   opp.GasEstimate,
		RealizedPnL:   proceeds.Sub(cost).Sub(fees),
		ExpectedNet:   opp.NetProfit.Mul(size),
		Fills:         []domain.Fill{buy, sell},
		Timestamp:     now,
	}

	slog.Info("Paper execution filled",
		slog.String("id", opp.ID),
		slog.String("pair", opp.Pair),
		slog.String("buy", opp.BuyVenue),
		slog.String("sell", opp.SellVenue),
		slog.String("pnl", report.RealizedPnL.String()),
	)

	if p.ledger != nil {
		if err := p.ledger.MarkExecuted(ctx, opp.ID); err != nil {
			slog.Warn("Failed to mark opportunity executed", slog.String("id", opp.ID), slog.Any("error", err))
		}
	}
	return report, nil
}
