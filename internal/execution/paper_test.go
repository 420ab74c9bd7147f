package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"dex_sim/internal/domain"

	"github.com/shopspring/decimal"
)

type markLedger struct {
	domain.SessionLedger
	marked []string
}

func (l *markLedger) MarkExecuted(_ context.Context, id string) error {
	l.marked = append(l.marked, id)
	return nil
}

func testOpportunity(id string) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:          id,
		Pair:        "ETH/USDC",
		BuyVenue:    "UniswapV3",
		SellVenue:   "1inch",
		BuyPrice:    decimal.NewFromInt(2000),
		SellPrice:   decimal.NewFromInt(2020),
		GrossProfit: decimal.NewFromInt(20),
		NetProfit:   decimal.NewFromInt(10),
		GasEstimate: decimal.NewFromInt(35),
	}
}

func newPaper(ledger domain.SessionLedger) *PaperExecution {
	p := NewPaperExecution(domain.DefaultVenues(), ledger)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	return p
}

func TestPaperExecution_RoundTrip(t *testing.T) {
	ledger := &markLedger{}
	paper := newPaper(ledger)

	// Setup: deposit 10000 USDC
	paper.Deposit("USDC", decimal.NewFromInt(10000))

	report, err := paper.Execute(context.Background(), testOpportunity("opp-1"), decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// cost 4000, buy fee 0.3% = 12; proceeds 4040, sell fee 0.2% = 8.08
	if !report.BuyCost.Equal(decimal.NewFromInt(4000)) || !report.SellProceeds.Equal(decimal.NewFromInt(4040)) {
		t.Errorf("Unexpected legs %v / %v", report.BuyCost, report.SellProceeds)
	}
	if !report.Fees.Equal(decimal.RequireFromString("20.08")) {
		t.Errorf("Expected fees 20.08, got %v", report.Fees)
	}
	if !report.RealizedPnL.Equal(decimal.RequireFromString("19.92")) {
		t.Errorf("Expected pnl 19.92, got %v", report.RealizedPnL)
	}
	if !report.ExpectedNet.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected net 20, got %v", report.ExpectedNet)
	}

	// Verify USDC balance (10000 + 19.92)
	if bal := paper.GetBalance("USDC"); !bal.Equal(decimal.RequireFromString("10019.92")) {
		t.Errorf("Expected 10019.92 USDC, got %v", bal)
	}
	if bal := paper.GetBalance("ETH"); !bal.IsZero() {
		t.Errorf("Expected flat ETH, got %v", bal)
	}

	// Verify fills
	fills := paper.GetFills()
	if len(fills) != 2 {
		t.Fatalf("Expected 2 fills, got %d", len(fills))
	}
	if fills[0].Side != domain.SideBuy || fills[1].Side != domain.SideSell {
		t.Errorf("Expected BUY then SELL, got %s %s", fills[0].Side, fills[1].Side)
	}
	if len(ledger.marked) != 1 || ledger.marked[0] != "opp-1" {
		t.Errorf("Expected ledger mark for opp-1, got %v", ledger.marked)
	}
}

func TestPaperExecution_InsufficientBalance(t *testing.T) {
	paper := newPaper(nil)

	// Setup: deposit only 100 USDC
	paper.Deposit("USDC", decimal.NewFromInt(100))

	_, err := paper.Execute(context.Background(), testOpportunity("opp-2"), decimal.NewFromInt(1))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}
	if bal := paper.GetBalance("USDC"); !bal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Balance should be untouched, got %v", bal)
	}
	if len(paper.GetFills()) != 0 {
		t.Error("Expected no fills")
	}
}

func TestPaperExecution_Rejects(t *testing.T) {
	paper := newPaper(nil)
	paper.Deposit("USDC", decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	if _, err := paper.Execute(ctx, testOpportunity("opp-3"), decimal.NewFromInt(1)); err != nil {
		t.Fatalf("First execute failed: %v", err)
	}
	if _, err := paper.Execute(ctx, testOpportunity("opp-3"), decimal.NewFromInt(1)); !errors.Is(err, domain.ErrAlreadyExecuted) {
		t.Errorf("Expected ErrAlreadyExecuted, got %v", err)
	}

	bad := testOpportunity("opp-4")
	bad.SellVenue = "CurveFi"
	if _, err := paper.Execute(ctx, bad, decimal.NewFromInt(1)); !errors.Is(err, domain.ErrUnknownVenue) {
		t.Errorf("Expected ErrUnknownVenue, got %v", err)
	}

	if _, err := paper.Execute(ctx, testOpportunity("opp-5"), decimal.Zero); err == nil {
		t.Error("Expected error for zero size")
	}
}

func TestPaperExecution_ImplementsInterface(t *testing.T) {
	var _ domain.Executor = (*PaperExecution)(nil)
}
