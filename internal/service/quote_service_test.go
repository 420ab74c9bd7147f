package service

import (
	"context"
	"testing"
	"time"

	"dex_sim/internal/domain"
	"dex_sim/internal/engine"

	"github.com/shopspring/decimal"
)

type scanCounter struct {
	scans, dropped int
}

func (c *scanCounter) RecordOpportunities(string, int) { c.scans++ }
func (c *scanCounter) RecordDroppedBatch()             { c.dropped++ }

func newTestQuoteService(ledger domain.SessionLedger, rec ScanRecorder) *QuoteService {
	return NewQuoteService(NewArbitrageScanner(engine.NewRand(2)), QuoteConfig{
		HistorySize: 5,
		Threshold:   dec("0.5"),
		Ledger:      ledger,
		Recorder:    rec,
	})
}

func arbBatch(seq uint64, pair string) domain.QuoteBatch {
	return batch(seq, pair,
		quote("A", "100.5", "100", "101"),
		quote("B", "102.5", "103", "102"),
	)
}

func TestQuoteService_ProcessBatch(t *testing.T) {
	ledger := newFakeLedger()
	rec := &scanCounter{}
	svc := newTestQuoteService(ledger, rec)

	var notified []uint64
	svc.Subscribe(func(b domain.QuoteBatch, opps []domain.ArbitrageOpportunity) {
		notified = append(notified, b.Seq)
	})

	opps := svc.ProcessBatch(context.Background(), arbBatch(1, "ETH/USDC"))
	if len(opps) != 1 {
		t.Fatalf("Expected 1 opportunity, got %d", len(opps))
	}

	latest, ok := svc.Latest("ETH/USDC")
	if !ok || latest.Seq != 1 {
		t.Errorf("Expected latest seq 1, got %d (%v)", latest.Seq, ok)
	}
	if got := svc.Opportunities("ETH/USDC"); len(got) != 1 || got[0].ID != opps[0].ID {
		t.Errorf("Stored opportunities mismatch: %v", got)
	}
	if len(ledger.opps[1]) != 1 {
		t.Errorf("Expected ledger to record seq 1, got %v", ledger.opps)
	}
	if rec.scans != 1 || len(notified) != 1 {
		t.Errorf("Expected one scan and notification, got %d/%d", rec.scans, len(notified))
	}
}

func TestQuoteService_HistoryBoundedAndClearedOnPairChange(t *testing.T) {
	svc := newTestQuoteService(nil, nil)
	ctx := context.Background()

	for i := uint64(1); i <= 7; i++ {
		svc.ProcessBatch(ctx, arbBatch(i, "ETH/USDC"))
	}
	hist := svc.History("ETH/USDC")
	if len(hist) != 5 || hist[0].Seq != 3 || hist[4].Seq != 7 {
		t.Fatalf("Unexpected history %v", hist)
	}

	svc.ProcessBatch(ctx, arbBatch(8, "WBTC/ETH"))
	svc.ProcessBatch(ctx, arbBatch(9, "ETH/USDC"))
	if hist := svc.History("ETH/USDC"); len(hist) != 1 || hist[0].Seq != 9 {
		t.Errorf("Expected history restarted after pair change, got %v", hist)
	}
}

func TestQuoteService_OnReset(t *testing.T) {
	ledger := newFakeLedger()
	svc := newTestQuoteService(ledger, nil)
	ctx := context.Background()

	svc.ProcessBatch(ctx, arbBatch(1, "ETH/USDC"))
	svc.ProcessBatch(ctx, arbBatch(2, "WBTC/ETH"))

	svc.OnReset("ETH/USDC")
	if _, ok := svc.Latest("ETH/USDC"); ok {
		t.Error("Expected ETH/USDC dropped")
	}
	if _, ok := svc.Latest("WBTC/ETH"); !ok {
		t.Error("Expected WBTC/ETH kept")
	}
	if len(svc.History("ETH/USDC")) != 0 || len(svc.Opportunities("ETH/USDC")) != 0 {
		t.Error("Expected ETH/USDC derived state cleared")
	}

	svc.OnReset("")
	if _, ok := svc.Latest("WBTC/ETH"); ok {
		t.Error("Expected everything dropped")
	}
	if len(ledger.clearedPairs) != 2 || ledger.clearedPairs[1] != "" {
		t.Errorf("Unexpected ledger clears %v", ledger.clearedPairs)
	}
}

func TestQuoteService_DashboardAndRescan(t *testing.T) {
	svc := newTestQuoteService(nil, nil)
	ctx := context.Background()

	if _, ok := svc.Dashboard("ETH/USDC"); ok {
		t.Error("Expected no dashboard before the first batch")
	}

	svc.ProcessBatch(ctx, batch(1, "ETH/USDC",
		quote("A", "100", "99", "101"),
		quote("B", "100", "99", "101"),
	))
	svc.ProcessBatch(ctx, arbBatch(2, "ETH/USDC"))

	d, ok := svc.Dashboard("ETH/USDC")
	if !ok {
		t.Fatal("Expected dashboard")
	}
	if d.BestBuy == nil || d.BestBuy.Venue != "A" || d.BestSell == nil || d.BestSell.Venue != "B" {
		t.Errorf("Unexpected best venues %+v / %+v", d.BestBuy, d.BestSell)
	}
	if !d.Changes["B"].Equal(dec("2.5")) {
		t.Errorf("Expected B +2.5%%, got %v", d.Changes["B"])
	}
	if d.Summary.Count != 1 || len(d.Opportunities) != 1 {
		t.Errorf("Unexpected summary %+v", d.Summary)
	}

	if opps := svc.Rescan("ETH/USDC", dec("5")); len(opps) != 0 {
		t.Errorf("Expected no opportunity above 5, got %d", len(opps))
	}
	if opps := svc.Rescan("UNI/ETH", decimal.Zero); opps != nil {
		t.Errorf("Expected nil for a pair without quotes, got %v", opps)
	}
	if len(svc.Opportunities("ETH/USDC")) != 1 {
		t.Error("Rescan must not replace the stored scan")
	}
}

func TestQuoteService_OnBatchDropsWhenFull(t *testing.T) {
	rec := &scanCounter{}
	svc := newTestQuoteService(nil, rec)

	for i := 0; i < batchBuffer+3; i++ {
		svc.OnBatch(arbBatch(uint64(i), "ETH/USDC"))
	}
	if rec.dropped != 3 {
		t.Errorf("Expected 3 dropped batches, got %d", rec.dropped)
	}
}

func waitForSeq(t *testing.T, svc *QuoteService, pair string, seq uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b, ok := svc.Latest(pair); ok && b.Seq == seq {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Batch %d was not processed", seq)
}

func TestQuoteService_BatchProcessor(t *testing.T) {
	ledger := newFakeLedger()
	svc := newTestQuoteService(ledger, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.RunBatchProcessor(ctx)
		close(done)
	}()

	svc.OnBatch(arbBatch(42, "ETH/USDC"))
	waitForSeq(t, svc, "ETH/USDC", 42)

	svc.GetBatchChan() <- arbBatch(43, "ETH/USDC")
	waitForSeq(t, svc, "ETH/USDC", 43)

	select {
	case <-done:
		t.Fatal("Processor returned before cancel")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Processor did not stop after cancel")
	}

	// Both batches are recorded before the processor returns.
	if len(ledger.opps) != 2 {
		t.Errorf("Expected 2 recorded batches, got %d", len(ledger.opps))
	}
}

func TestQuoteService_DuplicateBatchIgnored(t *testing.T) {
	ledger := newFakeLedger()
	svc := newTestQuoteService(ledger, nil)
	ctx := context.Background()

	first := svc.ProcessBatch(ctx, arbBatch(3, "ETH/USDC"))
	again := svc.ProcessBatch(ctx, arbBatch(3, "ETH/USDC"))
	svc.ProcessBatch(ctx, arbBatch(2, "ETH/USDC"))

	if len(svc.History("ETH/USDC")) != 1 {
		t.Errorf("Expected one history point, got %d", len(svc.History("ETH/USDC")))
	}
	if len(again) != 1 || again[0].ID != first[0].ID {
		t.Error("Expected the stored scan for a duplicate batch")
	}
	if len(ledger.opps) != 1 {
		t.Errorf("Expected one ledger write, got %d", len(ledger.opps))
	}
}
