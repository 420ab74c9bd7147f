package infra

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordTick(t *testing.T) {
	m := NewMetrics()

	m.RecordTick("ETH/USDC", 1000)
	m.RecordTick("ETH/USDC", 2000)
	m.RecordTick("ETH/USDC", 3000)

	snap := m.Snapshot()

	if snap.TicksProcessed != 3 {
		t.Errorf("Expected 3 ticks, got %d", snap.TicksProcessed)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
	if n := testutil.CollectAndCount(m.tickLatency); n != 1 {
		t.Errorf("Expected one latency series, got %d", n)
	}
}

func TestMetrics_Connections(t *testing.T) {
	m := NewMetrics()

	m.IncrementConnections()
	m.IncrementConnections()
	m.IncrementConnections()

	snap := m.Snapshot()
	if snap.ActiveClients != 3 {
		t.Errorf("Expected 3 clients, got %d", snap.ActiveClients)
	}

	m.DecrementConnections()
	if got := testutil.ToFloat64(m.clients); got != 2 {
		t.Errorf("Expected gauge 2, got %v", got)
	}
}

func TestMetrics_Mev(t *testing.T) {
	m := NewMetrics()

	m.RecordMevResult("SANDWICH", true, 12.5)
	m.RecordMevResult("SANDWICH", false, 40)
	m.RecordMevResult("SANDWICH", true, 7.5)

	snap := m.Snapshot()
	if snap.MevResults != 3 || snap.MevSuccesses != 2 {
		t.Errorf("Unexpected MEV counts %d/%d", snap.MevResults, snap.MevSuccesses)
	}
	if got := testutil.ToFloat64(m.mevProfit.WithLabelValues("SANDWICH")); got != 20 {
		t.Errorf("Expected profit 20, got %v", got)
	}
	if got := testutil.ToFloat64(m.mevByStrategy.WithLabelValues("SANDWICH", "failed")); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
}

func TestMetrics_ScanAndErrors(t *testing.T) {
	m := NewMetrics()

	m.RecordOpportunities("ETH/USDC", 4)
	m.RecordOpportunities("ETH/USDC", 2)
	m.RecordDroppedBatch()
	m.RecordError()
	m.RecordMarketEvent("ETH/USDC", "whale_trade")

	snap := m.Snapshot()
	if snap.Opportunities != 6 || snap.DroppedBatches != 1 || snap.ErrorsTotal != 1 || snap.MarketEvents != 1 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	// The gauge tracks the latest scan only.
	if got := testutil.ToFloat64(m.oppsByPair.WithLabelValues("ETH/USDC")); got != 2 {
		t.Errorf("Expected gauge 2, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordTick("ETH/USDC", time.Millisecond)
	m.RecordCommand("pause")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{"dexsim_tick_duration_seconds", `dexsim_feed_commands_total{type="pause"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in exposition", want)
		}
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RecordError()
	if b.Snapshot().ErrorsTotal != 0 {
		t.Error("Metrics instances must not share state")
	}
}
