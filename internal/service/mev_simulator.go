package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dex_sim/internal/domain"
	"dex_sim/internal/engine"
	"dex_sim/internal/strategy"
)

// DefaultMevInterval is the pause between strategy runs.
const DefaultMevInterval = time.Second

// MevRecorder receives per-result metrics.
type MevRecorder interface {
	RecordMevResult(strategy string, success bool, profit float64)
}

// MevConfig configures a MevSimulator.
type MevConfig struct {
	PoolSize int
	Interval time.Duration
	Strategy domain.StrategyID
	Clock    engine.Clock
	Ledger   domain.SessionLedger
	Recorder MevRecorder
}

// MevView is a point-in-time copy of the simulator session.
type MevView struct {
	Running  bool               `json:"running"`
	Strategy domain.StrategyID  `json:"strategy"`
	Interval time.Duration      `json:"interval"`
	Pending  []domain.PendingTx `json:"pending"`
	Results  []domain.MevResult `json:"results"`
	Stats    domain.MevStats    `json:"stats"`
}

// MevSimulator is a timer-driven MEV session: it owns a synthetic mempool
// and runs the selected strategy against it while started.
type MevSimulator struct {
	mu       sync.Mutex
	gen      *MempoolGenerator
	scorer   *MevScorer
	log      *ResultLog
	pool     *Mempool
	strategy domain.StrategyID
	poolSize int
	interval time.Duration
	running  bool

	clock    engine.Clock
	ledger   domain.SessionLedger
	recorder MevRecorder

	subMu     sync.RWMutex
	listeners []func(MevView)
}

// NewMevSimulator creates a stopped session with a fresh pool.
func NewMevSimulator(gen *MempoolGenerator, scorer *MevScorer, cfg MevConfig) *MevSimulator {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultMevInterval
	}
	if cfg.Strategy == "" {
		cfg.Strategy = domain.StrategySandwich
	}
	if cfg.Clock == nil {
		cfg.Clock = engine.SystemClock{}
	}

	m := &MevSimulator{
		gen:      gen,
		scorer:   scorer,
		log:      NewResultLog(MaxMevResults),
		strategy: cfg.Strategy,
		poolSize: cfg.PoolSize,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		ledger:   cfg.Ledger,
		recorder: cfg.Recorder,
	}
	m.pool = gen.GeneratePool(m.poolSize, cfg.Clock.Now())
	return m
}

// Subscribe registers fn to receive the session view after each change.
func (m *MevSimulator) Subscribe(fn func(MevView)) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Run drives Step on every interval while the session is started.
func (m *MevSimulator) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("MEV simulator started", slog.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			slog.Info("MEV simulator stopped")
			return
		case <-ticker.C():
			if m.Running() {
				m.Step(ctx)
			}
		}
	}
}

// Step runs the selected strategy once.
func (m *MevSimulator) Step(ctx context.Context) (*domain.MevResult, bool) {
	m.mu.Lock()
	result, ok := m.scorer.Score(m.strategy, m.pool, m.clock.Now())
	if ok {
		m.log.Add(*result)
	}
	view := m.viewLocked()
	m.mu.Unlock()

	if !ok {
		return nil, false
	}

	slog.Debug("MEV_RESULT",
		slog.String("strategy", string(result.Strategy)),
		slog.String("target", result.TargetTx),
		slog.String("profit", result.Profit.String()),
		slog.Bool("success", result.Success),
	)
	if m.recorder != nil {
		m.recorder.RecordMevResult(string(result.Strategy), result.Success, result.Profit.InexactFloat64())
	}
	if m.ledger != nil {
		if err := m.ledger.SaveMevResult(ctx, *result); err != nil {
			slog.Warn("Failed to record MEV result", slog.Any("error", err))
		}
	}
	m.notify(view)
	return result, true
}

// Start begins scoring on the next interval.
func (m *MevSimulator) Start() {
	m.setRunning(true)
}

// Stop pauses scoring. Results and pool are kept.
func (m *MevSimulator) Stop() {
	m.setRunning(false)
}

func (m *MevSimulator) setRunning(running bool) {
	m.mu.Lock()
	m.running = running
	view := m.viewLocked()
	m.mu.Unlock()
	m.notify(view)
}

// Running reports whether the session is started.
func (m *MevSimulator) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Reset stops the session, clears results and draws a fresh pool.
func (m *MevSimulator) Reset(ctx context.Context) {
	m.mu.Lock()
	m.running = false
	m.log.Clear()
	m.pool = m.gen.GeneratePool(m.poolSize, m.clock.Now())
	view := m.viewLocked()
	m.mu.Unlock()

	if m.ledger != nil {
		if err := m.ledger.ClearMevResults(ctx); err != nil {
			slog.Warn("Failed to clear MEV results", slog.Any("error", err))
		}
	}
	m.notify(view)
}

// SetStrategy selects the strategy used by subsequent steps.
func (m *MevSimulator) SetStrategy(id domain.StrategyID) error {
	if _, ok := strategy.Lookup(id); !ok {
		return fmt.Errorf("set strategy %q: %w", id, domain.ErrUnknownStrategy)
	}
	m.mu.Lock()
	m.strategy = id
	view := m.viewLocked()
	m.mu.Unlock()
	m.notify(view)
	return nil
}

// Strategy returns the selected strategy.
func (m *MevSimulator) Strategy() domain.StrategyID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strategy
}

// View returns a copy of the session state.
func (m *MevSimulator) View() MevView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Must be called with lock held
func (m *MevSimulator) viewLocked() MevView {
	stats := m.log.Stats()
	stats.OpenOpportunities = m.pool.OpenOpportunities()
	return MevView{
		Running:  m.running,
		Strategy: m.strategy,
		Interval: m.interval,
		Pending:  m.pool.Transactions(),
		Results:  m.log.Results(),
		Stats:    stats,
	}
}

func (m *MevSimulator) notify(view MevView) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, fn := range m.listeners {
		fn(view)
	}
}
