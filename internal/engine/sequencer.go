package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"dex_sim/internal/domain"
	"dex_sim/internal/event"
)

// MinInterval is the fastest tick period the Sequencer accepts.
const MinInterval = 100 * time.Millisecond

// TickRecorder observes Sequencer activity. infra.Metrics implements it.
type TickRecorder interface {
	RecordTick(pair string, latency time.Duration)
	RecordMarketEvent(pair, kind string)
	RecordError()
}

// ResetListener is implemented by sinks that keep per-pair history.
// An empty pair means every pair was reset.
type ResetListener interface {
	OnReset(pair string)
}

// Config configures a Sequencer.
type Config struct {
	Pair     string
	Interval time.Duration
	Clock    Clock
	Recorder TickRecorder
}

// Sequencer is the single owner of all market state.
// Run drives it from a Clock; control arrives through the inbox.
type Sequencer struct {
	inbox    chan event.Event
	market   *Market
	clock    Clock
	recorder TickRecorder

	pair     string
	interval time.Duration
	paused   bool
	nextSeq  uint64

	sinks []domain.BatchSink

	mu sync.RWMutex // guards everything above against the synchronous API
}

// NewSequencer creates a new sequencer instance.
func NewSequencer(inboxSize int, market *Market, cfg Config) *Sequencer {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Interval < MinInterval {
		cfg.Interval = MinInterval
	}
	if cfg.Pair == "" && len(market.Pairs()) > 0 {
		cfg.Pair = market.Pairs()[0].Symbol
	}
	return &Sequencer{
		inbox:    make(chan event.Event, inboxSize),
		market:   market,
		clock:    cfg.Clock,
		recorder: cfg.Recorder,
		pair:     cfg.Pair,
		interval: cfg.Interval,
		nextSeq:  1,
	}
}

// Subscribe registers a sink for every batch. Call before Run.
func (s *Sequencer) Subscribe(sink domain.BatchSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Inbox returns the event channel. Control surfaces send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Run starts the main loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started", slog.String("pair", s.ActivePair()), slog.Duration("interval", s.Interval()))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	ticker := s.clock.NewTicker(s.Interval())
	defer func() { ticker.Stop() }()

	s.tickActive()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case <-ticker.C():
			if !s.isPaused() {
				s.tickActive()
			}
		case ev := <-s.inbox:
			if iv, ok := ev.(*event.SetIntervalEvent); ok {
				if !s.setInterval(iv.Interval) {
					continue
				}
				ticker.Stop()
				ticker = s.clock.NewTicker(s.Interval())
			}
			if s.processEvent(ev) {
				s.tickActive()
			}
		}
	}
}

// processEvent applies a control event and reports whether the active view
// should refresh immediately.
func (s *Sequencer) processEvent(ev event.Event) bool {
	switch e := ev.(type) {
	case *event.SelectPairEvent:
		return s.selectPair(e.Pair)
	case *event.ResetEvent:
		var err error
		if e.Pair == "" {
			s.ResetAll()
		} else {
			err = s.Reset(e.Pair)
		}
		if err != nil {
			slog.Warn("Reset rejected", slog.Any("error", err))
		}
		return false
	case *event.PauseEvent:
		s.setPaused(true)
		return false
	case *event.ResumeEvent:
		s.setPaused(false)
		return true
	case *event.SetIntervalEvent:
		return !s.isPaused()
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
		return false
	}
}

func (s *Sequencer) tickActive() {
	if _, err := s.GenerateQuotes(s.ActivePair(), s.clock.Now()); err != nil {
		slog.Error("Tick failed", slog.String("pair", s.ActivePair()), slog.Any("error", err))
	}
}

// GenerateQuotes advances pair by one tick and publishes the batch.
// An unknown pair fails with domain.ErrUnknownPair and mutates nothing.
func (s *Sequencer) GenerateQuotes(pair string, now time.Time) (domain.QuoteBatch, error) {
	start := time.Now()

	batch, sinks, err := s.step(pair, now)
	if err != nil {
		if s.recorder != nil {
			s.recorder.RecordError()
		}
		return domain.QuoteBatch{}, fmt.Errorf("generate quotes: %w", err)
	}

	if batch.Event != "" {
		slog.Info("MARKET_EVENT", slog.String("pair", pair), slog.String("event", batch.Event))
		if s.recorder != nil {
			s.recorder.RecordMarketEvent(pair, batch.Event)
		}
	}
	if s.recorder != nil {
		s.recorder.RecordTick(pair, time.Since(start))
	}

	// Sinks run outside the lock so they may read back through the API.
	for _, sink := range sinks {
		sink.OnBatch(batch)
	}
	return batch, nil
}

func (s *Sequencer) step(pair string, now time.Time) (domain.QuoteBatch, []domain.BatchSink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.market.Step(pair, now)
	if err != nil {
		return domain.QuoteBatch{}, nil, err
	}
	insights, _ := s.market.Insights(pair)

	batch := domain.QuoteBatch{
		Seq:       s.nextSeq,
		Pair:      pair,
		Quotes:    st.Quotes,
		Insights:  insights,
		Timestamp: now,
	}
	if st.Event != domain.EventNone {
		batch.Event = st.Event.String()
	}
	s.nextSeq++
	return batch, s.sinks, nil
}

// Reset restores one pair and notifies history-keeping sinks.
func (s *Sequencer) Reset(pair string) error {
	s.mu.Lock()
	err := s.market.Reset(pair)
	sinks := s.sinks
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	slog.Info("Market reset", slog.String("pair", pair))
	notifyReset(sinks, pair)
	return nil
}

// ResetAll restores every pair and notifies history-keeping sinks.
func (s *Sequencer) ResetAll() {
	s.mu.Lock()
	s.market.ResetAll()
	sinks := s.sinks
	s.mu.Unlock()
	slog.Info("Market reset", slog.String("pair", "all"))
	notifyReset(sinks, "")
}

func notifyReset(sinks []domain.BatchSink, pair string) {
	for _, sink := range sinks {
		if l, ok := sink.(ResetListener); ok {
			l.OnReset(pair)
		}
	}
}

// Insights returns the read projection of pair. It never mutates.
func (s *Sequencer) Insights(pair string) (domain.MarketInsights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market.Insights(pair)
}

// GetMarketState returns a snapshot of the market state (external read).
func (s *Sequencer) GetMarketState(pair string) (domain.MarketState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.market.Get(pair)
	if err != nil {
		return domain.MarketState{}, false
	}
	return state.Clone(), true
}

// Snapshot deep-copies every pair's state.
func (s *Sequencer) Snapshot() map[string]domain.MarketState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market.Snapshot()
}

// Maturity implements domain.MaturitySource.
func (s *Sequencer) Maturity(pair string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market.Maturity(pair)
}

// Pairs returns the configured pairs.
func (s *Sequencer) Pairs() []domain.TradingPair {
	return s.market.Pairs()
}

// Venues returns the configured venues.
func (s *Sequencer) Venues() []domain.Venue {
	return s.market.Venues()
}

// ActivePair returns the pair quoted on each tick.
func (s *Sequencer) ActivePair() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// Interval returns the current tick period.
func (s *Sequencer) Interval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interval
}

// Paused reports whether ticking is suspended.
func (s *Sequencer) Paused() bool {
	return s.isPaused()
}

func (s *Sequencer) selectPair(pair string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.market.Get(pair); err != nil {
		slog.Warn("Pair selection rejected", slog.Any("error", err))
		return false
	}
	if s.pair == pair {
		return false
	}
	s.pair = pair
	slog.Info("Active pair changed", slog.String("pair", pair))
	return !s.paused
}

func (s *Sequencer) setInterval(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < MinInterval {
		slog.Warn("Interval rejected", slog.Duration("interval", d))
		return false
	}
	s.interval = d
	return true
}

func (s *Sequencer) setPaused(p bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = p
}

func (s *Sequencer) isPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	s.mu.RLock()
	data := struct {
		NextSeq uint64                        `json:"next_seq"`
		Pair    string                        `json:"pair"`
		Markets map[string]domain.MarketState `json:"markets"`
	}{
		NextSeq: s.nextSeq,
		Pair:    s.pair,
		Markets: s.market.Snapshot(),
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
