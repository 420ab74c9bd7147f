package service

import (
	"context"
	"log/slog"
	"sync"

	"dex_sim/internal/domain"

	"github.com/shopspring/decimal"
)

// batchBuffer absorbs bursts from the sequencer without blocking its tick.
const batchBuffer = 256

// ScanRecorder receives per-scan metrics.
type ScanRecorder interface {
	RecordOpportunities(pair string, n int)
	RecordDroppedBatch()
}

// QuoteConfig configures a QuoteService.
type QuoteConfig struct {
	HistorySize int
	Threshold   decimal.Decimal
	Ledger      domain.SessionLedger
	Recorder    ScanRecorder
}

// Dashboard is the derived view of a pair's latest tick.
type Dashboard struct {
	Batch         domain.QuoteBatch             `json:"batch"`
	Spread        SpreadSummary                 `json:"spread"`
	BestBuy       *domain.Quote                 `json:"best_buy,omitempty"`
	BestSell      *domain.Quote                 `json:"best_sell,omitempty"`
	Low           decimal.Decimal               `json:"low"`
	High          decimal.Decimal               `json:"high"`
	TotalVolume   int64                         `json:"total_volume"`
	Changes       map[string]decimal.Decimal    `json:"changes"`
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
	Summary       domain.ArbitrageSummary       `json:"summary"`
}

// QuoteService keeps the latest batch, rolling history and arbitrage scan
// for every pair the sequencer has produced.
type QuoteService struct {
	mu            sync.RWMutex
	latest        map[string]domain.QuoteBatch
	history       map[string]*History
	opportunities map[string][]domain.ArbitrageOpportunity
	activePair    string
	historySize   int
	threshold     decimal.Decimal

	scanner   *ArbitrageScanner
	ledger    domain.SessionLedger
	recorder  ScanRecorder
	batchChan chan domain.QuoteBatch

	subMu     sync.RWMutex
	listeners []func(domain.QuoteBatch, []domain.ArbitrageOpportunity)
}

// NewQuoteService creates a QuoteService scanning with scanner.
func NewQuoteService(scanner *ArbitrageScanner, cfg QuoteConfig) *QuoteService {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	return &QuoteService{
		latest:        make(map[string]domain.QuoteBatch),
		history:       make(map[string]*History),
		opportunities: make(map[string][]domain.ArbitrageOpportunity),
		historySize:   cfg.HistorySize,
		threshold:     cfg.Threshold,
		scanner:       scanner,
		ledger:        cfg.Ledger,
		recorder:      cfg.Recorder,
		batchChan:     make(chan domain.QuoteBatch, batchBuffer),
	}
}

// Subscribe registers fn to receive every processed batch and its scan.
func (s *QuoteService) Subscribe(fn func(domain.QuoteBatch, []domain.ArbitrageOpportunity)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// OnBatch queues b for the processor. It never blocks the caller; when the
// queue is full the batch is dropped.
func (s *QuoteService) OnBatch(b domain.QuoteBatch) {
	select {
	case s.batchChan <- b:
	default:
		slog.Warn("Batch queue full, dropping batch", slog.String("pair", b.Pair), slog.Uint64("seq", b.Seq))
		if s.recorder != nil {
			s.recorder.RecordDroppedBatch()
		}
	}
}

// GetBatchChan returns the channel for incoming batches
func (s *QuoteService) GetBatchChan() chan domain.QuoteBatch {
	return s.batchChan
}

// RunBatchProcessor processes batches from the channel until ctx is done.
// It returns only after the batch in hand is fully recorded.
func (s *QuoteService) RunBatchProcessor(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-s.batchChan:
			s.ProcessBatch(ctx, b)
		}
	}
}

// ProcessBatch records b, scans it for arbitrage and notifies subscribers.
// A batch at or below the pair's latest seq was already processed; its
// stored scan is returned unchanged.
func (s *QuoteService) ProcessBatch(ctx context.Context, b domain.QuoteBatch) []domain.ArbitrageOpportunity {
	if s.seen(b) {
		return s.Opportunities(b.Pair)
	}
	opps := s.scanner.Scan(b.Quotes, s.Threshold())

	s.mu.Lock()
	if prev, ok := s.latest[b.Pair]; ok && b.Seq <= prev.Seq {
		s.mu.Unlock()
		return s.Opportunities(b.Pair)
	}
	if b.Pair != s.activePair {
		// A different pair took over the view; its old series is stale.
		if h, ok := s.history[b.Pair]; ok {
			h.Clear()
		}
		s.activePair = b.Pair
	}
	h, ok := s.history[b.Pair]
	if !ok {
		h = NewHistory(s.historySize)
		s.history[b.Pair] = h
	}
	h.Push(NewHistoryPoint(b))
	s.latest[b.Pair] = b
	s.opportunities[b.Pair] = opps
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordOpportunities(b.Pair, len(opps))
	}
	if s.ledger != nil && len(opps) > 0 {
		if err := s.ledger.SaveOpportunities(ctx, b.Seq, opps); err != nil {
			slog.Warn("Failed to record opportunities", slog.String("pair", b.Pair), slog.Any("error", err))
		}
	}

	s.subMu.RLock()
	for _, fn := range s.listeners {
		fn(b, opps)
	}
	s.subMu.RUnlock()
	return opps
}

func (s *QuoteService) seen(b domain.QuoteBatch) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prev, ok := s.latest[b.Pair]
	return ok && b.Seq <= prev.Seq
}

// OnReset drops everything derived from pair, or from all pairs when pair is empty.
func (s *QuoteService) OnReset(pair string) {
	s.mu.Lock()
	if pair == "" {
		clear(s.latest)
		clear(s.opportunities)
		for _, h := range s.history {
			h.Clear()
		}
	} else {
		delete(s.latest, pair)
		delete(s.opportunities, pair)
		if h, ok := s.history[pair]; ok {
			h.Clear()
		}
	}
	s.mu.Unlock()

	if s.ledger != nil {
		if err := s.ledger.ClearOpportunities(context.Background(), pair); err != nil {
			slog.Warn("Failed to clear opportunities", slog.String("pair", pair), slog.Any("error", err))
		}
	}
}

// Latest returns the most recent batch for pair.
func (s *QuoteService) Latest(pair string) (domain.QuoteBatch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.latest[pair]
	return b, ok
}

// History returns pair's history points oldest first.
func (s *QuoteService) History(pair string) []HistoryPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[pair]
	if !ok {
		return nil
	}
	return h.Points()
}

// Opportunities returns the scan of pair's latest batch, best first.
func (s *QuoteService) Opportunities(pair string) []domain.ArbitrageOpportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opps := s.opportunities[pair]
	out := make([]domain.ArbitrageOpportunity, len(opps))
	copy(out, opps)
	return out
}

// Rescan scans pair's latest batch with a caller-supplied threshold.
// The stored scan is left untouched.
func (s *QuoteService) Rescan(pair string, threshold decimal.Decimal) []domain.ArbitrageOpportunity {
	b, ok := s.Latest(pair)
	if !ok {
		return nil
	}
	return s.scanner.Scan(b.Quotes, threshold)
}

// SetThreshold updates the minimum gross profit for subsequent scans.
func (s *QuoteService) SetThreshold(t decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = t
}

// Threshold returns the current minimum gross profit.
func (s *QuoteService) Threshold() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// Dashboard derives the summary view of pair's latest batch.
func (s *QuoteService) Dashboard(pair string) (Dashboard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.latest[pair]
	if !ok {
		return Dashboard{}, false
	}

	opps := make([]domain.ArbitrageOpportunity, len(s.opportunities[pair]))
	copy(opps, s.opportunities[pair])

	d := Dashboard{
		Batch:         b,
		Spread:        SpreadStats(b.Quotes),
		TotalVolume:   TotalVolume(b.Quotes),
		Changes:       map[string]decimal.Decimal{},
		Opportunities: opps,
		Summary:       Summarize(opps),
	}
	d.Low, d.High = PriceRange(b.Quotes)
	if q, ok := BestBuy(b.Quotes); ok {
		d.BestBuy = &q
	}
	if q, ok := BestSell(b.Quotes); ok {
		d.BestSell = &q
	}
	if h, ok := s.history[pair]; ok {
		if prev, ok := h.At(1); ok {
			d.Changes = PriceChanges(b.Quotes, prev)
		}
	}
	return d, true
}
