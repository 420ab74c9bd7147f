package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"dex_sim/internal/domain"
	"dex_sim/internal/engine"
	"dex_sim/internal/execution"
	"dex_sim/internal/infra"
	"dex_sim/internal/infra/feed"
	"dex_sim/internal/infra/storage"
	"dex_sim/internal/service"

	"github.com/shopspring/decimal"
)

const (
	inboxSize       = 1024
	shutdownTimeout = 5 * time.Second
)

// Options tune startup from the command line.
type Options struct {
	ConfigPath string
	LogLevel   string // overrides logging.level when set
	Seed       uint64 // overrides simulation.seed when non-zero
}

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Metrics   *infra.Metrics
	Ledger    *storage.Ledger
	Sequencer *engine.Sequencer
	Quotes    *service.QuoteService
	Mev       *service.MevSimulator
	Paper     *execution.PaperExecution
	Charts    *infra.ChartRenderer
	Server    *feed.Server

	seedBase uint64
	seedNext uint64
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and wires every component. Nothing runs
// until Run is called.
func (b *Bootstrap) Initialize(opts Options) error {
	slog.Info("🚀 Bootstrapping DEX simulator...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(opts.ConfigPath)
	if errors.Is(err, domain.ErrConfigNotFound) {
		slog.Warn("Config file not found, using defaults", slog.String("path", opts.ConfigPath))
		cfg = infra.DefaultConfig()
	} else if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Seed != 0 {
		cfg.Simulation.Seed = opts.Seed
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))

	// 3. Metrics & session ledger
	b.Metrics = infra.NewMetrics()
	ledger, err := storage.NewLedger()
	if err != nil {
		return fmt.Errorf("session ledger: %w", err)
	}
	b.Ledger = ledger
	slog.Info("✅ Session ledger initialized")

	// 4. Market & Sequencer
	b.seedBase = cfg.Simulation.Seed
	if b.seedBase == 0 {
		b.seedBase = uint64(time.Now().UnixNano())
	}
	market := engine.NewMarket(cfg.Simulation.Pairs, cfg.Simulation.Venues, b.rng())
	b.Sequencer = engine.NewSequencer(inboxSize, market, engine.Config{
		Pair:     cfg.Simulation.DefaultPair,
		Interval: cfg.TickInterval(),
		Recorder: b.Metrics,
	})

	// 5. Quote analytics
	b.Quotes = service.NewQuoteService(service.NewArbitrageScanner(b.rng()), service.QuoteConfig{
		HistorySize: cfg.Simulation.HistorySize,
		Threshold:   cfg.Arbitrage.MinProfit,
		Ledger:      ledger,
		Recorder:    b.Metrics,
	})
	b.Sequencer.Subscribe(b.Quotes)

	// 6. MEV session
	gen := service.NewMempoolGenerator(cfg.Simulation.Pairs, cfg.Simulation.Venues, b.Sequencer, b.rng())
	b.Mev = service.NewMevSimulator(gen, service.NewMevScorer(b.rng()), service.MevConfig{
		PoolSize: cfg.MEV.PoolSize,
		Interval: cfg.MEVInterval(),
		Strategy: domain.StrategyID(cfg.MEV.DefaultStrategy),
		Ledger:   ledger,
		Recorder: b.Metrics,
	})

	// 7. Paper account funded in every quote token
	b.Paper = execution.NewPaperExecution(cfg.Simulation.Venues, ledger)
	funded := make(map[string]bool)
	for _, p := range cfg.Simulation.Pairs {
		if !funded[p.QuoteToken] {
			b.Paper.Deposit(p.QuoteToken, cfg.Paper.StartingBalance)
			funded[p.QuoteToken] = true
		}
	}

	// 8. Feed
	b.Charts = infra.NewChartRenderer()
	b.Server = feed.NewServer(feed.ServerConfig{
		Addr:         cfg.Feed.ListenAddr,
		CommandRate:  cfg.Feed.CommandRate,
		CommandBurst: cfg.Feed.CommandBurst,
	}, feed.Deps{
		Sequencer: b.Sequencer,
		Quotes:    b.Quotes,
		Mev:       b.Mev,
		Executor:  b.Paper,
		Metrics:   b.Metrics,
		Charts:    b.Charts,
		TradeSize: cfg.Arbitrage.TradeSize,
	})

	slog.Info("✅ Components wired",
		slog.Int("pairs", len(cfg.Simulation.Pairs)),
		slog.Int("venues", len(cfg.Simulation.Venues)),
		slog.String("active_pair", b.Sequencer.ActivePair()),
		slog.Uint64("seed", b.seedBase),
	)
	return nil
}

// rng hands each component its own source so no two goroutines share one.
func (b *Bootstrap) rng() domain.Rand {
	seed := b.seedBase + b.seedNext
	b.seedNext++
	return engine.NewRand(seed)
}

// Run starts the sequencer, analytics, MEV session and feed, and blocks
// until ctx is cancelled or the feed fails.
func (b *Bootstrap) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
		slog.Info("✅ Started", slog.String("component", name))
	}

	start("quote processor", b.Quotes.RunBatchProcessor)
	start("sequencer", b.Sequencer.Run)
	start("mev simulator", b.Mev.Run)

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Server.Start()
	}()

	slog.Info("✨ DEX simulator fully operational. Press Ctrl+C to exit.",
		slog.String("addr", b.Config.Feed.ListenAddr))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	slog.Info("👋 Shutting down gracefully...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := b.Server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Feed shutdown failed", slog.Any("error", err))
	}

	cancel()
	wg.Wait()

	b.Sequencer.DumpState(filepath.Join(b.Config.Logging.Dir, "state_dump.json"))
	b.logSummary(shutdownCtx)
	return runErr
}

// Close releases the session ledger.
func (b *Bootstrap) Close() error {
	if b.Ledger == nil {
		return nil
	}
	return b.Ledger.Close()
}

func (b *Bootstrap) logSummary(ctx context.Context) {
	sum, err := b.Ledger.Summary(ctx)
	if err != nil {
		slog.Warn("Failed to summarize session", slog.Any("error", err))
		return
	}
	slog.Info("Session summary",
		slog.Int64("mev_results", sum.MevResults),
		slog.Int64("mev_successes", sum.MevSuccesses),
		slog.String("mev_profit", sum.MevProfit.StringFixed(2)),
		slog.Int64("opportunities", sum.Opportunities),
		slog.Int64("executed", sum.Executed),
		slog.String("opportunity_profit", sum.OpportunityProfit.StringFixed(2)),
	)
}

// QuoteBalances returns the paper balance of every configured quote token.
func (b *Bootstrap) QuoteBalances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, p := range b.Config.Simulation.Pairs {
		out[p.QuoteToken] = b.Paper.GetBalance(p.QuoteToken)
	}
	return out
}
