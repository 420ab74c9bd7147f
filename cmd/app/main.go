package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dex_sim/internal/app"

	"github.com/spf13/cobra"

	_ "net/http/pprof" // For pprof profiling
)

var (
	configPath string
	logLevel   string
	seed       uint64
	pprofAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "dex-sim",
	Short: "Synthetic multi-DEX market simulator",
	Long: `dex-sim generates synthetic quotes for a set of trading pairs across
several simulated DEX venues, scans them for cross-venue arbitrage and runs
MEV strategies against a synthetic mempool.

Examples:
  dex-sim serve --config configs/config.yaml
  dex-sim simulate --pair ETH/USDC --ticks 20
  dex-sim scan --ticks 50 --execute
  dex-sim mev --strategy ARBITRAGE --steps 10`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Override simulation.seed (0 keeps config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the application. Offline commands default to warn so log
// lines do not interleave with their tables.
func bootstrap(quiet bool) (*app.Bootstrap, error) {
	level := logLevel
	if level == "" && quiet {
		level = "warn"
	}
	b := app.NewBootstrap()
	if err := b.Initialize(app.Options{ConfigPath: configPath, LogLevel: level, Seed: seed}); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return nil, err
	}
	return b, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func startPprof() {
	if pprofAddr == "" {
		return
	}
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started", slog.String("addr", pprofAddr))
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()
}
