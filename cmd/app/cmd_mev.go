package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"dex_sim/internal/strategy"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var mevCmd = &cobra.Command{
	Use:   "mev",
	Short: "Run an MEV strategy against a synthetic mempool",
	Long: `Generate a mempool and run the chosen strategy for a number of steps,
printing each result and the session statistics.

Strategies: SANDWICH, FRONTRUNNING, ARBITRAGE

Examples:
  dex-sim mev --steps 10
  dex-sim mev --strategy arbitrage --steps 25 --seed 7`,
	RunE: runMev,
}

var (
	mevStrategy string
	mevSteps    int
	mevWarmup   int
)

func init() {
	rootCmd.AddCommand(mevCmd)
	mevCmd.Flags().StringVar(&mevStrategy, "strategy", "", "Strategy (default: mev.default_strategy)")
	mevCmd.Flags().IntVar(&mevSteps, "steps", 10, "Strategy runs")
	mevCmd.Flags().IntVar(&mevWarmup, "warmup", 0, "Ticks to mature the markets before generating the pool")
}

func runMev(cmd *cobra.Command, args []string) error {
	if mevSteps <= 0 {
		return fmt.Errorf("--steps must be positive, got %d", mevSteps)
	}
	b, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer b.Close()
	ctx := cmd.Context()

	if mevStrategy != "" {
		id, err := strategy.Parse(mevStrategy)
		if err != nil {
			return err
		}
		if err := b.Mev.SetStrategy(id); err != nil {
			return err
		}
	}
	if mevWarmup > 0 {
		for _, p := range b.Sequencer.Pairs() {
			if err := runTicks(ctx, b, p.Symbol, mevWarmup, nil); err != nil {
				return err
			}
		}
		// Regenerate against the matured markets.
		b.Mev.Reset(ctx)
	}

	def, _ := strategy.Lookup(b.Mev.Strategy())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s risk): %s\n\n", def.Name, def.RiskLevel, strings.Join(def.Steps, " -> "))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTARGET\tPROFIT\tGAS USED\tGAS PRICE\tRESULT")
	for i := 0; i < mevSteps; i++ {
		r, ok := b.Mev.Step(ctx)
		if !ok {
			fmt.Fprintf(w, "%d\t-\t-\t-\t-\tno target\n", i+1)
			continue
		}
		result := "FAILED"
		if r.Success {
			result = "OK"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d gwei\t%s\n",
			i+1, shortHash(r.TargetTx), r.Profit.StringFixed(2),
			humanize.Comma(r.GasUsed), r.GasPrice, result)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats := b.Mev.View().Stats
	fmt.Fprintf(out, "\n%d results, %d successful (%s%%), profit %s, %d open opportunities\n",
		stats.Results, stats.Successful, stats.SuccessRatePct.String(),
		humanize.CommafWithDigits(stats.TotalProfit.InexactFloat64(), 2), stats.OpenOpportunities)
	return nil
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-4:]
}
