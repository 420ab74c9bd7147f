package main

import (
	"fmt"

	"dex_sim/internal/infra/feed"

	"github.com/spf13/cobra"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render a pair's venue prices to PNG",
	Long: `Advance a pair for a number of ticks and render one price line per
venue into <out>/<pair>.png.

Examples:
  dex-sim chart --ticks 50
  dex-sim chart --pair UNI/ETH --ticks 200 --out charts`,
	RunE: runChart,
}

var (
	chartPair  string
	chartTicks int
	chartOut   string
)

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVar(&chartPair, "pair", "", "Trading pair (default: simulation.default_pair)")
	chartCmd.Flags().IntVar(&chartTicks, "ticks", 50, "Ticks to plot (capped by simulation.history_size)")
	chartCmd.Flags().StringVar(&chartOut, "out", "charts", "Output directory")
}

func runChart(cmd *cobra.Command, args []string) error {
	if chartTicks < 2 {
		return fmt.Errorf("--ticks must be at least 2, got %d", chartTicks)
	}
	b, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer b.Close()

	pair, err := pairOrDefault(b, chartPair)
	if err != nil {
		return err
	}
	if err := runTicks(cmd.Context(), b, pair, chartTicks, nil); err != nil {
		return err
	}

	series := feed.SeriesFromHistory(b.Quotes.History(pair), b.Sequencer.Venues())
	path, err := b.Charts.Save(chartOut, pair, series)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
