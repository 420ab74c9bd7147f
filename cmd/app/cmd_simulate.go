package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"dex_sim/internal/app"
	"dex_sim/internal/infra/feed"
	"dex_sim/internal/service"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Advance a pair offline and print each tick",
	Long: `Advance one pair for a fixed number of ticks without starting the feed
and print the market state, best venues and arbitrage count per tick.

Examples:
  dex-sim simulate --ticks 20
  dex-sim simulate --pair WBTC/ETH --ticks 100 --seed 42`,
	RunE: runSimulate,
}

var (
	simPair  string
	simTicks int
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simPair, "pair", "", "Trading pair (default: simulation.default_pair)")
	simulateCmd.Flags().IntVar(&simTicks, "ticks", 10, "Number of ticks to run")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simTicks <= 0 {
		return fmt.Errorf("--ticks must be positive, got %d", simTicks)
	}
	b, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer b.Close()

	pair, err := pairOrDefault(b, simPair)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tMATURITY\tPHASE\tTREND\tBEST BUY\tBEST SELL\tVOLUME\tARBS\tEVENT")
	err = runTicks(cmd.Context(), b, pair, simTicks, func(d service.Dashboard) {
		in := d.Batch.Insights
		buy, sell := "-", "-"
		if d.BestBuy != nil {
			buy = fmt.Sprintf("%s@%s", d.BestBuy.Venue, d.BestBuy.Ask.StringFixed(4))
		}
		if d.BestSell != nil {
			sell = fmt.Sprintf("%s@%s", d.BestSell.Venue, d.BestSell.Bid.StringFixed(4))
		}
		fmt.Fprintf(w, "%d\t%d%%\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			d.Batch.Seq, in.MaturityPct, in.Phase, in.TrendDirection,
			buy, sell, humanize.Comma(d.TotalVolume), len(d.Opportunities), d.Batch.Event)
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

func pairOrDefault(b *app.Bootstrap, raw string) (string, error) {
	if raw == "" {
		return b.Sequencer.ActivePair(), nil
	}
	pair := feed.NormalizePair(raw)
	if _, err := b.Sequencer.Insights(pair); err != nil {
		return "", err
	}
	return pair, nil
}

// runTicks advances pair n times, processing each batch before calling fn.
func runTicks(ctx context.Context, b *app.Bootstrap, pair string, n int, fn func(service.Dashboard)) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Quotes.RunBatchProcessor(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for i := 0; i < n; i++ {
		batch, err := b.Sequencer.GenerateQuotes(pair, time.Now())
		if err != nil {
			return err
		}
		b.Quotes.ProcessBatch(ctx, batch)
		if fn == nil {
			continue
		}
		if d, ok := b.Quotes.Dashboard(pair); ok {
			fn(d)
		}
	}
	return nil
}
