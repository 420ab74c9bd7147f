package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"dex_sim/internal/domain"
	"dex_sim/internal/service"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a pair for cross-venue arbitrage",
	Long: `Advance a pair for a number of ticks, then list the arbitrage
opportunities in the final tick. With --execute the best one is paper
traded against the configured starting balance.

Examples:
  dex-sim scan --ticks 50
  dex-sim scan --pair LINK/USDC --threshold 0.01 --execute`,
	RunE: runScan,
}

var (
	scanPair      string
	scanTicks     int
	scanThreshold string
	scanExecute   bool
	scanSize      string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanPair, "pair", "", "Trading pair (default: simulation.default_pair)")
	scanCmd.Flags().IntVar(&scanTicks, "ticks", 1, "Ticks to advance before scanning")
	scanCmd.Flags().StringVar(&scanThreshold, "threshold", "", "Minimum gross profit (default: arbitrage.min_profit)")
	scanCmd.Flags().BoolVar(&scanExecute, "execute", false, "Paper execute the best opportunity")
	scanCmd.Flags().StringVar(&scanSize, "size", "", "Trade size in base token (default: arbitrage.trade_size)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanTicks <= 0 {
		return fmt.Errorf("--ticks must be positive, got %d", scanTicks)
	}
	b, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer b.Close()

	pair, err := pairOrDefault(b, scanPair)
	if err != nil {
		return err
	}
	if scanThreshold != "" {
		t, err := decimal.NewFromString(scanThreshold)
		if err != nil || t.IsNegative() {
			return fmt.Errorf("invalid --threshold %q", scanThreshold)
		}
		b.Quotes.SetThreshold(t)
	}

	if err := runTicks(cmd.Context(), b, pair, scanTicks, nil); err != nil {
		return err
	}
	opps := b.Quotes.Opportunities(pair)
	out := cmd.OutOrStdout()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tBUY\tSELL\tBUY PRICE\tSELL PRICE\tPROFIT\tPROFIT %\tGAS\tNET\tRISK")
	for i, o := range opps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s%%\t%s\t%s\t%s\n",
			i+1, o.BuyVenue, o.SellVenue,
			o.BuyPrice.StringFixed(4), o.SellPrice.StringFixed(4),
			o.GrossProfit.StringFixed(4), o.ProfitPercent.StringFixed(2),
			o.GasEstimate.StringFixed(2), o.NetProfit.StringFixed(4), o.Risk)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	sum := service.Summarize(opps)
	fmt.Fprintf(out, "\n%s: %d opportunities above %s, total net %s, best %s%%\n",
		pair, sum.Count, b.Quotes.Threshold().String(),
		humanize.CommafWithDigits(sum.TotalNetProfit.InexactFloat64(), 4),
		sum.BestProfitPercent.StringFixed(2))

	if !scanExecute {
		return nil
	}
	if len(opps) == 0 {
		fmt.Fprintln(out, "nothing to execute")
		return nil
	}

	size := b.Config.Arbitrage.TradeSize
	if scanSize != "" {
		if size, err = decimal.NewFromString(scanSize); err != nil || !size.IsPositive() {
			return fmt.Errorf("invalid --size %q", scanSize)
		}
	}
	report, err := b.Paper.Execute(cmd.Context(), opps[0], size)
	if err != nil {
		return err
	}
	printReport(cmd, report)

	_, quote, _ := strings.Cut(pair, "/")
	fmt.Fprintf(out, "%s balance %s\n", quote,
		humanize.CommafWithDigits(b.QuoteBalances()[quote].InexactFloat64(), 4))
	return nil
}

func printReport(cmd *cobra.Command, r domain.ExecutionReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nexecuted %s size %s\n", r.OpportunityID, r.Size)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIDE\tVENUE\tQTY\tPRICE\tFEE")
	for _, f := range r.Fills {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Side, f.Venue, f.Qty, f.Price.StringFixed(4), f.Fee.StringFixed(4))
	}
	w.Flush()

	fmt.Fprintf(out, "realized %s (expected net %s, gas est. %s)\n",
		r.RealizedPnL.StringFixed(4), r.ExpectedNet.StringFixed(4), r.GasEstimate.StringFixed(2))
}
