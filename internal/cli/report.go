package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"swingBot/internal/domain"
	"swingBot/internal/ledger"
	"swingBot/internal/lifecycle"
	"swingBot/internal/utils"
)

var profitCmd = &cobra.Command{
	Use:   "profit",
	Short: "Show balances and realized profit",
	Args:  cobra.NoArgs,
	RunE:  runProfit,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the newest ledger rows",
	Long: `List ledger rows, newest first. Each row carries the balances after a buy
reservation or a realized sell.

Examples:
  swingbot history --limit 10
  swingbot history --limit 0 --csv data/history.csv`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyLimit int
	historyCSV   string
)

func init() {
	rootCmd.AddCommand(profitCmd)
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of rows (0 for all)")
	historyCmd.Flags().StringVar(&historyCSV, "csv", "", "write the rows to this CSV file instead of the terminal")
}

func runProfit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	balances, err := ledger.NewAccessor(rt.repo).Current(ctx)
	if err != nil {
		return err
	}
	today, err := rt.repo.ProfitSince(ctx, startOfDay(time.Now()))
	if err != nil {
		return fmt.Errorf("query today's profit: %w", err)
	}
	total, err := rt.repo.TotalProfit(ctx)
	if err != nil {
		return fmt.Errorf("query total profit: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total balance:  %s\n", balances.Total.StringFixed(2))
	fmt.Fprintf(out, "Active balance: %s\n", balances.Active.StringFixed(2))
	fmt.Fprintf(out, "Today's profit: %s\n", today.StringFixed(2))
	fmt.Fprintf(out, "Total profit:   %s\n", total.StringFixed(2))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	rows, err := rt.repo.ListProfitRows(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if historyCSV != "" {
		if err := utils.WriteToFile(historyCSV, func(w io.Writer) error {
			return utils.WriteProfitRowsCSV(w, rows)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(rows), historyCSV)
		return nil
	}
	return printHistory(cmd.OutOrStdout(), rows)
}

func printHistory(w io.Writer, rows []*domain.ProfitRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tSYMBOL\tTOTAL\tACTIVE\tPROFIT\tBUY\tSELL")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Time.UTC().Format("2006-01-02 15:04:05"), r.Symbol,
			r.TotalBalance.StringFixed(2), r.ActiveBalance.StringFixed(2), r.Profit.StringFixed(2),
			r.BuyOrderID, r.SellOrderID)
	}
	return tw.Flush()
}

func printPassReport(w io.Writer, report *lifecycle.PassReport) {
	fmt.Fprintf(w, "Pass %s (%s)\n", report.StartedAt.Format(time.RFC3339), report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	for _, o := range report.Outcomes {
		status := "ok"
		if o.Err != nil {
			status = "error: " + o.Err.Error()
		}
		fmt.Fprintf(w, "  %-4s %-24s %-16s %s\n", o.Side, o.OrderID, o.Action, status)
	}
	fmt.Fprintf(w, "Steps: %d, failed: %d\n", len(report.Outcomes), report.Failed())
	fmt.Fprintf(w, "Today's profit: %s, total profit: %s\n", report.TodayProfit.StringFixed(2), report.TotalProfit.StringFixed(2))
}

// startOfDay truncates t to midnight UTC; ledger times are stored in UTC.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
