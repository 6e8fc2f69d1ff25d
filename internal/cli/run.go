package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"swingBot/internal/app"
	"swingBot/internal/lifecycle"
	"swingBot/internal/strategy"
	"swingBot/internal/symbols"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan for entries and reconcile open orders in a loop",
	Long: `Run the bot. Each cycle checks the market clock, scans the symbol list for
entries within the hourly and per-symbol limits, then reconciles every open
buy and sell order against the venue.

An interval of 0 runs a single cycle and exits.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runInterval time.Duration

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass over open orders",
	Args:  cobra.NoArgs,
	RunE:  runReconcile,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reconcileCmd)

	runCmd.Flags().DurationVarP(&runInterval, "interval", "i", 5*time.Minute, "time between cycles (0 for a single cycle)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	venue, err := rt.venue()
	if err != nil {
		return err
	}

	syms, err := symbols.Resolve(ctx, rt.cfg.Symbols, rt.cfg.SymbolsFile, venue, rt.logger)
	if err != nil {
		return fmt.Errorf("resolve symbols: %w", err)
	}
	venue.TrackSymbols(syms)

	strat, err := strategy.New(strategy.Config{
		LeastTradeVolume:   rt.cfg.LeastTradeVolume,
		CurrentLowestGap:   rt.cfg.CurrentLowestGap,
		CheckTargetPercent: rt.cfg.CheckTargetPercent,
	}, rt.logger)
	if err != nil {
		return fmt.Errorf("init strategy: %w", err)
	}

	svc, err := app.NewTradingService(rt.cfg, rt.logger, venue, rt.repo, strat, syms)
	if err != nil {
		return fmt.Errorf("init trading service: %w", err)
	}
	return svc.Start(ctx, runInterval)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	venue, err := rt.venue()
	if err != nil {
		return err
	}

	driver := lifecycle.NewDriver(rt.lifecycleConfig(), venue, rt.repo, rt.logger)
	report, err := driver.RunPass(cmd.Context())
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	printPassReport(cmd.OutOrStdout(), report)
	return nil
}
