// Package cli is the swingbot command line.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swingbot",
	Short: "Buy-low/sell-high spot trading bot with a local profit ledger",
	Long: `Swingbot buys symbols trading at the low of the day, resells them at a fixed
markup and keeps an append-only ledger of balances and realized profit in SQLite.

Configuration is read from the environment (and a .env file when present).

Examples:
  swingbot run --interval 5m
  swingbot reconcile
  swingbot profit
  swingbot history --limit 50 --csv data/history.csv`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
