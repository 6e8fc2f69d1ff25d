package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"swingBot/internal/utils"
)

var klinesCmd = &cobra.Command{
	Use:   "klines <symbol>",
	Short: "Fetch recent candles for a symbol as CSV",
	Long: `Fetch the most recent candles for a symbol from the venue, the same data the
entry strategy sees.

Examples:
  swingbot klines ETHUSDT
  swingbot klines BTCUSDT --interval 1h --limit 48 --out data/btc_1h.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runKlines,
}

var (
	klinesInterval string
	klinesLimit    int
	klinesOut      string
)

func init() {
	rootCmd.AddCommand(klinesCmd)

	klinesCmd.Flags().StringVar(&klinesInterval, "interval", "1d", "candle interval")
	klinesCmd.Flags().IntVarP(&klinesLimit, "limit", "n", 30, "number of candles")
	klinesCmd.Flags().StringVarP(&klinesOut, "out", "o", "", "write to this file instead of stdout")
}

func runKlines(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	venue, err := rt.venue()
	if err != nil {
		return err
	}

	symbol := strings.ToUpper(args[0])
	klines, err := venue.GetKlines(cmd.Context(), symbol, klinesInterval, klinesLimit)
	if err != nil {
		return fmt.Errorf("fetch klines: %w", err)
	}
	rt.logger.Info(context.Background(), "Fetched klines", map[string]interface{}{"symbol": symbol, "count": len(klines)})

	if klinesOut == "" {
		return utils.WriteKlinesCSV(cmd.OutOrStdout(), klines)
	}
	if err := utils.WriteToFile(klinesOut, func(w io.Writer) error {
		return utils.WriteKlinesCSV(w, klines)
	}); err != nil {
		return err
	}
	rt.logger.Info(context.Background(), "Saved to", map[string]interface{}{"filename": klinesOut})
	return nil
}
