package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"swingBot/internal/domain"
)

// WriteKlinesCSV writes candles to w, one row per candle.
func WriteKlinesCSV(w io.Writer, klines []*domain.Kline) error {
	writer := csv.NewWriter(w)

	// Write header
	writer.Write([]string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"})

	for _, k := range klines {
		writer.Write([]string{
			k.OpenTime.UTC().Format(time.RFC3339),
			k.CloseTime.UTC().Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			k.Open.String(),
			k.High.String(),
			k.Low.String(),
			k.Close.String(),
			k.Volume.String(),
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteProfitRowsCSV writes ledger rows to w in the order given.
func WriteProfitRowsCSV(w io.Writer, rows []*domain.ProfitRow) error {
	writer := csv.NewWriter(w)

	writer.Write([]string{"id", "time", "symbol", "total_balance", "active_balance", "profit", "buy_order_id", "sell_order_id"})

	for _, r := range rows {
		writer.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.Time.UTC().Format(time.RFC3339),
			r.Symbol,
			r.TotalBalance.String(),
			r.ActiveBalance.String(),
			r.Profit.String(),
			r.BuyOrderID,
			r.SellOrderID,
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteToFile creates filename (and its directory) and hands it to write.
func WriteToFile(filename string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", filename, err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := write(file); err != nil {
		return fmt.Errorf("failed to write '%s': %w", filename, err)
	}
	return file.Close()
}
