package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitRow is one entry of the append-only balance history.
// The row with the highest ID holds the current balances.
type ProfitRow struct {
	ID            int64
	TotalBalance  decimal.Decimal
	ActiveBalance decimal.Decimal
	Time          time.Time
	Symbol        string
	Profit        decimal.Decimal
	BuyOrderID    string
	SellOrderID   string
}

// Balance returns the balance of the requested kind.
func (r *ProfitRow) Balance(kind BalanceKind) decimal.Decimal {
	if kind == BalanceActive {
		return r.ActiveBalance
	}
	return r.TotalBalance
}

// SeedRow is the first ledger row, carrying the configured starting funds.
func SeedRow(initialFunds decimal.Decimal, at time.Time) *ProfitRow {
	return &ProfitRow{
		TotalBalance:  initialFunds,
		ActiveBalance: initialFunds,
		Time:          at.UTC(),
		Symbol:        NoneMarker,
		Profit:        decimal.Zero,
		BuyOrderID:    NoneMarker,
		SellOrderID:   NoneMarker,
	}
}
