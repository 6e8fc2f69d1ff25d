package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
)

// LedgerStore persists open orders and the append-only profit history.
// Every method touches a single logical record; no method spans a transaction.
type LedgerStore interface {
	// InsertOrder adds an open order. Fails with ErrWrite (and ErrDuplicateEntry) if the ID exists.
	InsertOrder(ctx context.Context, rec *domain.OrderRecord) error
	// UpdateCheckedAt stamps an open order. Fails with ErrNotFound if the ID is absent.
	UpdateCheckedAt(ctx context.Context, side domain.OrderSide, id string, at time.Time) error
	// DeleteOrder removes an open order. Deleting an absent ID is a no-op.
	DeleteOrder(ctx context.Context, side domain.OrderSide, id string) error
	// FindOrder returns an open order or ErrNotFound.
	FindOrder(ctx context.Context, side domain.OrderSide, id string) (*domain.OrderRecord, error)
	// GetBuyOrderID resolves the buy order a sell order closes. Fails with ErrNotFound.
	GetBuyOrderID(ctx context.Context, sellID string) (string, error)
	// ListOrderIDs returns open order IDs of one side in insertion order.
	ListOrderIDs(ctx context.Context, side domain.OrderSide) ([]string, error)
	// CountOrdersBySymbol counts open orders of one side for a symbol.
	CountOrdersBySymbol(ctx context.Context, side domain.OrderSide, symbol string) (int, error)

	// AppendProfitRow appends a ledger row and returns its ID. Fails with ErrWrite.
	AppendProfitRow(ctx context.Context, row *domain.ProfitRow) (int64, error)
	// LatestBalance reads a balance from the newest row, or the configured default when empty.
	LatestBalance(ctx context.Context, kind domain.BalanceKind) (decimal.Decimal, error)
	// TotalProfit sums the profit of all rows.
	TotalProfit(ctx context.Context) (decimal.Decimal, error)
	// ProfitSince sums the profit of rows recorded at or after t.
	ProfitSince(ctx context.Context, t time.Time) (decimal.Decimal, error)
	// ListProfitRows returns up to limit of the newest rows, newest first.
	ListProfitRows(ctx context.Context, limit int) ([]*domain.ProfitRow, error)
}
