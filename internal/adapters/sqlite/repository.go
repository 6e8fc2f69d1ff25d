package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

const (
	tableBuyOrders  = "buy_orders"
	tableSellOrders = "sell_orders"
	tableProfits    = "profits"
)

// Repository implements ports.LedgerStore using SQLite.
type Repository struct {
	db           *sql.DB
	sq           sq.StatementBuilderType
	logger       ports.Logger
	initialFunds decimal.Decimal
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
	// InitialFunds seeds an empty ledger and is the balance reported before any row exists.
	InitialFunds decimal.Decimal
}

// NewRepository opens (or creates) the ledger database and seeds it on first use.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/ledger.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrLedgerUnavailable, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writers; each write is one statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{
		db:           db,
		sq:           sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger:       cfg.Logger,
		initialFunds: cfg.InitialFunds,
	}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := repo.ensureSeed(context.Background(), time.Now()); err != nil {
		db.Close()
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Ledger database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS buy_orders (
		id TEXT NOT NULL PRIMARY KEY,
		symbol TEXT NOT NULL,
		checked_at TIMESTAMP NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sell_orders (
		id TEXT NOT NULL PRIMARY KEY,
		symbol TEXT NOT NULL,
		buy_order_id TEXT NOT NULL,
		checked_at TIMESTAMP NULL,
		created_at TIMESTAMP NOT NULL
	);

	-- Append-only. Decimal columns are stored as TEXT to keep exact values.
	CREATE TABLE IF NOT EXISTS profits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		total_balance TEXT NOT NULL,
		active_balance TEXT NOT NULL,
		time TIMESTAMP NOT NULL,
		symbol TEXT NOT NULL,
		profit TEXT NOT NULL,
		buy_order_id TEXT NOT NULL,
		sell_order_id TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_buy_orders_symbol ON buy_orders (symbol);
	CREATE INDEX IF NOT EXISTS idx_sell_orders_symbol ON sell_orders (symbol);
	CREATE INDEX IF NOT EXISTS idx_profits_time ON profits (time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// ensureSeed inserts the starting balance row when the ledger is empty.
func (r *Repository) ensureSeed(ctx context.Context, now time.Time) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profits`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count ledger rows: %w: %w", ports.ErrQueryFailed, err)
	}
	if count > 0 {
		return nil
	}
	id, err := r.AppendProfitRow(ctx, domain.SeedRow(r.initialFunds, now))
	if err != nil {
		return fmt.Errorf("failed to seed ledger: %w", err)
	}
	r.logger.Info(ctx, "Ledger seeded with initial funds", map[string]interface{}{"rowID": id, "funds": r.initialFunds.String()})
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

func tableFor(side domain.OrderSide) (string, error) {
	switch side {
	case domain.Buy:
		return tableBuyOrders, nil
	case domain.Sell:
		return tableSellOrders, nil
	default:
		return "", fmt.Errorf("unknown order side %q: %w", side, ports.ErrInvalidRequest)
	}
}

func balanceColumn(kind domain.BalanceKind) (string, error) {
	switch kind {
	case domain.BalanceTotal:
		return "total_balance", nil
	case domain.BalanceActive:
		return "active_balance", nil
	default:
		return "", fmt.Errorf("unknown balance kind %q: %w", kind, ports.ErrInvalidRequest)
	}
}

// --- Open orders ---

// InsertOrder adds an open order to the table of its side.
func (r *Repository) InsertOrder(ctx context.Context, rec *domain.OrderRecord) error {
	table, err := tableFor(rec.Side)
	if err != nil {
		return fmt.Errorf("failed to insert order %s: %w: %w", rec.ID, ports.ErrWrite, err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var checkedAt sql.NullTime
	if rec.CheckedAt.IsSome() {
		checkedAt = sql.NullTime{Time: rec.CheckedAt.Unwrap().UTC(), Valid: true}
	}

	insert := r.sq.Insert(table)
	if rec.Side == domain.Sell {
		buyID, err := rec.BuyOrderID.Take()
		if err != nil || buyID == "" {
			return fmt.Errorf("sell order %s has no buy order reference: %w: %w", rec.ID, ports.ErrWrite, ports.ErrInvalidRequest)
		}
		insert = insert.Columns("id", "symbol", "buy_order_id", "checked_at", "created_at").
			Values(rec.ID, rec.Symbol, buyID, checkedAt, rec.CreatedAt.UTC())
	} else {
		insert = insert.Columns("id", "symbol", "checked_at", "created_at").
			Values(rec.ID, rec.Symbol, checkedAt, rec.CreatedAt.UTC())
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert for order %s: %w: %w", rec.ID, ports.ErrWrite, err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("order %s already in %s: %w: %w", rec.ID, table, ports.ErrWrite, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert order %s into %s: %w: %w", rec.ID, table, ports.ErrWrite, err)
	}
	r.logger.Info(ctx, "Order inserted into ledger", map[string]interface{}{"orderID": rec.ID, "symbol": rec.Symbol, "table": table})
	return nil
}

// UpdateCheckedAt stamps the last time an ambiguous order was looked at.
func (r *Repository) UpdateCheckedAt(ctx context.Context, side domain.OrderSide, id string, at time.Time) error {
	table, err := tableFor(side)
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w: %w", id, ports.ErrWrite, err)
	}
	query, args, err := r.sq.Update(table).Set("checked_at", at.UTC()).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update for order %s: %w: %w", id, ports.ErrWrite, err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update checked_at of order %s: %w: %w", id, ports.ErrWrite, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for order %s: %w: %w", id, ports.ErrWrite, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("order %s not found in %s: %w", id, table, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Order checked_at updated", map[string]interface{}{"orderID": id, "table": table})
	return nil
}

// DeleteOrder removes an open order. Missing rows are not an error.
func (r *Repository) DeleteOrder(ctx context.Context, side domain.OrderSide, id string) error {
	table, err := tableFor(side)
	if err != nil {
		return fmt.Errorf("failed to delete order %s: %w: %w", id, ports.ErrWrite, err)
	}
	query, args, err := r.sq.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete for order %s: %w: %w", id, ports.ErrWrite, err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete order %s from %s: %w: %w", id, table, ports.ErrWrite, err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		r.logger.Info(ctx, "Order deleted from ledger", map[string]interface{}{"orderID": id, "table": table})
	}
	return nil
}

// FindOrder loads one open order.
func (r *Repository) FindOrder(ctx context.Context, side domain.OrderSide, id string) (*domain.OrderRecord, error) {
	table, err := tableFor(side)
	if err != nil {
		return nil, err
	}
	columns := []string{"id", "symbol", "checked_at", "created_at"}
	if side == domain.Sell {
		columns = append(columns, "buy_order_id")
	}
	query, args, err := r.sq.Select(columns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select for order %s: %w: %w", id, ports.ErrQueryFailed, err)
	}

	rec := &domain.OrderRecord{Side: side}
	var checkedAt sql.NullTime
	var buyID sql.NullString
	dest := []interface{}{&rec.ID, &rec.Symbol, &checkedAt, &rec.CreatedAt}
	if side == domain.Sell {
		dest = append(dest, &buyID)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s not found in %s: %w", id, table, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query order %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	if checkedAt.Valid {
		rec.CheckedAt = optional.Some(checkedAt.Time)
	}
	if buyID.Valid {
		rec.BuyOrderID = optional.Some(buyID.String)
	}
	return rec, nil
}

// GetBuyOrderID resolves the buy order referenced by an open sell order.
func (r *Repository) GetBuyOrderID(ctx context.Context, sellID string) (string, error) {
	const query = `SELECT buy_order_id FROM sell_orders WHERE id = ?`
	var buyID string
	if err := r.db.QueryRowContext(ctx, query, sellID).Scan(&buyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("sell order %s not found: %w", sellID, ports.ErrNotFound)
		}
		return "", fmt.Errorf("failed to query buy_order_id of sell order %s: %w: %w", sellID, ports.ErrQueryFailed, err)
	}
	return buyID, nil
}

// ListOrderIDs returns the open order IDs of one side in insertion order.
func (r *Repository) ListOrderIDs(ctx context.Context, side domain.OrderSide) ([]string, error) {
	table, err := tableFor(side)
	if err != nil {
		return nil, err
	}
	query, args, err := r.sq.Select("id").From(table).OrderBy("rowid").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list of %s: %w: %w", table, ports.ErrQueryFailed, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w: %w", table, ports.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w: %w", table, ports.ErrLedgerUnavailable, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w: %w", table, ports.ErrLedgerUnavailable, err)
	}
	return ids, nil
}

// CountOrdersBySymbol counts the open orders of one side for a symbol.
func (r *Repository) CountOrdersBySymbol(ctx context.Context, side domain.OrderSide, symbol string) (int, error) {
	table, err := tableFor(side)
	if err != nil {
		return 0, err
	}
	query, args, err := r.sq.Select("COUNT(*)").From(table).Where(sq.Eq{"symbol": symbol}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count of %s: %w: %w", table, ports.ErrQueryFailed, err)
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s orders in %s: %w: %w", symbol, table, ports.ErrQueryFailed, err)
	}
	return count, nil
}

// --- Profit history ---

// AppendProfitRow appends a ledger row and returns its assigned ID.
func (r *Repository) AppendProfitRow(ctx context.Context, row *domain.ProfitRow) (int64, error) {
	query, args, err := r.sq.Insert(tableProfits).
		Columns("total_balance", "active_balance", "time", "symbol", "profit", "buy_order_id", "sell_order_id").
		Values(row.TotalBalance.String(), row.ActiveBalance.String(), row.Time.UTC(), row.Symbol,
			row.Profit.String(), row.BuyOrderID, row.SellOrderID).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build profit row insert: %w: %w", ports.ErrWrite, err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert profit row for %s: %w: %w", row.Symbol, ports.ErrWrite, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for profit row %s: %w: %w", row.Symbol, ports.ErrWrite, err)
	}
	row.ID = id
	r.logger.Debug(ctx, "Profit row appended", map[string]interface{}{"rowID": id, "symbol": row.Symbol, "profit": row.Profit.String()})
	return id, nil
}

// LatestBalance reads one balance from the newest ledger row.
func (r *Repository) LatestBalance(ctx context.Context, kind domain.BalanceKind) (decimal.Decimal, error) {
	column, err := balanceColumn(kind)
	if err != nil {
		return decimal.Zero, err
	}
	query, args, err := r.sq.Select(column).From(tableProfits).OrderBy("id DESC").Limit(1).ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build balance query: %w: %w", ports.ErrQueryFailed, err)
	}

	var balance decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.initialFunds, nil
		}
		return decimal.Zero, fmt.Errorf("failed to query %s balance: %w: %w", kind, ports.ErrQueryFailed, err)
	}
	return balance, nil
}

// TotalProfit sums the profit column over the whole ledger.
func (r *Repository) TotalProfit(ctx context.Context) (decimal.Decimal, error) {
	return r.sumProfit(ctx, r.sq.Select("profit").From(tableProfits))
}

// ProfitSince sums the profit of rows recorded at or after t.
func (r *Repository) ProfitSince(ctx context.Context, t time.Time) (decimal.Decimal, error) {
	return r.sumProfit(ctx, r.sq.Select("profit").From(tableProfits).Where(sq.GtOrEq{"time": t.UTC()}))
}

// sumProfit adds decimals in Go; SQLite SUM would go through floating point.
func (r *Repository) sumProfit(ctx context.Context, builder sq.SelectBuilder) (decimal.Decimal, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build profit query: %w: %w", ports.ErrQueryFailed, err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query profits: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var profit decimal.Decimal
		if err := rows.Scan(&profit); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan profit: %w: %w", ports.ErrQueryFailed, err)
		}
		total = total.Add(profit)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating profit rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return total, nil
}

// ListProfitRows returns up to limit of the newest ledger rows, newest first.
func (r *Repository) ListProfitRows(ctx context.Context, limit int) ([]*domain.ProfitRow, error) {
	builder := r.sq.
		Select("id", "total_balance", "active_balance", "time", "symbol", "profit", "buy_order_id", "sell_order_id").
		From(tableProfits).
		OrderBy("id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build profit history query: %w: %w", ports.ErrQueryFailed, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profit history: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	result := make([]*domain.ProfitRow, 0)
	for rows.Next() {
		row, err := scanProfitRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profit row: %w: %w", ports.ErrQueryFailed, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profit history: %w: %w", ports.ErrQueryFailed, err)
	}
	return result, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProfitRow(s scanner) (*domain.ProfitRow, error) {
	p := &domain.ProfitRow{}
	err := s.Scan(&p.ID, &p.TotalBalance, &p.ActiveBalance, &p.Time, &p.Symbol, &p.Profit, &p.BuyOrderID, &p.SellOrderID)
	if err != nil {
		return nil, err
	}
	return p, nil
}
