package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

type logEntry struct {
	level string
	msg   string
	err   error
}

// mockLogger records entries so tests can look for anomalies.
type mockLogger struct {
	entries []logEntry
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.entries = append(m.entries, logEntry{level: "debug", msg: msg})
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.entries = append(m.entries, logEntry{level: "info", msg: msg})
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.entries = append(m.entries, logEntry{level: "warn", msg: msg})
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.entries = append(m.entries, logEntry{level: "error", msg: msg, err: err})
}

func (m *mockLogger) errors() []logEntry {
	var out []logEntry
	for _, e := range m.entries {
		if e.level == "error" {
			out = append(out, e)
		}
	}
	return out
}

// fakeVenue keeps orders in memory. Canceling an order keeps its fills.
type fakeVenue struct {
	ports.Venue
	now       func() time.Time
	orders    map[string]*domain.VenueOrder
	submitted []domain.OrderRequest
	canceled  []string
	seq       int

	getErr         map[string]error
	cancelErr      error
	submitErr      error
	filledOnSubmit bool // Submitted orders fill at once and can no longer be canceled
}

func newFakeVenue(now func() time.Time) *fakeVenue {
	return &fakeVenue{
		now:    now,
		orders: map[string]*domain.VenueOrder{},
		getErr: map[string]error{},
	}
}

func (f *fakeVenue) put(o *domain.VenueOrder) {
	f.orders[o.ID] = o
}

func (f *fakeVenue) SubmitOrder(ctx context.Context, req domain.OrderRequest) (*domain.VenueOrder, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrVenue, err)
	}
	f.seq++
	f.submitted = append(f.submitted, req)
	o := &domain.VenueOrder{
		ID:          fmt.Sprintf("v-%d", f.seq),
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        req.Type,
		Status:      domain.StatusNew,
		Qty:         req.Qty,
		FilledQty:   decimal.Zero,
		LimitPrice:  req.LimitPrice.TakeOr(decimal.Zero),
		CreatedAt:   f.now(),
		TimeInForce: req.TimeInForce,
	}
	if f.filledOnSubmit {
		o.Status, o.FilledQty = domain.StatusFilled, req.Qty
	}
	f.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (f *fakeVenue) CancelOrder(ctx context.Context, id string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	if o, ok := f.orders[id]; ok && o.Status == domain.StatusFilled {
		return fmt.Errorf("cancel %s: %w: %w", id, ports.ErrVenue, ports.ErrOrderCancelFailed)
	}
	f.canceled = append(f.canceled, id)
	if o, ok := f.orders[id]; ok {
		o.Status = domain.StatusCanceled
	}
	return nil
}

func (f *fakeVenue) GetOrder(ctx context.Context, id string) (*domain.VenueOrder, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w: %w", id, ports.ErrVenue, ports.ErrOrderNotFound)
	}
	cp := *o
	return &cp, nil
}

// memStore is an in-memory ports.LedgerStore.
type memStore struct {
	initial decimal.Decimal
	buys    []*domain.OrderRecord
	sells   []*domain.OrderRecord
	rows    []*domain.ProfitRow

	listErr   error
	appendErr error
	insertErr error
}

func newMemStore(initial decimal.Decimal) *memStore {
	s := &memStore{initial: initial}
	s.rows = append(s.rows, domain.SeedRow(initial, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	s.rows[0].ID = 1
	return s
}

func (s *memStore) table(side domain.OrderSide) *[]*domain.OrderRecord {
	if side == domain.Sell {
		return &s.sells
	}
	return &s.buys
}

func (s *memStore) InsertOrder(ctx context.Context, rec *domain.OrderRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	t := s.table(rec.Side)
	for _, r := range *t {
		if r.ID == rec.ID {
			return fmt.Errorf("%w: %w", ports.ErrWrite, ports.ErrDuplicateEntry)
		}
	}
	cp := *rec
	*t = append(*t, &cp)
	return nil
}

func (s *memStore) UpdateCheckedAt(ctx context.Context, side domain.OrderSide, id string, at time.Time) error {
	for _, r := range *s.table(side) {
		if r.ID == id {
			r.CheckedAt = optional.Some(at)
			return nil
		}
	}
	return ports.ErrNotFound
}

func (s *memStore) DeleteOrder(ctx context.Context, side domain.OrderSide, id string) error {
	t := s.table(side)
	for i, r := range *t {
		if r.ID == id {
			*t = append((*t)[:i], (*t)[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memStore) FindOrder(ctx context.Context, side domain.OrderSide, id string) (*domain.OrderRecord, error) {
	for _, r := range *s.table(side) {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (s *memStore) GetBuyOrderID(ctx context.Context, sellID string) (string, error) {
	rec, err := s.FindOrder(ctx, domain.Sell, sellID)
	if err != nil {
		return "", err
	}
	return rec.BuyOrderID.Unwrap(), nil
}

func (s *memStore) ListOrderIDs(ctx context.Context, side domain.OrderSide) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var ids []string
	for _, r := range *s.table(side) {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *memStore) CountOrdersBySymbol(ctx context.Context, side domain.OrderSide, symbol string) (int, error) {
	n := 0
	for _, r := range *s.table(side) {
		if r.Symbol == symbol {
			n++
		}
	}
	return n, nil
}

func (s *memStore) AppendProfitRow(ctx context.Context, row *domain.ProfitRow) (int64, error) {
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	cp := *row
	cp.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, &cp)
	return cp.ID, nil
}

func (s *memStore) LatestBalance(ctx context.Context, kind domain.BalanceKind) (decimal.Decimal, error) {
	if len(s.rows) == 0 {
		return s.initial, nil
	}
	return s.rows[len(s.rows)-1].Balance(kind), nil
}

func (s *memStore) TotalProfit(ctx context.Context) (decimal.Decimal, error) {
	return s.ProfitSince(ctx, time.Time{})
}

func (s *memStore) ProfitSince(ctx context.Context, t time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, r := range s.rows {
		if !r.Time.Before(t) {
			sum = sum.Add(r.Profit)
		}
	}
	return sum, nil
}

func (s *memStore) ListProfitRows(ctx context.Context, limit int) ([]*domain.ProfitRow, error) {
	var out []*domain.ProfitRow
	for i := len(s.rows) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, s.rows[i])
	}
	return out, nil
}

func (s *memStore) latest() *domain.ProfitRow {
	return s.rows[len(s.rows)-1]
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
