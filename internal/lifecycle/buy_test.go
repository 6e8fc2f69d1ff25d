package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

const testGrace = 30 * time.Minute

type buyFixture struct {
	now    time.Time
	venue  *fakeVenue
	store  *memStore
	logger *mockLogger
	rec    *BuyReconciler
}

func newBuyFixture(t *testing.T) *buyFixture {
	t.Helper()
	f := &buyFixture{
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		store:  newMemStore(d("1000")),
		logger: &mockLogger{},
	}
	clock := func() time.Time { return f.now }
	f.venue = newFakeVenue(clock)
	f.rec = NewBuyReconciler(f.venue, f.store, f.logger, testGrace, d("5"), clock)
	return f
}

// trackBuy puts a limit buy of qty at price on the venue, aged by elapsed, and tracks it.
func (f *buyFixture) trackBuy(t *testing.T, id string, status domain.OrderStatus, qty, filled, price string, elapsed time.Duration) {
	t.Helper()
	f.venue.put(&domain.VenueOrder{
		ID: id, Symbol: "AAA", Side: domain.Buy, Type: domain.OrderTypeLimit, Status: status,
		Qty: d(qty), FilledQty: d(filled), LimitPrice: d(price), CreatedAt: f.now.Add(-elapsed),
		TimeInForce: domain.TimeInForceDay,
	})
	require.NoError(t, f.store.InsertOrder(context.Background(), &domain.OrderRecord{ID: id, Symbol: "AAA", Side: domain.Buy}))
}

func (f *buyFixture) buyTracked(id string) bool {
	_, err := f.store.FindOrder(context.Background(), domain.Buy, id)
	return err == nil
}

func TestBuyReconciler_FilledPlacesTargetSell(t *testing.T) {
	f := newBuyFixture(t)
	f.trackBuy(t, "b-1", domain.StatusFilled, "2", "2", "100", time.Minute)

	out := f.rec.Reconcile(context.Background(), "b-1")
	require.NoError(t, out.Err)
	assert.Equal(t, "place_sell", out.Action)

	require.Len(t, f.venue.submitted, 1)
	req := f.venue.submitted[0]
	assert.Equal(t, domain.Sell, req.Side)
	assert.Equal(t, domain.OrderTypeLimit, req.Type)
	assert.Equal(t, domain.TimeInForceGTC, req.TimeInForce)
	assert.Equal(t, "105.00", req.LimitPrice.Unwrap().StringFixed(2))
	assert.Equal(t, "2", req.Qty.String())

	assert.False(t, f.buyTracked("b-1"))
	require.Len(t, f.store.sells, 1)
	assert.Equal(t, "v-1", f.store.sells[0].ID)
	assert.Equal(t, "b-1", f.store.sells[0].BuyOrderID.Unwrap())
}

func TestBuyReconciler_PartialFillGraceWindows(t *testing.T) {
	const eps = time.Second

	tests := []struct {
		name        string
		elapsed     time.Duration
		wantTracked bool
		wantStamped bool
		wantCancel  bool
	}{
		{name: "just before T", elapsed: testGrace - eps, wantTracked: true, wantStamped: true},
		{name: "at T", elapsed: testGrace, wantTracked: true, wantStamped: true},
		{name: "past 2T", elapsed: 2*testGrace + eps, wantTracked: false, wantCancel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBuyFixture(t)
			f.trackBuy(t, "b-1", domain.StatusPartiallyFilled, "4", "1.5", "10", tt.elapsed)

			out := f.rec.Reconcile(context.Background(), "b-1")
			require.NoError(t, out.Err)
			assert.Equal(t, tt.wantTracked, f.buyTracked("b-1"))

			if tt.wantStamped {
				rec, err := f.store.FindOrder(context.Background(), domain.Buy, "b-1")
				require.NoError(t, err)
				assert.Equal(t, f.now, rec.CheckedAt.Unwrap())
				assert.Empty(t, f.venue.canceled)
				assert.Empty(t, f.venue.submitted)
			}
			if tt.wantCancel {
				assert.Equal(t, []string{"b-1"}, f.venue.canceled)
				require.Len(t, f.venue.submitted, 1)
				assert.Equal(t, domain.OrderTypeMarket, f.venue.submitted[0].Type)
				assert.Equal(t, "1.5", f.venue.submitted[0].Qty.String())
				require.Len(t, f.store.sells, 1)
				assert.Equal(t, "b-1", f.store.sells[0].BuyOrderID.Unwrap())
			}
		})
	}
}

func TestBuyReconciler_NewAndCanceled(t *testing.T) {
	tests := []struct {
		name         string
		status       domain.OrderStatus
		filled       string
		elapsed      time.Duration
		wantTracked  bool
		wantCanceled bool
		wantSubmit   bool
	}{
		{name: "new inside window", status: domain.StatusNew, filled: "0", elapsed: time.Minute, wantTracked: true},
		{name: "new past window", status: domain.StatusNew, filled: "0", elapsed: testGrace, wantCanceled: true},
		{name: "canceled empty", status: domain.StatusCanceled, filled: "0", elapsed: time.Minute},
		{name: "canceled with fill", status: domain.StatusCanceled, filled: "1", elapsed: time.Minute, wantSubmit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBuyFixture(t)
			f.trackBuy(t, "b-1", tt.status, "3", tt.filled, "10", tt.elapsed)

			out := f.rec.Reconcile(context.Background(), "b-1")
			require.NoError(t, out.Err)
			assert.Equal(t, tt.wantTracked, f.buyTracked("b-1"))
			assert.Equal(t, tt.wantCanceled, len(f.venue.canceled) == 1)
			assert.Equal(t, tt.wantSubmit, len(f.venue.submitted) == 1)
			if tt.wantSubmit {
				req := f.venue.submitted[0]
				assert.Equal(t, domain.OrderTypeMarket, req.Type)
				assert.Equal(t, "1", req.Qty.String())
				assert.True(t, req.LimitPrice.IsNone())
			}
		})
	}
}

func TestBuyReconciler_FailuresLeaveRecord(t *testing.T) {
	t.Run("cancel fails", func(t *testing.T) {
		f := newBuyFixture(t)
		f.trackBuy(t, "b-1", domain.StatusNew, "3", "0", "10", 2*testGrace)
		f.venue.cancelErr = ports.ErrVenue

		out := f.rec.Reconcile(context.Background(), "b-1")
		assert.ErrorIs(t, out.Err, ports.ErrVenue)
		assert.True(t, f.buyTracked("b-1"))
	})

	t.Run("sell submit fails", func(t *testing.T) {
		f := newBuyFixture(t)
		f.trackBuy(t, "b-1", domain.StatusFilled, "3", "3", "10", time.Minute)
		f.venue.submitErr = ports.ErrVenue

		out := f.rec.Reconcile(context.Background(), "b-1")
		assert.ErrorIs(t, out.Err, ports.ErrVenue)
		assert.True(t, f.buyTracked("b-1"))
		assert.Empty(t, f.store.sells)
	})

	t.Run("venue lookup fails", func(t *testing.T) {
		f := newBuyFixture(t)
		f.trackBuy(t, "b-1", domain.StatusFilled, "3", "3", "10", time.Minute)
		f.venue.getErr["b-1"] = ports.ErrVenue

		out := f.rec.Reconcile(context.Background(), "b-1")
		assert.ErrorIs(t, out.Err, ports.ErrVenue)
		assert.Equal(t, "none", out.Action)
		assert.True(t, f.buyTracked("b-1"))
	})

	t.Run("cancel done but resale fails resumes as salvage", func(t *testing.T) {
		f := newBuyFixture(t)
		f.trackBuy(t, "b-1", domain.StatusPartiallyFilled, "3", "1", "10", 3*testGrace)
		f.venue.submitErr = ports.ErrVenue

		out := f.rec.Reconcile(context.Background(), "b-1")
		assert.ErrorIs(t, out.Err, ports.ErrVenue)
		assert.True(t, f.buyTracked("b-1"))

		f.venue.submitErr = nil
		out = f.rec.Reconcile(context.Background(), "b-1")
		require.NoError(t, out.Err)
		assert.Equal(t, "salvage", out.Action)
		assert.False(t, f.buyTracked("b-1"))
		assert.Equal(t, "1", f.venue.submitted[0].Qty.String())
	})
}

func TestBuyReconciler_UnexpectedStatusIsAnomaly(t *testing.T) {
	f := newBuyFixture(t)
	f.trackBuy(t, "b-1", domain.StatusExpired, "3", "0", "10", testGrace)

	out := f.rec.Reconcile(context.Background(), "b-1")
	assert.ErrorIs(t, out.Err, ports.ErrDataIntegrity)
	assert.Equal(t, "anomaly", out.Action)
	assert.True(t, f.buyTracked("b-1"))
	require.Len(t, f.logger.errors(), 1)
	assert.Empty(t, f.venue.canceled)
	assert.True(t, decimal.NewFromInt(1000).Equal(f.store.latest().TotalBalance))
}

func TestBuyReconciler_UntrackedSell(t *testing.T) {
	t.Run("withdrawn and placed again next pass", func(t *testing.T) {
		f := newBuyFixture(t)
		f.trackBuy(t, "b-1", domain.StatusFilled, "2", "2", "100", time.Minute)
		f.store.insertErr = ports.ErrWrite

		out := f.rec.Reconcile(context.Background(), "b-1")
		assert.ErrorIs(t, out.Err, ports.ErrWrite)
		assert.NotErrorIs(t, out.Err, ports.ErrDataIntegrity)
		assert.Equal(t, []string{"v-1"}, f.venue.canceled)
		assert.True(t, f.buyTracked("b-1"))

		f.store.insertErr = nil
		out = f.rec.Reconcile(context.Background(), "b-1")
		require.NoError(t, out.Err)
		assert.Equal(t, "place_sell", out.Action)
		require.Len(t, f.store.sells, 1)
		assert.Equal(t, "v-2", f.store.sells[0].ID)
		assert.False(t, f.buyTracked("b-1"))
	})

	t.Run("filled at once drops the buy", func(t *testing.T) {
		f := newBuyFixture(t)
		f.trackBuy(t, "b-1", domain.StatusCanceled, "3", "1", "10", time.Minute)
		f.store.insertErr = ports.ErrWrite
		f.venue.filledOnSubmit = true

		out := f.rec.Reconcile(context.Background(), "b-1")
		assert.ErrorIs(t, out.Err, ports.ErrDataIntegrity)
		require.Len(t, f.logger.errors(), 1)
		assert.False(t, f.buyTracked("b-1"), "no second sell on the next pass")
		assert.Len(t, f.venue.submitted, 1)
	})
}
