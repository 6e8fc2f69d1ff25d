package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

const testLifetime = 24 * time.Hour

type sellFixture struct {
	now    time.Time
	venue  *fakeVenue
	store  *memStore
	logger *mockLogger
	rec    *SellReconciler
}

func newSellFixture(t *testing.T) *sellFixture {
	t.Helper()
	f := &sellFixture{
		now:    time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC),
		store:  newMemStore(d("1000")),
		logger: &mockLogger{},
	}
	clock := func() time.Time { return f.now }
	f.venue = newFakeVenue(clock)
	realizer := NewProfitRealizer(f.venue, f.store, f.logger, false, clock)
	f.rec = NewSellReconciler(f.venue, f.store, f.logger, realizer, testLifetime, clock)

	f.venue.put(&domain.VenueOrder{
		ID: "b-1", Symbol: "AAA", Side: domain.Buy, Type: domain.OrderTypeLimit, Status: domain.StatusFilled,
		Qty: d("4"), FilledQty: d("4"), LimitPrice: d("10"),
	})
	return f
}

func (f *sellFixture) trackSell(t *testing.T, status domain.OrderStatus, orderType domain.OrderType, filled string, elapsed time.Duration) {
	t.Helper()
	o := &domain.VenueOrder{
		ID: "s-1", Symbol: "AAA", Side: domain.Sell, Type: orderType, Status: status,
		Qty: d("4"), FilledQty: d(filled), CreatedAt: f.now.Add(-elapsed), TimeInForce: domain.TimeInForceGTC,
	}
	if orderType == domain.OrderTypeLimit {
		o.LimitPrice = d("10.5")
	}
	if d(filled).IsPositive() {
		o.FilledAvgPrice = optional.Some(d("10.5"))
	}
	f.venue.put(o)
	require.NoError(t, f.store.InsertOrder(context.Background(), &domain.OrderRecord{
		ID: "s-1", Symbol: "AAA", Side: domain.Sell, BuyOrderID: optional.Some("b-1"),
	}))
}

func TestSellReconciler_FilledRealizesProfit(t *testing.T) {
	f := newSellFixture(t)
	f.trackSell(t, domain.StatusFilled, domain.OrderTypeLimit, "4", time.Hour)

	out := f.rec.Reconcile(context.Background(), "s-1")
	require.NoError(t, out.Err)
	assert.Equal(t, "realize", out.Action)

	row := f.store.latest()
	assert.Equal(t, "2", row.Profit.String())
	assert.Equal(t, "1042", row.TotalBalance.String())
	assert.Equal(t, "1040", row.ActiveBalance.String())
	assert.Empty(t, f.store.sells)
}

func TestSellReconciler_StaleNewIsReplacedAtMarket(t *testing.T) {
	f := newSellFixture(t)
	f.trackSell(t, domain.StatusNew, domain.OrderTypeLimit, "0", testLifetime)

	out := f.rec.Reconcile(context.Background(), "s-1")
	require.NoError(t, out.Err)
	assert.Equal(t, "escalate_new", out.Action)

	assert.Equal(t, []string{"s-1"}, f.venue.canceled)
	require.Len(t, f.venue.submitted, 1)
	assert.Equal(t, domain.OrderTypeMarket, f.venue.submitted[0].Type)
	assert.Equal(t, "4", f.venue.submitted[0].Qty.String())

	require.Len(t, f.store.sells, 1)
	assert.Equal(t, "v-1", f.store.sells[0].ID)
	assert.Equal(t, "b-1", f.store.sells[0].BuyOrderID.Unwrap())
	assert.Len(t, f.store.rows, 1, "no profit booked")
}

func TestSellReconciler_StalePartialSellsRemainderAndBooksFill(t *testing.T) {
	f := newSellFixture(t)
	f.trackSell(t, domain.StatusPartiallyFilled, domain.OrderTypeLimit, "1", testLifetime+time.Minute)

	out := f.rec.Reconcile(context.Background(), "s-1")
	require.NoError(t, out.Err)
	assert.Equal(t, "escalate_partial", out.Action)

	require.Len(t, f.venue.submitted, 1)
	assert.Equal(t, "3", f.venue.submitted[0].Qty.String())

	row := f.store.latest()
	assert.Equal(t, "s-1", row.SellOrderID)
	assert.Equal(t, "0.5", row.Profit.String())

	require.Len(t, f.store.sells, 1)
	assert.Equal(t, "v-1", f.store.sells[0].ID, "only the replacement stays tracked")
}

func TestSellReconciler_MarketSellNeverEscalates(t *testing.T) {
	f := newSellFixture(t)
	f.trackSell(t, domain.StatusNew, domain.OrderTypeMarket, "0", 10*testLifetime)

	out := f.rec.Reconcile(context.Background(), "s-1")
	require.NoError(t, out.Err)
	assert.Equal(t, "none", out.Action)
	assert.Empty(t, f.venue.canceled)
	assert.Len(t, f.store.sells, 1)
}

func TestSellReconciler_Anomaly(t *testing.T) {
	f := newSellFixture(t)
	f.trackSell(t, domain.StatusExpired, domain.OrderTypeLimit, "0", testLifetime)

	out := f.rec.Reconcile(context.Background(), "s-1")
	assert.ErrorIs(t, out.Err, ports.ErrDataIntegrity)
	assert.Len(t, f.store.sells, 1)
	assert.Empty(t, f.venue.canceled)
}

func TestSellReconciler_MissingRecordIsResolved(t *testing.T) {
	f := newSellFixture(t)

	out := f.rec.Reconcile(context.Background(), "s-404")
	require.NoError(t, out.Err)
	assert.Equal(t, "resolved", out.Action)
	assert.Empty(t, f.venue.canceled)
	assert.Empty(t, f.logger.errors())
}

func TestSellReconciler_EscalationResumesAfterCancel(t *testing.T) {
	t.Run("replacement submit fails", func(t *testing.T) {
		f := newSellFixture(t)
		f.trackSell(t, domain.StatusNew, domain.OrderTypeLimit, "0", testLifetime)
		f.venue.submitErr = ports.ErrVenue

		out := f.rec.Reconcile(context.Background(), "s-1")
		assert.ErrorIs(t, out.Err, ports.ErrVenue)
		assert.Equal(t, []string{"s-1"}, f.venue.canceled)
		require.Len(t, f.store.sells, 1)

		f.venue.submitErr = nil
		out = f.rec.Reconcile(context.Background(), "s-1")
		require.NoError(t, out.Err)
		assert.Equal(t, "resume", out.Action)

		require.Len(t, f.venue.submitted, 1)
		assert.Equal(t, domain.OrderTypeMarket, f.venue.submitted[0].Type)
		assert.Equal(t, "4", f.venue.submitted[0].Qty.String())
		require.Len(t, f.store.sells, 1)
		assert.Equal(t, "v-1", f.store.sells[0].ID)
		assert.Equal(t, "b-1", f.store.sells[0].BuyOrderID.Unwrap())
		assert.Len(t, f.store.rows, 1, "no profit booked")
	})

	t.Run("booking the fill fails", func(t *testing.T) {
		f := newSellFixture(t)
		f.trackSell(t, domain.StatusPartiallyFilled, domain.OrderTypeLimit, "1", testLifetime)
		f.venue.getErr["b-1"] = ports.ErrVenue

		out := f.rec.Reconcile(context.Background(), "s-1")
		assert.ErrorIs(t, out.Err, ports.ErrVenue)
		require.Len(t, f.venue.submitted, 1)
		assert.Len(t, f.store.rows, 1)

		delete(f.venue.getErr, "b-1")
		out = f.rec.Reconcile(context.Background(), "s-1")
		require.NoError(t, out.Err)
		assert.Equal(t, "resume", out.Action)

		assert.Len(t, f.venue.submitted, 1, "remainder is not sold twice")
		row := f.store.latest()
		assert.Equal(t, "s-1", row.SellOrderID)
		assert.Equal(t, "0.5", row.Profit.String())
		require.Len(t, f.store.sells, 1)
		assert.Equal(t, "v-1", f.store.sells[0].ID)
	})
}

func TestSellReconciler_UntrackedReplacementIsAnomaly(t *testing.T) {
	f := newSellFixture(t)
	f.trackSell(t, domain.StatusNew, domain.OrderTypeLimit, "0", testLifetime)
	f.store.insertErr = ports.ErrWrite

	out := f.rec.Reconcile(context.Background(), "s-1")
	assert.ErrorIs(t, out.Err, ports.ErrDataIntegrity)
	assert.ErrorIs(t, out.Err, ports.ErrWrite)
	require.Len(t, f.logger.errors(), 1)
	require.Len(t, f.store.sells, 1)
	assert.Equal(t, "s-1", f.store.sells[0].ID)
}

func TestSellReconciler_CancelFailureDefers(t *testing.T) {
	f := newSellFixture(t)
	f.trackSell(t, domain.StatusNew, domain.OrderTypeLimit, "0", testLifetime)
	f.venue.cancelErr = ports.ErrVenue

	out := f.rec.Reconcile(context.Background(), "s-1")
	assert.ErrorIs(t, out.Err, ports.ErrVenue)
	assert.Empty(t, f.venue.submitted)
	require.Len(t, f.store.sells, 1)
	assert.Equal(t, "s-1", f.store.sells[0].ID)
}
