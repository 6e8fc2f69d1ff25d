package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

func newTestDriver(now *time.Time) (*Driver, *fakeVenue, *memStore) {
	clock := func() time.Time { return *now }
	venue := newFakeVenue(clock)
	store := newMemStore(d("1000"))
	drv := NewDriver(Config{
		BuyOrderCheckingTime: testGrace,
		SellOrderLifetime:    testLifetime,
		SellTargetPercent:    d("5"),
		Now:                  clock,
	}, venue, store, &mockLogger{})
	return drv, venue, store
}

func TestDriver_FilledBuyBecomesTrackedSell(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	drv, venue, store := newTestDriver(&now)

	venue.put(&domain.VenueOrder{
		ID: "b-1", Symbol: "AAA", Side: domain.Buy, Type: domain.OrderTypeLimit, Status: domain.StatusFilled,
		Qty: d("2"), FilledQty: d("2"), LimitPrice: d("100"), CreatedAt: now.Add(-time.Minute),
	})
	require.NoError(t, store.InsertOrder(context.Background(), &domain.OrderRecord{ID: "b-1", Symbol: "AAA", Side: domain.Buy}))

	report, err := drv.RunPass(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, Outcome{OrderID: "b-1", Side: domain.Buy, Action: "place_sell"}, report.Outcomes[0])
	assert.Equal(t, Outcome{OrderID: "v-1", Side: domain.Sell, Action: "none"}, report.Outcomes[1])
	assert.Zero(t, report.Failed())

	// The target sell fills before the next pass.
	venue.orders["v-1"].Status = domain.StatusFilled
	venue.orders["v-1"].FilledQty = d("2")
	venue.orders["v-1"].FilledAvgPrice = optional.Some(d("105"))
	now = now.Add(time.Hour)

	report, err = drv.RunPass(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "realize", report.Outcomes[0].Action)
	assert.Equal(t, "10", report.TodayProfit.String())
	assert.Equal(t, "10", report.TotalProfit.String())
	assert.Empty(t, store.buys)
	assert.Empty(t, store.sells)
}

func TestDriver_ErrorsAreContainedPerOrder(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	drv, venue, store := newTestDriver(&now)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("b-%d", i)
		venue.put(&domain.VenueOrder{
			ID: id, Symbol: "AAA", Side: domain.Buy, Type: domain.OrderTypeLimit, Status: domain.StatusNew,
			Qty: d("1"), LimitPrice: d("10"), CreatedAt: now.Add(-2 * testGrace),
		})
		require.NoError(t, store.InsertOrder(ctx, &domain.OrderRecord{ID: id, Symbol: "AAA", Side: domain.Buy}))
	}
	venue.getErr["b-2"] = fmt.Errorf("timeout: %w", ports.ErrVenue)

	report, err := drv.RunPass(ctx)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 1, report.Failed())
	assert.ErrorIs(t, report.Outcomes[1].Err, ports.ErrVenue)
	assert.Equal(t, []string{"b-1", "b-3"}, venue.canceled)

	ids, err := store.ListOrderIDs(ctx, domain.Buy)
	require.NoError(t, err)
	assert.Equal(t, []string{"b-2"}, ids, "failed order is retried next pass")
}

func TestDriver_UnreadableLedgerAbortsPass(t *testing.T) {
	now := time.Now()
	drv, _, store := newTestDriver(&now)
	store.listErr = fmt.Errorf("disk gone: %w", ports.ErrLedgerUnavailable)

	report, err := drv.RunPass(context.Background())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ports.ErrLedgerUnavailable)
}

func TestDriver_CanceledContextStopsPass(t *testing.T) {
	now := time.Now()
	drv, _, store := newTestDriver(&now)
	require.NoError(t, store.InsertOrder(context.Background(), &domain.OrderRecord{ID: "b-1", Symbol: "AAA", Side: domain.Buy}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := drv.RunPass(ctx)
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
}
