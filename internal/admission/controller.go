package admission

import (
	"context"
	"fmt"
	"time"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

// Config holds the order-count limits checked before a new buy.
type Config struct {
	HourlyLimitation   int // Max buy orders created at the venue in the trailing hour
	SymbolicLimitation int // Max open orders (buy + sell) per symbol in the ledger
}

// Controller gates new buys on order-count limits. It never mutates state.
type Controller struct {
	config Config
	venue  ports.Venue
	store  ports.LedgerStore
	logger ports.Logger
	now    func() time.Time
}

// NewController creates a new admission controller.
func NewController(config Config, venue ports.Venue, store ports.LedgerStore, logger ports.Logger) *Controller {
	return &Controller{
		config: config,
		venue:  venue,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// HourlyCountOK reports whether fewer buy orders than the hourly limit were created in the last 60 minutes.
// Any venue failure denies.
func (c *Controller) HourlyCountOK(ctx context.Context) bool {
	return c.OpenHourlyWindow(ctx).OK(ctx)
}

// OpenHourlyWindow lists the trailing hour at the venue once. The window then tracks the buys
// placed during one scan through Record, so a scan over many symbols costs one listing.
// A venue failure yields a window that denies.
func (c *Controller) OpenHourlyWindow(ctx context.Context) *HourlyWindow {
	w := &HourlyWindow{limit: c.config.HourlyLimitation, logger: c.logger}
	count, err := c.hourlyBuys(ctx)
	if err != nil {
		c.logger.Error(ctx, err, "Hourly order count unavailable, denying new buys")
		w.failed = true
		return w
	}
	w.count = count
	return w
}

func (c *Controller) hourlyBuys(ctx context.Context) (int, error) {
	since := c.now().Add(-time.Hour)
	orders, err := c.venue.ListOrders(ctx, since, domain.FilterAll)
	if err != nil {
		return 0, fmt.Errorf("failed to list orders since %s: %w", since.Format(time.RFC3339), err)
	}

	count := 0
	for _, o := range orders {
		if o.Side == domain.Buy {
			count++
		}
	}
	return count, nil
}

// HourlyWindow is the trailing-hour buy count for one scan.
type HourlyWindow struct {
	count  int
	limit  int
	failed bool
	logger ports.Logger
}

// OK reports whether another buy fits in the window.
func (w *HourlyWindow) OK(ctx context.Context) bool {
	if w.failed {
		return false
	}
	ok := withinLimit(w.count, w.limit)
	if !ok {
		w.logger.Info(ctx, "Hourly order limit reached", map[string]interface{}{
			"count": w.count,
			"limit": w.limit,
		})
	}
	return ok
}

// Record counts a buy placed since the window was opened.
func (w *HourlyWindow) Record() {
	w.count++
}

// SymbolCountOK reports whether the open buys and sells for symbol are below the per-symbol limit.
// A ledger failure denies.
func (c *Controller) SymbolCountOK(ctx context.Context, symbol string) bool {
	count, err := c.openOrders(ctx, symbol)
	if err != nil {
		c.logger.Error(ctx, err, "Symbol order count unavailable, denying new buy", map[string]interface{}{"symbol": symbol})
		return false
	}
	return withinLimit(count, c.config.SymbolicLimitation)
}

func (c *Controller) openOrders(ctx context.Context, symbol string) (int, error) {
	buys, err := c.store.CountOrdersBySymbol(ctx, domain.Buy, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to count open buy orders for %s: %w", symbol, err)
	}
	sells, err := c.store.CountOrdersBySymbol(ctx, domain.Sell, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to count open sell orders for %s: %w", symbol, err)
	}
	return buys + sells, nil
}

func withinLimit(count, limit int) bool {
	return count < limit
}
