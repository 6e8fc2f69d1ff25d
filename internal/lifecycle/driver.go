// Package lifecycle reconciles locally tracked orders against the venue and books realized profit.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

// Config holds the escalation and accounting settings of the lifecycle engine.
type Config struct {
	BuyOrderCheckingTime time.Duration   // Grace window T for buys
	SellOrderLifetime    time.Duration   // Lifetime L for limit sells
	SellTargetPercent    decimal.Decimal // Markup of the target sell over the buy price
	Plowback             bool
	Now                  func() time.Time // Defaults to time.Now
}

// Outcome is the result of one reconciliation step for one order.
type Outcome struct {
	OrderID string
	Side    domain.OrderSide
	Action  string
	Err     error
}

// PassReport summarizes a reconciliation pass.
type PassReport struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcomes    []Outcome
	TodayProfit decimal.Decimal
	TotalProfit decimal.Decimal
}

// Failed counts the steps that ended in an error.
func (r *PassReport) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Driver runs reconciliation passes over every open order.
type Driver struct {
	buys   *BuyReconciler
	sells  *SellReconciler
	store  ports.LedgerStore
	logger ports.Logger
	now    func() time.Time
}

// NewDriver wires the reconcilers and the profit realizer.
func NewDriver(cfg Config, venue ports.Venue, store ports.LedgerStore, logger ports.Logger) *Driver {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	realizer := NewProfitRealizer(venue, store, logger, cfg.Plowback, now)
	return &Driver{
		buys:   NewBuyReconciler(venue, store, logger, cfg.BuyOrderCheckingTime, cfg.SellTargetPercent, now),
		sells:  NewSellReconciler(venue, store, logger, realizer, cfg.SellOrderLifetime, now),
		store:  store,
		logger: logger,
		now:    now,
	}
}

// RunPass reconciles all open buys, then all open sells, then reports profit.
// Per-order failures are recorded in the report; only an unreadable order list aborts the pass.
func (d *Driver) RunPass(ctx context.Context) (*PassReport, error) {
	report := &PassReport{StartedAt: d.now().UTC()}

	buyIDs, err := d.store.ListOrderIDs(ctx, domain.Buy)
	if err != nil {
		return nil, fmt.Errorf("failed to list open buy orders: %w", err)
	}
	for _, id := range buyIDs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pass interrupted: %w: %w", ports.ErrContextCanceled, err)
		}
		report.Outcomes = append(report.Outcomes, d.buys.Reconcile(ctx, id))
	}

	// Sells placed by this pass are picked up right away.
	sellIDs, err := d.store.ListOrderIDs(ctx, domain.Sell)
	if err != nil {
		return nil, fmt.Errorf("failed to list open sell orders: %w", err)
	}
	for _, id := range sellIDs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pass interrupted: %w: %w", ports.ErrContextCanceled, err)
		}
		report.Outcomes = append(report.Outcomes, d.sells.Reconcile(ctx, id))
	}

	for _, o := range report.Outcomes {
		if o.Err != nil {
			d.logger.Error(ctx, o.Err, "Order step deferred to next pass", map[string]interface{}{
				"orderID": o.OrderID,
				"side":    o.Side,
				"action":  o.Action,
			})
		}
	}

	d.reportProfit(ctx, report)
	report.FinishedAt = d.now().UTC()
	return report, nil
}

func (d *Driver) reportProfit(ctx context.Context, report *PassReport) {
	now := d.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	today, err := d.store.ProfitSince(ctx, startOfDay)
	if err != nil {
		d.logger.Error(ctx, err, "Failed to read today's profit")
		return
	}
	total, err := d.store.TotalProfit(ctx)
	if err != nil {
		d.logger.Error(ctx, err, "Failed to read total profit")
		return
	}
	report.TodayProfit, report.TotalProfit = today, total

	d.logger.Info(ctx, "Reconciliation pass complete", map[string]interface{}{
		"steps":       len(report.Outcomes),
		"failed":      report.Failed(),
		"todayProfit": today.String(),
		"totalProfit": total.String(),
	})
}
