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

// BuyReconciler advances tracked buy orders using venue status and the grace window.
type BuyReconciler struct {
	venue     ports.Venue
	store     ports.LedgerStore
	logger    ports.Logger
	grace     time.Duration
	targetPct decimal.Decimal
	now       func() time.Time
}

// NewBuyReconciler creates a buy reconciler. Filled buys are resold targetPct percent higher.
func NewBuyReconciler(venue ports.Venue, store ports.LedgerStore, logger ports.Logger, grace time.Duration, targetPct decimal.Decimal, now func() time.Time) *BuyReconciler {
	if now == nil {
		now = time.Now
	}
	return &BuyReconciler{
		venue:     venue,
		store:     store,
		logger:    logger,
		grace:     grace,
		targetPct: targetPct,
		now:       now,
	}
}

// Reconcile runs one step for the buy order id. Any failure leaves the remaining state for the next pass.
func (r *BuyReconciler) Reconcile(ctx context.Context, id string) Outcome {
	out := Outcome{OrderID: id, Side: domain.Buy, Action: BuyNone.String()}

	order, err := r.venue.GetOrder(ctx, id)
	if err != nil {
		out.Err = fmt.Errorf("failed to fetch buy order: %w", err)
		return out
	}

	now := r.now()
	elapsed := now.Sub(order.CreatedAt)
	action := DecideBuy(order.Status, order.FilledQty, elapsed, r.grace)
	out.Action = action.String()

	fields := map[string]interface{}{
		"orderID":   id,
		"symbol":    order.Symbol,
		"status":    order.Status,
		"filledQty": order.FilledQty.String(),
		"elapsed":   elapsed.Round(time.Second).String(),
		"action":    action.String(),
	}

	switch action {
	case BuyNone:
		return out

	case BuyWait, BuyRestamp:
		if err := r.store.UpdateCheckedAt(ctx, domain.Buy, id, now); err != nil {
			out.Err = fmt.Errorf("failed to stamp buy order: %w", err)
			return out
		}
		r.logger.Debug(ctx, "Buy order partially filled, waiting", fields)

	case BuyPlaceSell:
		target := targetSellPrice(order.LimitPrice, r.targetPct)
		fields["targetPrice"] = target.StringFixed(2)
		if err := r.placeSell(ctx, order, domain.LimitSell(order.Symbol, order.Qty, target)); err != nil {
			out.Err = err
			return out
		}
		r.logger.Info(ctx, "Buy order filled, target sell placed", fields)

	case BuyDrop:
		if err := r.store.DeleteOrder(ctx, domain.Buy, id); err != nil {
			out.Err = fmt.Errorf("failed to drop canceled buy order: %w", err)
			return out
		}
		r.logger.Info(ctx, "Canceled buy order dropped", fields)

	case BuySalvage:
		if err := r.placeSell(ctx, order, domain.MarketSell(order.Symbol, order.FilledQty)); err != nil {
			out.Err = err
			return out
		}
		r.logger.Info(ctx, "Canceled buy order had fills, market sell placed", fields)

	case BuyCancelSalvage:
		if err := r.venue.CancelOrder(ctx, id); err != nil {
			out.Err = fmt.Errorf("failed to cancel stale partially filled buy: %w", err)
			return out
		}
		if err := r.placeSell(ctx, order, domain.MarketSell(order.Symbol, order.FilledQty)); err != nil {
			out.Err = err
			return out
		}
		r.logger.Info(ctx, "Stale partially filled buy canceled, market sell placed", fields)

	case BuyCancel:
		if err := r.venue.CancelOrder(ctx, id); err != nil {
			out.Err = fmt.Errorf("failed to cancel stale buy: %w", err)
			return out
		}
		if err := r.store.DeleteOrder(ctx, domain.Buy, id); err != nil {
			out.Err = fmt.Errorf("failed to drop stale buy order: %w", err)
			return out
		}
		r.logger.Info(ctx, "Stale buy order canceled", fields)

	case BuyAnomaly:
		out.Err = fmt.Errorf("buy order %s has unexpected status %s: %w", id, order.Status, ports.ErrDataIntegrity)
		r.logger.Error(ctx, out.Err, "Buy order needs operator attention", fields)
	}
	return out
}

// placeSell submits a sell closing buy, tracks it, then drops the buy record.
func (r *BuyReconciler) placeSell(ctx context.Context, buy *domain.VenueOrder, req domain.OrderRequest) error {
	sell, err := r.venue.SubmitOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to submit sell for buy %s: %w", buy.ID, err)
	}
	rec := &domain.OrderRecord{
		ID:         sell.ID,
		Symbol:     sell.Symbol,
		Side:       domain.Sell,
		CreatedAt:  r.now().UTC(),
		BuyOrderID: optional.Some(buy.ID),
	}
	if err := r.store.InsertOrder(ctx, rec); err != nil {
		return r.withdrawUntracked(ctx, buy.ID, sell.ID, err)
	}
	if err := r.store.DeleteOrder(ctx, domain.Buy, buy.ID); err != nil {
		return fmt.Errorf("sell %s tracked but buy record not removed: %w", sell.ID, err)
	}
	return nil
}

// withdrawUntracked cancels a sell the ledger failed to record, so the buy can place it again on
// the next pass. When the sell cannot be withdrawn the buy record is dropped instead, so no second
// sell is placed, and the anomaly is reported for manual booking.
func (r *BuyReconciler) withdrawUntracked(ctx context.Context, buyID, sellID string, insertErr error) error {
	fields := map[string]interface{}{"orderID": sellID, "buyOrderID": buyID}
	if err := r.venue.CancelOrder(ctx, sellID); err != nil {
		fields["cancelError"] = err.Error()
		if delErr := r.store.DeleteOrder(ctx, domain.Buy, buyID); delErr != nil {
			fields["deleteError"] = delErr.Error()
		}
		err = fmt.Errorf("sell %s submitted but not tracked: %w: %w", sellID, ports.ErrDataIntegrity, insertErr)
		r.logger.Error(ctx, err, "Untracked sell at the venue needs operator attention", fields)
		return err
	}
	r.logger.Warn(ctx, "Untracked sell withdrawn, buy stays tracked", fields)
	return fmt.Errorf("sell %s submitted but not tracked, withdrawn: %w", sellID, insertErr)
}
