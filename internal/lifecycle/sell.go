package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moznion/go-optional"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

// SellReconciler advances tracked sell orders using venue status and the sell lifetime.
type SellReconciler struct {
	venue    ports.Venue
	store    ports.LedgerStore
	logger   ports.Logger
	realizer *ProfitRealizer
	lifetime time.Duration
	now      func() time.Time
}

// NewSellReconciler creates a sell reconciler booking fills through realizer.
func NewSellReconciler(venue ports.Venue, store ports.LedgerStore, logger ports.Logger, realizer *ProfitRealizer, lifetime time.Duration, now func() time.Time) *SellReconciler {
	if now == nil {
		now = time.Now
	}
	return &SellReconciler{
		venue:    venue,
		store:    store,
		logger:   logger,
		realizer: realizer,
		lifetime: lifetime,
		now:      now,
	}
}

// actionResolved reports a sell whose record was already gone.
const actionResolved = "resolved"

// Reconcile runs one step for the sell order id.
func (r *SellReconciler) Reconcile(ctx context.Context, id string) Outcome {
	out := Outcome{OrderID: id, Side: domain.Sell, Action: SellNone.String()}

	buyID, err := r.store.GetBuyOrderID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			// Already resolved by an earlier step of this pass.
			r.logger.Warn(ctx, "Sell order has no tracked record, skipping", map[string]interface{}{"orderID": id})
			out.Action = actionResolved
			return out
		}
		out.Err = fmt.Errorf("failed to resolve buy order for sell: %w", err)
		return out
	}

	order, err := r.venue.GetOrder(ctx, id)
	if err != nil {
		out.Err = fmt.Errorf("failed to fetch sell order: %w", err)
		return out
	}

	elapsed := r.now().Sub(order.CreatedAt)
	action := DecideSell(order.Status, order.Type, elapsed, r.lifetime)
	out.Action = action.String()

	fields := map[string]interface{}{
		"orderID":    id,
		"buyOrderID": buyID,
		"symbol":     order.Symbol,
		"status":     order.Status,
		"type":       order.Type,
		"elapsed":    elapsed.Round(time.Second).String(),
		"action":     action.String(),
	}

	switch action {
	case SellNone:
		return out

	case SellRealize:
		if _, err := r.realizer.Realize(ctx, buyID, order); err != nil {
			out.Err = err
		}

	case SellEscalatePartial, SellEscalateNew:
		if err := r.venue.CancelOrder(ctx, id); err != nil {
			out.Err = fmt.Errorf("failed to cancel stale sell: %w", err)
			return out
		}
		if err := r.settle(ctx, r.refresh(ctx, order), buyID); err != nil {
			out.Err = err
			return out
		}
		r.logger.Info(ctx, "Stale sell canceled, remainder sold at market", fields)

	case SellResume:
		if err := r.settle(ctx, order, buyID); err != nil {
			out.Err = err
			return out
		}
		r.logger.Info(ctx, "Canceled sell settled", fields)

	case SellAnomaly:
		out.Err = fmt.Errorf("sell order %s has unexpected status %s: %w", id, order.Status, ports.ErrDataIntegrity)
		r.logger.Error(ctx, out.Err, "Sell order needs operator attention", fields)
	}
	return out
}

// refresh re-reads an order after cancel so late fills are counted. Falls back to the earlier snapshot.
func (r *SellReconciler) refresh(ctx context.Context, order *domain.VenueOrder) *domain.VenueOrder {
	latest, err := r.venue.GetOrder(ctx, order.ID)
	if err != nil {
		r.logger.Warn(ctx, "Could not re-read canceled sell, using earlier fill", map[string]interface{}{
			"orderID": order.ID,
			"error":   err.Error(),
		})
		return order
	}
	return latest
}

// settle finishes a canceled sell: the unfilled rest is sold at market unless a replacement is
// already tracked, then the fill is booked, or the record dropped when nothing filled.
// Every step can be repeated on a later pass.
func (r *SellReconciler) settle(ctx context.Context, order *domain.VenueOrder, buyID string) error {
	if rest := order.RemainingQty(); rest.IsPositive() {
		replaced, err := r.replacementTracked(ctx, order.ID, buyID)
		if err != nil {
			return err
		}
		if !replaced {
			if err := r.replace(ctx, order, buyID, domain.MarketSell(order.Symbol, rest)); err != nil {
				return err
			}
		}
	}
	if order.FilledQty.IsPositive() {
		_, err := r.realizer.Realize(ctx, buyID, order)
		return err
	}
	if err := r.store.DeleteOrder(ctx, domain.Sell, order.ID); err != nil {
		return fmt.Errorf("failed to drop replaced sell order: %w", err)
	}
	return nil
}

// replacementTracked reports whether a sell other than sellID already closes buyID.
func (r *SellReconciler) replacementTracked(ctx context.Context, sellID, buyID string) (bool, error) {
	ids, err := r.store.ListOrderIDs(ctx, domain.Sell)
	if err != nil {
		return false, fmt.Errorf("failed to list sell orders: %w", err)
	}
	for _, other := range ids {
		if other == sellID {
			continue
		}
		ref, err := r.store.GetBuyOrderID(ctx, other)
		if errors.Is(err, ports.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to resolve buy order for sell %s: %w", other, err)
		}
		if ref == buyID {
			return true, nil
		}
	}
	return false, nil
}

// replace submits a market sell closing buyID and tracks it.
func (r *SellReconciler) replace(ctx context.Context, old *domain.VenueOrder, buyID string, req domain.OrderRequest) error {
	sell, err := r.venue.SubmitOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to submit market sell replacing %s: %w", old.ID, err)
	}
	rec := &domain.OrderRecord{
		ID:         sell.ID,
		Symbol:     sell.Symbol,
		Side:       domain.Sell,
		CreatedAt:  r.now().UTC(),
		BuyOrderID: optional.Some(buyID),
	}
	if err := r.store.InsertOrder(ctx, rec); err != nil {
		// A later pass would sell the same quantity again.
		err = fmt.Errorf("market sell %s submitted but not tracked: %w: %w", sell.ID, ports.ErrDataIntegrity, err)
		r.logger.Error(ctx, err, "Untracked sell at the venue needs operator attention", map[string]interface{}{
			"orderID":    sell.ID,
			"buyOrderID": buyID,
			"replaces":   old.ID,
		})
		return err
	}
	return nil
}
