package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
)

// BuyAction is the step the buy reconciler takes for one tracked buy order.
type BuyAction int

const (
	BuyNone          BuyAction = iota // Nothing to do yet
	BuyWait                           // Partially filled inside the first grace window
	BuyRestamp                        // Partially filled inside the second grace window
	BuyPlaceSell                      // Filled: place the target limit sell
	BuyDrop                           // Canceled with nothing filled
	BuySalvage                        // Canceled with a partial fill: market sell the fill
	BuyCancelSalvage                  // Partial fill past 2T: cancel, then market sell the fill
	BuyCancel                         // Never filled past T
	BuyAnomaly                        // Unexpected status past T
)

func (a BuyAction) String() string {
	switch a {
	case BuyNone:
		return "none"
	case BuyWait:
		return "wait"
	case BuyRestamp:
		return "restamp"
	case BuyPlaceSell:
		return "place_sell"
	case BuyDrop:
		return "drop"
	case BuySalvage:
		return "salvage"
	case BuyCancelSalvage:
		return "cancel_salvage"
	case BuyCancel:
		return "cancel"
	case BuyAnomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}

// DecideBuy maps a buy order's status, filled quantity and age against the grace window to an action.
func DecideBuy(status domain.OrderStatus, filledQty decimal.Decimal, elapsed, grace time.Duration) BuyAction {
	switch status {
	case domain.StatusFilled:
		return BuyPlaceSell
	case domain.StatusCanceled:
		if filledQty.IsPositive() {
			return BuySalvage
		}
		return BuyDrop
	case domain.StatusPartiallyFilled:
		switch {
		case elapsed < grace:
			return BuyWait
		case elapsed < 2*grace:
			return BuyRestamp
		default:
			return BuyCancelSalvage
		}
	case domain.StatusNew:
		if elapsed >= grace {
			return BuyCancel
		}
		return BuyNone
	default:
		if elapsed >= grace {
			return BuyAnomaly
		}
		return BuyNone
	}
}

// SellAction is the step the sell reconciler takes for one tracked sell order.
type SellAction int

const (
	SellNone            SellAction = iota
	SellRealize                    // Filled: book the profit
	SellEscalatePartial            // Partial fill past L: cancel, market sell the rest, book the fill
	SellEscalateNew                // Unfilled past L: cancel, replace with a market sell
	SellResume                     // Canceled past L: finish an escalation left half done
	SellAnomaly                    // Unexpected status past L
)

func (a SellAction) String() string {
	switch a {
	case SellNone:
		return "none"
	case SellRealize:
		return "realize"
	case SellEscalatePartial:
		return "escalate_partial"
	case SellEscalateNew:
		return "escalate_new"
	case SellResume:
		return "resume"
	case SellAnomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}

// DecideSell maps a sell order's status, type and age against the lifetime to an action.
// Market sells are never escalated. A canceled limit sell past L is only ever left behind by an
// escalation that failed after its cancel, so it is resumed.
func DecideSell(status domain.OrderStatus, orderType domain.OrderType, elapsed, lifetime time.Duration) SellAction {
	if status == domain.StatusFilled {
		return SellRealize
	}
	if orderType == domain.OrderTypeMarket || elapsed < lifetime {
		return SellNone
	}
	switch status {
	case domain.StatusPartiallyFilled:
		return SellEscalatePartial
	case domain.StatusNew:
		return SellEscalateNew
	case domain.StatusCanceled:
		return SellResume
	default:
		return SellAnomaly
	}
}

// targetSellPrice is the buy price marked up by pct percent, rounded to cents.
func targetSellPrice(buyPrice, pct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(pct.Div(decimal.NewFromInt(100)))
	return buyPrice.Mul(factor).Round(2)
}
