package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
)

// Strategy decides whether a symbol should be bought now.
type Strategy interface {
	// Interval and RequiredDataPoints describe the candles ShouldEnter expects, oldest first.
	Interval() string
	RequiredDataPoints() int

	// ShouldEnter returns true and the entry price when the candles give a buy signal.
	ShouldEnter(ctx context.Context, symbol string, klines []*domain.Kline) (bool, decimal.Decimal)
}
