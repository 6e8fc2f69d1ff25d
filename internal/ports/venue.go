package ports

import (
	"context"
	"time"

	"swingBot/internal/domain"
)

// Venue is the execution venue the bot trades against.
// Implementations return errors wrapping ErrVenue.
type Venue interface {
	// SubmitOrder places an order and returns the venue's view of it.
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (*domain.VenueOrder, error)

	// CancelOrder cancels a working order.
	CancelOrder(ctx context.Context, orderID string) error

	// GetOrder fetches the current state of an order.
	GetOrder(ctx context.Context, orderID string) (*domain.VenueOrder, error)

	// ListOrders returns orders created after the given time that match the filter.
	ListOrders(ctx context.Context, after time.Time, filter domain.StatusFilter) ([]*domain.VenueOrder, error)

	// Clock reports whether the market is open.
	Clock(ctx context.Context) (domain.MarketClock, error)

	// ListAssets returns the instruments listed at the venue.
	ListAssets(ctx context.Context) ([]domain.Asset, error)

	// GetKlines returns the most recent candles for a symbol, oldest first.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error)
}
