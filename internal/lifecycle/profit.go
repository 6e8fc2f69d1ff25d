package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
	"swingBot/internal/ledger"
	"swingBot/internal/ports"
)

// ProfitRealizer books the result of a matched buy and sell into the ledger.
type ProfitRealizer struct {
	venue    ports.Venue
	store    ports.LedgerStore
	balances *ledger.Accessor
	logger   ports.Logger
	plowback bool
	now      func() time.Time
}

// NewProfitRealizer creates a profit realizer. With plowback the whole sale returns to active capital.
func NewProfitRealizer(venue ports.Venue, store ports.LedgerStore, logger ports.Logger, plowback bool, now func() time.Time) *ProfitRealizer {
	if now == nil {
		now = time.Now
	}
	return &ProfitRealizer{
		venue:    venue,
		store:    store,
		balances: ledger.NewAccessor(store),
		logger:   logger,
		plowback: plowback,
		now:      now,
	}
}

// Realize appends the profit row for the filled part of sell against buyID, then drops the sell record.
func (p *ProfitRealizer) Realize(ctx context.Context, buyID string, sell *domain.VenueOrder) (*domain.ProfitRow, error) {
	fields := map[string]interface{}{"buyOrderID": buyID, "sellOrderID": sell.ID}

	buy, err := p.venue.GetOrder(ctx, buyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch buy order %s: %w", buyID, err)
	}

	qty := sell.FilledQty
	buyAmount := buy.LimitPrice.Mul(qty)
	// Average price is missing on some market fills; the limit price stands in.
	sellPrice := sell.FilledAvgPrice.TakeOr(sell.LimitPrice)
	sellAmount := sellPrice.Mul(qty)
	profit := sellAmount.Sub(buyAmount)

	current, err := p.balances.Current(ctx)
	if err != nil {
		return nil, err
	}
	returned := decimal.Min(buyAmount, sellAmount)
	if p.plowback {
		returned = sellAmount
	}

	symbol := sell.Symbol
	if buy.Symbol != sell.Symbol {
		symbol = domain.MismatchMarker
		fields["buySymbol"] = buy.Symbol
		fields["sellSymbol"] = sell.Symbol
		p.logger.Error(ctx, ports.ErrDataIntegrity, "Buy and sell symbols differ, booking profit as mismatch", fields)
	}

	row := &domain.ProfitRow{
		TotalBalance:  current.Total.Add(sellAmount),
		ActiveBalance: current.Active.Add(returned),
		Time:          p.now().UTC(),
		Symbol:        symbol,
		Profit:        profit,
		BuyOrderID:    buyID,
		SellOrderID:   sell.ID,
	}
	if row.ID, err = p.store.AppendProfitRow(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to book profit: %w", err)
	}

	fields["qty"] = qty.String()
	fields["profit"] = profit.String()
	fields["totalBalance"] = row.TotalBalance.String()
	fields["activeBalance"] = row.ActiveBalance.String()
	p.logger.Info(ctx, "Profit realized", fields)

	if err := p.store.DeleteOrder(ctx, domain.Sell, sell.ID); err != nil {
		return row, fmt.Errorf("profit booked but sell record %s not removed: %w", sell.ID, err)
	}
	return row, nil
}
