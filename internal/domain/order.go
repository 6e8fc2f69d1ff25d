package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// OrderRecord is a locally tracked open order, as kept by the ledger store.
type OrderRecord struct {
	ID        string    // Venue-assigned order ID
	Symbol    string    // Traded symbol
	Side      OrderSide // Which open-orders table the record lives in
	CreatedAt time.Time // Local insert time
	CheckedAt optional.Option[time.Time]
	// BuyOrderID links a sell record back to the buy order it closes. Always None for buys.
	BuyOrderID optional.Option[string]
}

// VenueOrder is the venue's view of an order.
type VenueOrder struct {
	ID             string
	Symbol         string
	Side           OrderSide
	Type           OrderType
	Status         OrderStatus
	Qty            decimal.Decimal
	FilledQty      decimal.Decimal
	LimitPrice     decimal.Decimal // Zero for market orders
	FilledAvgPrice optional.Option[decimal.Decimal]
	CreatedAt      time.Time
	TimeInForce    TimeInForce
}

// RemainingQty is the part of the order that has not been filled.
func (o *VenueOrder) RemainingQty() decimal.Decimal {
	return o.Qty.Sub(o.FilledQty)
}

// OrderRequest describes an order to submit at the venue.
type OrderRequest struct {
	Symbol      string      `validate:"required"`
	Side        OrderSide   `validate:"required,oneof=buy sell"`
	Type        OrderType   `validate:"required,oneof=market limit"`
	TimeInForce TimeInForce `validate:"required,oneof=day gtc"`
	Qty         decimal.Decimal
	LimitPrice  optional.Option[decimal.Decimal]
}

var validate = validator.New()

// Validate checks the request before it is sent to the venue.
func (r *OrderRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid order request: %w", err)
	}
	if !r.Qty.IsPositive() {
		return fmt.Errorf("invalid order request: quantity %s must be positive", r.Qty)
	}
	switch r.Type {
	case OrderTypeLimit:
		if r.LimitPrice.IsNone() || !r.LimitPrice.Unwrap().IsPositive() {
			return fmt.Errorf("invalid order request: limit order for %s needs a positive limit price", r.Symbol)
		}
	case OrderTypeMarket:
		if r.LimitPrice.IsSome() {
			return fmt.Errorf("invalid order request: market order for %s must not carry a limit price", r.Symbol)
		}
	}
	return nil
}

// LimitBuy builds a day limit buy request.
func LimitBuy(symbol string, qty, price decimal.Decimal) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Side:        Buy,
		Type:        OrderTypeLimit,
		TimeInForce: TimeInForceDay,
		Qty:         qty,
		LimitPrice:  optional.Some(price),
	}
}

// LimitSell builds a good-till-canceled limit sell request.
func LimitSell(symbol string, qty, price decimal.Decimal) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Side:        Sell,
		Type:        OrderTypeLimit,
		TimeInForce: TimeInForceGTC,
		Qty:         qty,
		LimitPrice:  optional.Some(price),
	}
}

// MarketSell builds a good-till-canceled market sell request.
func MarketSell(symbol string, qty decimal.Decimal) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Side:        Sell,
		Type:        OrderTypeMarket,
		TimeInForce: TimeInForceGTC,
		Qty:         qty,
		LimitPrice:  optional.None[decimal.Decimal](),
	}
}

// MarketClock reports whether the venue currently accepts orders.
type MarketClock struct {
	Timestamp time.Time
	IsOpen    bool
}

// Asset is an instrument listed at the venue.
type Asset struct {
	Symbol   string
	Tradable bool
}
