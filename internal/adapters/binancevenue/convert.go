package binancevenue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

// Binance scopes order IDs to a symbol, so the venue-facing ID carries both.
const idSeparator = ":"

func formatOrderID(symbol string, orderID int64) string {
	return symbol + idSeparator + strconv.FormatInt(orderID, 10)
}

func parseOrderID(id string) (string, int64, error) {
	i := strings.LastIndex(id, idSeparator)
	if i <= 0 || i == len(id)-1 {
		return "", 0, fmt.Errorf("%w: malformed order id %q", ports.ErrInvalidRequest, id)
	}
	n, err := strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: malformed order id %q: %w", ports.ErrInvalidRequest, id, err)
	}
	return id[:i], n, nil
}

func toStatus(s binance.OrderStatusType) domain.OrderStatus {
	switch s {
	case binance.OrderStatusTypeNew:
		return domain.StatusNew
	case binance.OrderStatusTypePartiallyFilled:
		return domain.StatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return domain.StatusFilled
	case binance.OrderStatusTypeCanceled:
		return domain.StatusCanceled
	case binance.OrderStatusTypePendingCancel:
		return domain.StatusPendingCancel
	case binance.OrderStatusTypeRejected:
		return domain.StatusRejected
	case binance.OrderStatusTypeExpired:
		return domain.StatusExpired
	default:
		return domain.StatusUnknown
	}
}

func toSide(s binance.SideType) domain.OrderSide {
	if s == binance.SideTypeSell {
		return domain.Sell
	}
	return domain.Buy
}

func fromSide(s domain.OrderSide) binance.SideType {
	if s == domain.Sell {
		return binance.SideTypeSell
	}
	return binance.SideTypeBuy
}

func toType(t binance.OrderType) domain.OrderType {
	if t == binance.OrderTypeMarket {
		return domain.OrderTypeMarket
	}
	return domain.OrderTypeLimit
}

func fromType(t domain.OrderType) binance.OrderType {
	if t == domain.OrderTypeMarket {
		return binance.OrderTypeMarket
	}
	return binance.OrderTypeLimit
}

// Spot has no day orders; both requested forces rest on the book until canceled.
func fromTimeInForce(domain.TimeInForce) binance.TimeInForceType {
	return binance.TimeInForceTypeGTC
}

func toTimeInForce(t binance.TimeInForceType) domain.TimeInForce {
	if t == binance.TimeInForceTypeGTC {
		return domain.TimeInForceGTC
	}
	return domain.TimeInForceDay
}

// parseDecimal treats empty strings as zero.
func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not parse %s '%s': %w", field, s, err)
	}
	return d, nil
}

// avgFillPrice derives the average fill price from the executed quote amount.
func avgFillPrice(executed, cumQuote decimal.Decimal) optional.Option[decimal.Decimal] {
	if !executed.IsPositive() || !cumQuote.IsPositive() {
		return optional.None[decimal.Decimal]()
	}
	return optional.Some(cumQuote.Div(executed))
}

type rawOrder struct {
	symbol, price, origQty, executedQty, cumQuote string
	orderID                                      int64
	status                                       binance.OrderStatusType
	side                                         binance.SideType
	orderType                                    binance.OrderType
	tif                                          binance.TimeInForceType
	timeMs                                       int64
}

func (r rawOrder) toVenueOrder() (*domain.VenueOrder, error) {
	qty, err := parseDecimal("quantity", r.origQty)
	if err != nil {
		return nil, err
	}
	filled, err := parseDecimal("executed quantity", r.executedQty)
	if err != nil {
		return nil, err
	}
	price, err := parseDecimal("price", r.price)
	if err != nil {
		return nil, err
	}
	cumQuote, err := parseDecimal("cumulative quote quantity", r.cumQuote)
	if err != nil {
		return nil, err
	}
	return &domain.VenueOrder{
		ID:             formatOrderID(r.symbol, r.orderID),
		Symbol:         r.symbol,
		Side:           toSide(r.side),
		Type:           toType(r.orderType),
		Status:         toStatus(r.status),
		Qty:            qty,
		FilledQty:      filled,
		LimitPrice:     price,
		FilledAvgPrice: avgFillPrice(filled, cumQuote),
		CreatedAt:      time.UnixMilli(r.timeMs).UTC(),
		TimeInForce:    toTimeInForce(r.tif),
	}, nil
}

func fromOrder(o *binance.Order) (*domain.VenueOrder, error) {
	return rawOrder{
		symbol: o.Symbol, orderID: o.OrderID, price: o.Price,
		origQty: o.OrigQuantity, executedQty: o.ExecutedQuantity, cumQuote: o.CummulativeQuoteQuantity,
		status: o.Status, side: o.Side, orderType: o.Type, tif: o.TimeInForce, timeMs: o.Time,
	}.toVenueOrder()
}

func fromCreateResponse(o *binance.CreateOrderResponse) (*domain.VenueOrder, error) {
	return rawOrder{
		symbol: o.Symbol, orderID: o.OrderID, price: o.Price,
		origQty: o.OrigQuantity, executedQty: o.ExecutedQuantity, cumQuote: o.CummulativeQuoteQuantity,
		status: o.Status, side: o.Side, orderType: o.Type, tif: o.TimeInForce, timeMs: o.TransactTime,
	}.toVenueOrder()
}

func fromKline(symbol, interval string, k *binance.Kline) (*domain.Kline, error) {
	open, err := parseDecimal("open", k.Open)
	if err != nil {
		return nil, err
	}
	high, err := parseDecimal("high", k.High)
	if err != nil {
		return nil, err
	}
	low, err := parseDecimal("low", k.Low)
	if err != nil {
		return nil, err
	}
	closePrice, err := parseDecimal("close", k.Close)
	if err != nil {
		return nil, err
	}
	volume, err := parseDecimal("volume", k.Volume)
	if err != nil {
		return nil, err
	}
	return &domain.Kline{
		OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
		CloseTime: time.UnixMilli(k.CloseTime).UTC(),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}
