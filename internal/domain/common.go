package domain

// OrderSide represents the side of an order (buy or sell).
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// OrderType is the execution type of a venue order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus is the venue-reported state of an order.
type OrderStatus string

const (
	StatusNew             OrderStatus = "new"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCanceled        OrderStatus = "canceled"
	StatusPendingCancel   OrderStatus = "pending_cancel"
	StatusExpired         OrderStatus = "expired"
	StatusRejected        OrderStatus = "rejected"
	StatusUnknown         OrderStatus = "unknown"
)

// StatusFilter selects orders by state when listing them at the venue.
type StatusFilter string

const (
	FilterAll    StatusFilter = "all"
	FilterOpen   StatusFilter = "open"
	FilterClosed StatusFilter = "closed"
)

// Matches reports whether a status passes the filter.
func (f StatusFilter) Matches(status OrderStatus) bool {
	switch f {
	case FilterOpen:
		return status == StatusNew || status == StatusPartiallyFilled || status == StatusPendingCancel
	case FilterClosed:
		return status != StatusNew && status != StatusPartiallyFilled && status != StatusPendingCancel
	default:
		return true
	}
}

// TimeInForce controls how long a working order stays on the book.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
)

// BalanceKind selects one of the two balances kept on every ledger row.
type BalanceKind string

const (
	BalanceTotal  BalanceKind = "total"
	BalanceActive BalanceKind = "active"
)

const (
	// NoneMarker fills symbol/order-id columns of ledger rows that have no counterpart,
	// such as the seed row or a buy reservation.
	NoneMarker = "none"
	// MismatchMarker replaces the symbol of a profit row whose buy and sell disagree.
	MismatchMarker = "mismatch"
)
