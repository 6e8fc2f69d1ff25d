package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these so callers can use errors.Is.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Lifecycle anomalies that need an operator but never stop a pass.
	ErrDataIntegrity = errors.New("data integrity anomaly")

	// Venue Errors. Every error returned by a Venue wraps ErrVenue.
	ErrVenue                = errors.New("venue request failed")
	ErrConnectionFailed     = errors.New("failed to connect to the venue")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("venue authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderNotFound        = errors.New("order not found on the venue")
	ErrOrderPlacementFailed = errors.New("failed to place order")
	ErrOrderCancelFailed    = errors.New("failed to cancel order")

	// Ledger Errors
	ErrWrite             = errors.New("ledger write failed")
	ErrDuplicateEntry    = errors.New("ledger record already exists")
	ErrLedgerUnavailable = errors.New("ledger store unavailable")
	ErrQueryFailed       = errors.New("ledger query failed")
)
