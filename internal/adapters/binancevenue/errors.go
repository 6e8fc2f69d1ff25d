package binancevenue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adshao/go-binance/v2/common"

	"swingBot/internal/ports"
)

// handleError translates Binance errors into ports errors. The result always wraps ports.ErrVenue.
func (v *Venue) handleError(ctx context.Context, err error, operation string, fields map[string]interface{}) error {
	if err == nil {
		return nil
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["operation"] = operation

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003, -1015: // Too many requests / too many new orders
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1121, -1125, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected
			if strings.Contains(strings.ToLower(apiErr.Message), "insufficient balance") {
				mappedErr = ports.ErrInsufficientFunds
			} else {
				mappedErr = ports.ErrOrderPlacementFailed
			}
		case -2011: // Cancel order rejected
			if strings.Contains(strings.ToLower(apiErr.Message), "unknown order") {
				mappedErr = ports.ErrOrderNotFound
			} else {
				mappedErr = ports.ErrOrderCancelFailed
			}
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2014, -2015: // API-key format invalid / invalid key, IP or permissions
			mappedErr = ports.ErrInvalidAPIKeys
		default:
			mappedErr = ports.ErrUnknown
		}
		v.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrVenue, mappedErr, err)
	}

	// Handle non-API errors (network, context cancellation, parsing)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrVenue, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w: %w", operation, ports.ErrVenue, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "no such host") {
		finalErr = fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrVenue, ports.ErrConnectionFailed, err)
	} else if errors.Is(err, ports.ErrInvalidRequest) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrVenue, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrVenue, ports.ErrUnknown, err)
	}

	v.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}
