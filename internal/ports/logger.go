package ports

import "context"

// Logger is the structured logger every component receives.
// Fields are passed as an optional key/value map.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs err together with msg.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
