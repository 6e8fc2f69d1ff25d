package indicators

import (
	"context"

	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
)

// Indicator represents a technical indicator that can be calculated from candle data
type Indicator interface {
	// Calculate computes the indicator value for the given candles, oldest first
	Calculate(ctx context.Context, klines []*domain.Kline) (decimal.Decimal, error)

	// RequiredDataPoints returns the minimum number of klines needed for calculation
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// Source selects the candle field an indicator reads.
type Source string

const (
	SourceClose  Source = "close"
	SourceVolume Source = "volume"
)

func (s Source) value(k *domain.Kline) decimal.Decimal {
	if s == SourceVolume {
		return k.Volume
	}
	return k.Close
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
	Source Source // Defaults to SourceClose
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of klines needed for calculation
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}
