package indicators

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
)

// MovingAverage is a simple moving average over the last Period candles.
type MovingAverage struct {
	BaseIndicator
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config IndicatorConfig) *MovingAverage {
	if config.Source == "" {
		config.Source = SourceClose
	}
	return &MovingAverage{BaseIndicator: BaseIndicator{Config: config}}
}

// Name returns the name of the indicator
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("SMA(%d,%s)", m.Config.Period, m.Config.Source)
}

// Calculate averages the configured source over the newest Period klines.
func (m *MovingAverage) Calculate(ctx context.Context, klines []*domain.Kline) (decimal.Decimal, error) {
	if m.Config.Period <= 0 {
		return decimal.Zero, fmt.Errorf("invalid SMA period %d", m.Config.Period)
	}
	if len(klines) < m.Config.Period {
		return decimal.Zero, fmt.Errorf("not enough data (%d) to calculate SMA for period %d", len(klines), m.Config.Period)
	}

	total := decimal.Zero
	for _, k := range klines[len(klines)-m.Config.Period:] {
		total = total.Add(m.Config.Source.value(k))
	}
	return total.Div(decimal.NewFromInt(int64(m.Config.Period))), nil
}
