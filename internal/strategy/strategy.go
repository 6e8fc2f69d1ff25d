package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
	"swingBot/internal/strategy/indicators"
)

// Config holds parameters for the dip-buying entry strategy.
type Config struct {
	LeastTradeVolume   decimal.Decimal // Min average volume of yesterday and today
	CurrentLowestGap   decimal.Decimal // e.g. 1.01: close at most 1% above today's low
	CheckTargetPercent decimal.Decimal // e.g. 5: today's range must cover close +5%
}

// Strategy buys symbols trading at the low of a day whose range already covered the bounce target.
type Strategy struct {
	cfg    Config
	logger ports.Logger
	volume indicators.Indicator // Average volume of yesterday and today
	now    func() time.Time
}

// New creates a new Strategy instance.
func New(cfg Config, logger ports.Logger) (*Strategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if cfg.LeastTradeVolume.IsNegative() {
		return nil, fmt.Errorf("least trade volume cannot be negative")
	}
	if cfg.CurrentLowestGap.LessThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("current-lowest gap must be at least 1")
	}
	return &Strategy{
		cfg:    cfg,
		logger: logger,
		volume: indicators.NewMovingAverage(indicators.IndicatorConfig{Period: 2, Source: indicators.SourceVolume}),
		now:    time.Now,
	}, nil
}

// Interval is the candle size the strategy works on.
func (s *Strategy) Interval() string {
	return "1d"
}

// RequiredDataPoints is yesterday and today.
func (s *Strategy) RequiredDataPoints() int {
	return 2
}

// ShouldEnter checks the last two daily candles and returns today's close as the entry price.
func (s *Strategy) ShouldEnter(ctx context.Context, symbol string, klines []*domain.Kline) (bool, decimal.Decimal) {
	if len(klines) < s.RequiredDataPoints() {
		s.logger.Debug(ctx, "Not enough candles", map[string]interface{}{"symbol": symbol, "count": len(klines)})
		return false, decimal.Zero
	}
	yesterday, today := klines[len(klines)-2], klines[len(klines)-1]
	fields := map[string]interface{}{
		"symbol": symbol,
		"close":  today.Close.String(),
		"low":    today.Low.String(),
		"high":   today.High.String(),
	}

	if !sameDay(today.OpenTime, s.now()) {
		s.logger.Debug(ctx, "No candle for today yet", fields)
		return false, decimal.Zero
	}

	avgVolume, err := s.volume.Calculate(ctx, []*domain.Kline{yesterday, today})
	if err != nil || avgVolume.LessThan(s.cfg.LeastTradeVolume) {
		s.logger.Debug(ctx, "Not enough volume", fields)
		return false, decimal.Zero
	}

	if !today.Low.IsPositive() || today.Close.Div(today.Low).GreaterThan(s.cfg.CurrentLowestGap) {
		s.logger.Debug(ctx, "Not at the low of the day", fields)
		return false, decimal.Zero
	}

	factor := decimal.NewFromInt(1).Add(s.cfg.CheckTargetPercent.Div(decimal.NewFromInt(100)))
	target := today.Close.Mul(factor).Round(2)
	fields["target"] = target.StringFixed(2)
	if target.LessThan(today.Low) || target.GreaterThan(today.High) {
		s.logger.Debug(ctx, "Bounce target not hit today", fields)
		return false, decimal.Zero
	}

	s.logger.Info(ctx, "Entry signal", fields)
	return true, today.Close
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
