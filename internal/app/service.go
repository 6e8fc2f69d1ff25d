package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"swingBot/config"
	"swingBot/internal/admission"
	"swingBot/internal/domain"
	"swingBot/internal/ledger"
	"swingBot/internal/lifecycle"
	"swingBot/internal/ports"
)

// TradingService scans symbols for entries, places buys and runs the reconciliation pass.
type TradingService struct {
	cfg       *config.Config
	logger    ports.Logger
	venue     ports.Venue
	store     ports.LedgerStore
	strategy  ports.Strategy
	admission *admission.Controller
	balances  *ledger.Accessor
	driver    *lifecycle.Driver
	symbols   []string
	now       func() time.Time
}

// NewTradingService creates a new application service instance.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	venue ports.Venue,
	store ports.LedgerStore,
	strat ports.Strategy,
	symbols []string,
) (*TradingService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || venue == nil || store == nil || strat == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}

	// Validate config values needed by service
	if !cfg.MaxOrderVolume.IsPositive() {
		return nil, fmt.Errorf("configuration MaxOrderVolume must be positive")
	}
	if cfg.BuyOrderCheckingTime <= 0 || cfg.SellOrderLifetime <= 0 {
		return nil, fmt.Errorf("configuration order windows must be positive")
	}

	s := &TradingService{
		cfg:      cfg,
		logger:   logger,
		venue:    venue,
		store:    store,
		strategy: strat,
		balances: ledger.NewAccessor(store),
		symbols:  symbols,
		now:      time.Now,
	}
	s.admission = admission.NewController(admission.Config{
		HourlyLimitation:   cfg.HourlyLimitation,
		SymbolicLimitation: cfg.SymbolicLimitation,
	}, venue, store, logger)
	s.driver = lifecycle.NewDriver(lifecycle.Config{
		BuyOrderCheckingTime: cfg.BuyOrderCheckingTime,
		SellOrderLifetime:    cfg.SellOrderLifetime,
		SellTargetPercent:    cfg.SellTargetPercent,
		Plowback:             cfg.Plowback,
		Now:                  func() time.Time { return s.now() },
	}, venue, store, logger)
	return s, nil
}

// Driver exposes the reconciliation driver for one-off passes.
func (s *TradingService) Driver() *lifecycle.Driver {
	return s.driver
}

// Start runs RunOnce every interval until the context is canceled or a signal arrives.
// A zero interval runs a single cycle.
func (s *TradingService) Start(ctx context.Context, interval time.Duration) error {
	s.logger.Info(ctx, "Starting Trading Service...", map[string]interface{}{
		"symbols":  len(s.symbols),
		"interval": interval.String(),
	})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.loop(ctx, interval)
	s.logger.Info(ctx, "Trading Service stopped.")
	return err
}

func (s *TradingService) loop(ctx context.Context, interval time.Duration) error {
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			if errors.Is(err, ports.ErrContextCanceled) || ctx.Err() != nil {
				return nil
			}
			// A pass that could not read the ledger is retried next cycle.
			s.logger.Error(ctx, err, "Cycle aborted")
			if interval <= 0 {
				return err
			}
		}
		if interval <= 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunOnce scans for entries while the market is open, then reconciles all open orders.
func (s *TradingService) RunOnce(ctx context.Context) (*lifecycle.PassReport, error) {
	clock, err := s.venue.Clock(ctx)
	switch {
	case err != nil:
		s.logger.Error(ctx, err, "Failed to read market clock, skipping entries")
	case !clock.IsOpen:
		s.logger.Info(ctx, "Market is closed, skipping entries")
	default:
		s.scan(ctx)
	}
	return s.driver.RunPass(ctx)
}

func (s *TradingService) scan(ctx context.Context) {
	if len(s.symbols) == 0 {
		return
	}
	hourly := s.admission.OpenHourlyWindow(ctx)
	for _, symbol := range s.symbols {
		if ctx.Err() != nil {
			return
		}
		if !hourly.OK(ctx) {
			return
		}
		if !s.admission.SymbolCountOK(ctx, symbol) {
			s.logger.Debug(ctx, "Symbol order limit reached", map[string]interface{}{"symbol": symbol})
			continue
		}

		klines, err := s.venue.GetKlines(ctx, symbol, s.strategy.Interval(), s.strategy.RequiredDataPoints())
		if err != nil {
			s.logger.Error(ctx, err, "Failed to load candles", map[string]interface{}{"symbol": symbol})
			continue
		}
		enter, price := s.strategy.ShouldEnter(ctx, symbol, klines)
		if !enter {
			continue
		}
		placed, err := s.buy(ctx, symbol, price)
		if placed {
			hourly.Record()
		}
		if err != nil {
			s.logger.Error(ctx, err, "Failed to enter position", map[string]interface{}{"symbol": symbol})
		}
	}
}

// buy spends up to MaxOrderVolume of the active balance on a day limit buy at price
// and reserves the spent amount in the ledger. placed is true once the venue accepted the order.
func (s *TradingService) buy(ctx context.Context, symbol string, price decimal.Decimal) (placed bool, err error) {
	fields := map[string]interface{}{"symbol": symbol, "price": price.String()}

	current, err := s.balances.Current(ctx)
	if err != nil {
		return false, err
	}
	if !current.Active.GreaterThan(price) {
		s.logger.Info(ctx, "Not enough active balance to buy", fields)
		return false, nil
	}
	qty := decimal.Min(current.Active, s.cfg.MaxOrderVolume).Div(price).Floor()
	if !qty.IsPositive() {
		s.logger.Info(ctx, "Order volume too small for one unit", fields)
		return false, nil
	}
	fields["qty"] = qty.String()

	order, err := s.venue.SubmitOrder(ctx, domain.LimitBuy(symbol, qty, price))
	if err != nil {
		return false, fmt.Errorf("failed to submit buy order: %w", err)
	}
	fields["orderID"] = order.ID

	if err := s.store.InsertOrder(ctx, &domain.OrderRecord{
		ID:        order.ID,
		Symbol:    symbol,
		Side:      domain.Buy,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		return true, fmt.Errorf("buy order %s placed but not tracked: %w", order.ID, err)
	}

	cost := qty.Mul(price)
	if _, err := s.store.AppendProfitRow(ctx, &domain.ProfitRow{
		TotalBalance:  current.Total.Sub(cost),
		ActiveBalance: current.Active.Sub(cost),
		Time:          s.now().UTC(),
		Symbol:        symbol,
		Profit:        decimal.Zero,
		BuyOrderID:    order.ID,
		SellOrderID:   domain.NoneMarker,
	}); err != nil {
		return true, fmt.Errorf("buy order %s placed but funds not reserved: %w", order.ID, err)
	}

	fields["cost"] = cost.String()
	s.logger.Info(ctx, "Limit buy placed", fields)
	return true, nil
}
