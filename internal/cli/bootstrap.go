package cli

import (
	"context"
	"fmt"

	"swingBot/config"
	"swingBot/internal/adapters/binancevenue"
	"swingBot/internal/adapters/logger"
	"swingBot/internal/adapters/sqlite"
	"swingBot/internal/lifecycle"
)

// runtime holds what every command needs: configuration, a logger and the ledger.
type runtime struct {
	cfg    *config.Config
	logger *logger.StdLogger
	repo   *sqlite.Repository
}

func newRuntime() (*runtime, error) {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	if cfg.LogDir != "" {
		appLogger, err = logger.NewDailyFileLogger(cfg.LogLevel, cfg.LogDir)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Ledger Store)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath:       cfg.DBPath,
		Logger:       appLogger,
		InitialFunds: cfg.InitialFunds,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	return &runtime{cfg: cfg, logger: appLogger, repo: repo}, nil
}

func (rt *runtime) venue() (*binancevenue.Venue, error) {
	v, err := binancevenue.New(binancevenue.Config{
		APIKey:     rt.cfg.APIKey,
		SecretKey:  rt.cfg.SecretKey,
		UseTestnet: rt.cfg.IsTestnet,
		Logger:     rt.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init venue: %w", err)
	}
	return v, nil
}

func (rt *runtime) lifecycleConfig() lifecycle.Config {
	return lifecycle.Config{
		BuyOrderCheckingTime: rt.cfg.BuyOrderCheckingTime,
		SellOrderLifetime:    rt.cfg.SellOrderLifetime,
		SellTargetPercent:    rt.cfg.SellTargetPercent,
		Plowback:             rt.cfg.Plowback,
	}
}

func (rt *runtime) Close() {
	if err := rt.repo.Close(); err != nil {
		rt.logger.Error(context.Background(), err, "Error closing ledger")
	}
}
