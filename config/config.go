package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"swingBot/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Ledger
	DBPath       string
	InitialFunds decimal.Decimal // Seeds total and active balance of an empty ledger

	// Order lifecycle
	BuyOrderCheckingTime time.Duration   // Grace window T for buy orders
	SellOrderLifetime    time.Duration   // Lifetime L for limit sell orders
	SellTargetPercent    decimal.Decimal // e.g. 5 sells 5% above the buy price
	Plowback             bool            // Reinvest realized profit into active balance

	// Admission limits
	HourlyLimitation   int // Max buy orders submitted in the trailing hour
	SymbolicLimitation int // Max open orders (buy + sell) per symbol

	// Entry strategy
	MaxOrderVolume     decimal.Decimal // Cap on the quote amount of one buy
	LeastTradeVolume   decimal.Decimal // Min average daily volume over two days
	CurrentLowestGap   decimal.Decimal // Max close/low ratio for "at the low of the day"
	CheckTargetPercent decimal.Decimal // Bounce the price must have covered today

	// Symbol universe
	Symbols     []string // Explicit list; overrides SymbolsFile
	SymbolsFile string

	// Logging
	LogLevel logger.LogLevel
	LogDir   string // Daily log files are written here when set
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	// Ledger
	cfg.DBPath = getEnv("DB_PATH", "./data/ledger.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	cfg.InitialFunds, err = getEnvAsDecimalRequired("INITIAL_FUNDS", decimal.NewFromInt(1000))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_FUNDS: %v", err))
	} else if cfg.InitialFunds.IsNegative() {
		errs = append(errs, "INITIAL_FUNDS cannot be negative")
	}

	// Order lifecycle
	buyMinutes, err := getEnvAsIntRequired("BUY_ORDER_CHECKING_MINUTES", 30)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BUY_ORDER_CHECKING_MINUTES: %v", err))
	} else if buyMinutes <= 0 {
		errs = append(errs, "BUY_ORDER_CHECKING_MINUTES must be positive")
	}
	cfg.BuyOrderCheckingTime = time.Duration(buyMinutes) * time.Minute

	sellMinutes, err := getEnvAsIntRequired("SELL_ORDER_LIFETIME_MINUTES", 1440)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SELL_ORDER_LIFETIME_MINUTES: %v", err))
	} else if sellMinutes <= 0 {
		errs = append(errs, "SELL_ORDER_LIFETIME_MINUTES must be positive")
	}
	cfg.SellOrderLifetime = time.Duration(sellMinutes) * time.Minute

	cfg.SellTargetPercent, err = getEnvAsDecimalRequired("SELL_TARGET_PERCENT", decimal.NewFromInt(5))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SELL_TARGET_PERCENT: %v", err))
	} else if !cfg.SellTargetPercent.IsPositive() {
		errs = append(errs, "SELL_TARGET_PERCENT must be positive")
	}

	cfg.Plowback = getEnvAsBool("PLOWBACK", false)

	// Admission limits
	cfg.HourlyLimitation, err = getEnvAsIntRequired("HOURLY_LIMITATION", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HOURLY_LIMITATION: %v", err))
	} else if cfg.HourlyLimitation < 0 {
		errs = append(errs, "HOURLY_LIMITATION cannot be negative")
	}

	cfg.SymbolicLimitation, err = getEnvAsIntRequired("SYMBOLIC_LIMITATION", 1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SYMBOLIC_LIMITATION: %v", err))
	} else if cfg.SymbolicLimitation < 0 {
		errs = append(errs, "SYMBOLIC_LIMITATION cannot be negative")
	}

	// Entry strategy (defaults used if not set)
	cfg.MaxOrderVolume = getEnvAsDecimal("MAX_ORDER_VOLUME", decimal.NewFromInt(100))
	cfg.LeastTradeVolume = getEnvAsDecimal("LEAST_TRADE_VOLUME", decimal.NewFromInt(100000))
	cfg.CurrentLowestGap = getEnvAsDecimal("CURRENT_LOWEST_GAP", decimal.RequireFromString("1.01"))
	cfg.CheckTargetPercent = getEnvAsDecimal("CHECK_TARGET_PERCENT", decimal.NewFromInt(5))

	if !cfg.MaxOrderVolume.IsPositive() {
		errs = append(errs, "MAX_ORDER_VOLUME must be positive")
	}
	if cfg.CurrentLowestGap.LessThan(decimal.NewFromInt(1)) {
		errs = append(errs, "CURRENT_LOWEST_GAP must be at least 1")
	}

	// Symbol universe
	cfg.Symbols = getEnvAsList("SYMBOLS")
	cfg.SymbolsFile = getEnv("SYMBOLS_FILE", "symbols.txt")
	if len(cfg.Symbols) == 0 && cfg.SymbolsFile == "" {
		errs = append(errs, "either SYMBOLS or SYMBOLS_FILE must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogDir = getEnv("LOG_DIR", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Set but invalid is an error, unset falls back to the default
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimalRequired(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
