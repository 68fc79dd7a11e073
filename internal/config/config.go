// Package config читает настройки бота из окружения и .env.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sashakosti/Go_Bot_Roulette/internal/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required,notEmpty"`

	LedgerDriver string `env:"LEDGER_DRIVER" envDefault:"postgres"`
	PostgresDSN  string `env:"POSTGRES_DSN"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"data/roulette.db"`

	Chambers    int           `env:"REVOLVER_CHAMBERS" envDefault:"6"`
	PenaltyBase time.Duration `env:"PENALTY_BASE" envDefault:"16h"`

	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	UpdateTimeout        int           `env:"UPDATE_TIMEOUT" envDefault:"60"`
	MaxConcurrentUpdates int           `env:"MAX_CONCURRENT_UPDATES" envDefault:"32"`
}

// Load подхватывает .env, если он есть, и разбирает окружение.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Log.Info("no .env file found, using system variables")
	}
	return Parse()
}

// Parse разбирает только переменные окружения.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Chambers <= 1:
		return fmt.Errorf("%w: REVOLVER_CHAMBERS must be greater than 1, got %d", ErrInvalidConfiguration, c.Chambers)
	case c.PenaltyBaseMinutes() <= 0:
		return fmt.Errorf("%w: PENALTY_BASE must be at least one minute, got %s", ErrInvalidConfiguration, c.PenaltyBase)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("%w: REQUEST_TIMEOUT must be positive", ErrInvalidConfiguration)
	case c.MaxConcurrentUpdates <= 0:
		return fmt.Errorf("%w: MAX_CONCURRENT_UPDATES must be positive", ErrInvalidConfiguration)
	}

	switch c.LedgerDriver {
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN is not set", ErrInvalidConfiguration)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH is not set", ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown LEDGER_DRIVER %q", ErrInvalidConfiguration, c.LedgerDriver)
	}
	return nil
}

// PenaltyBaseMinutes - базовый мут в целых минутах.
func (c Config) PenaltyBaseMinutes() int {
	return int(c.PenaltyBase / time.Minute)
}
