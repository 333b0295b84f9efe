package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Database  DatabaseConfig  `envconfig:"DB"`
	JWT       JWTConfig       `envconfig:"JWT"`
	Ledger    LedgerConfig    `envconfig:"LEDGER"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`
	Reconcile ReconcileConfig `envconfig:"RECONCILE"`
	Log       LogConfig       `envconfig:"LOG"`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8099"`
	Env          string        `envconfig:"ENV" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
}

type DatabaseConfig struct {
	Driver          string        `envconfig:"DRIVER" default:"mysql"` // mysql | postgres
	DSN             string        `envconfig:"DSN" default:"gigwallet:gigwallet@tcp(localhost:3306)/gigwallet?charset=utf8mb4&parseTime=True&loc=UTC"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"100"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
}

type JWTConfig struct {
	AccessSecret string        `envconfig:"ACCESS_SECRET" default:"change-me-in-production"`
	AccessExpiry time.Duration `envconfig:"ACCESS_EXPIRY" default:"15m"`
	Issuer       string        `envconfig:"ISSUER" default:"gigwallet"`
}

// LedgerConfig holds the money-moving settings. PlatformFeePercent is parsed
// from PlatformFeePercentRaw in Load so that it never passes through a float.
type LedgerConfig struct {
	DefaultCurrency       string          `envconfig:"DEFAULT_CURRENCY" default:"USD"`
	PlatformFeePercentRaw string          `envconfig:"PLATFORM_FEE_PERCENT" default:"5"`
	PlatformFeePercent    decimal.Decimal `ignored:"true"`
	TxTimeout             time.Duration   `envconfig:"TX_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL string `envconfig:"URL"` // empty = in-process cache
}

type RateLimitConfig struct {
	Requests int           `envconfig:"REQUESTS" default:"100"`
	Window   time.Duration `envconfig:"WINDOW" default:"1m"`
}

type ReconcileConfig struct {
	Enabled   bool   `envconfig:"ENABLED" default:"true"`
	Schedule  string `envconfig:"SCHEDULE" default:"0 3 * * *"`
	BatchSize int    `envconfig:"BATCH_SIZE" default:"200"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"` // text | json
}

// Load reads the environment into Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(cfg.Ledger.PlatformFeePercentRaw))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_PLATFORM_FEE_PERCENT: %w", err)
	}
	cfg.Ledger.PlatformFeePercent = fee
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be mysql or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if len(c.Ledger.DefaultCurrency) != 3 {
		return fmt.Errorf("LEDGER_DEFAULT_CURRENCY must be a 3-letter code")
	}
	if c.Ledger.PlatformFeePercent.IsNegative() || c.Ledger.PlatformFeePercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("LEDGER_PLATFORM_FEE_PERCENT must be within [0, 100]")
	}
	if c.Ledger.TxTimeout <= 0 {
		return fmt.Errorf("LEDGER_TX_TIMEOUT must be > 0")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Reconcile.BatchSize <= 0 {
		return fmt.Errorf("RECONCILE_BATCH_SIZE must be > 0")
	}
	return nil
}
