package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the service configuration, read from DEATHCUP_* variables.
type Config struct {
	Addr     string `env:"DEATHCUP_ADDR"      envDefault:":8080"`
	LogLevel string `env:"DEATHCUP_LOG_LEVEL" envDefault:"info"`

	ProtocolVersion string  `env:"DEATHCUP_PROTOCOL_VERSION" envDefault:"v1"`
	IndexMode       string  `env:"DEATHCUP_INDEX_MODE"       envDefault:"modulo"`
	HouseEdge       float64 `env:"DEATHCUP_HOUSE_EDGE"       envDefault:"0.95"`
	DefaultRounds   int     `env:"DEATHCUP_DEFAULT_ROUNDS"   envDefault:"10"`

	MaxBetFraction    float64 `env:"DEATHCUP_MAX_BET_FRACTION"    envDefault:"0.01"`
	MaxPayoutFraction float64 `env:"DEATHCUP_MAX_PAYOUT_FRACTION" envDefault:"0.05"`
	EnforcePayoutCap  bool    `env:"DEATHCUP_ENFORCE_PAYOUT_CAP"  envDefault:"true"`
	// PotSize stands in for the pot-accounting service.
	PotSize string `env:"DEATHCUP_POT_SIZE" envDefault:"10000"`

	PointsPriceUSD string `env:"DEATHCUP_POINTS_PRICE_USD" envDefault:"100"`

	SessionTTL time.Duration `env:"DEATHCUP_SESSION_TTL" envDefault:"30m"`
	// IdleTTL settles active sessions nobody has touched; 0 disables it.
	IdleTTL       time.Duration `env:"DEATHCUP_IDLE_TTL"       envDefault:"2h"`
	SweepInterval time.Duration `env:"DEATHCUP_SWEEP_INTERVAL" envDefault:"1m"`
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("No .env file loaded, using environment variables", "err", err)
	}
	return Parse()
}

// Parse reads the environment into a validated Config.
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

// Validate rejects settings that would break fairness or the payout math.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ProtocolVersion) == "" {
		errs = append(errs, errors.New("protocol version must not be empty"))
	}
	if _, err := engine.ParseIndexMode(c.IndexMode); err != nil {
		errs = append(errs, err)
	}
	if c.HouseEdge <= 0 || c.HouseEdge > 1 {
		errs = append(errs, fmt.Errorf("house edge must be in (0, 1], got %v", c.HouseEdge))
	}
	if c.MaxBetFraction <= 0 || c.MaxBetFraction > 1 {
		errs = append(errs, fmt.Errorf("max bet fraction must be in (0, 1], got %v", c.MaxBetFraction))
	}
	if c.MaxPayoutFraction <= 0 || c.MaxPayoutFraction > 1 {
		errs = append(errs, fmt.Errorf("max payout fraction must be in (0, 1], got %v", c.MaxPayoutFraction))
	}
	if c.DefaultRounds <= 0 {
		errs = append(errs, fmt.Errorf("default rounds must be positive, got %d", c.DefaultRounds))
	}
	if c.IdleTTL < 0 {
		errs = append(errs, fmt.Errorf("idle ttl must not be negative, got %v", c.IdleTTL))
	}
	if pot, err := decimal.NewFromString(c.PotSize); err != nil {
		errs = append(errs, fmt.Errorf("pot size: %w", err))
	} else if !pot.IsPositive() {
		errs = append(errs, fmt.Errorf("pot size must be positive, got %s", c.PotSize))
	}
	if _, err := decimal.NewFromString(c.PointsPriceUSD); err != nil {
		errs = append(errs, fmt.Errorf("points price: %w", err))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Pot returns the configured pot size. Call Validate first.
func (c Config) Pot() decimal.Decimal {
	return decimal.RequireFromString(c.PotSize)
}

// PointsPrice returns the configured USD price. Call Validate first.
func (c Config) PointsPrice() decimal.Decimal {
	return decimal.RequireFromString(c.PointsPriceUSD)
}

// Mode returns the parsed index mode. Call Validate first.
func (c Config) Mode() engine.IndexMode {
	mode, _ := engine.ParseIndexMode(c.IndexMode)
	return mode
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
