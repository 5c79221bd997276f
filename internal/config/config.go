// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	Port            string
	LogLevel        string
	StoreDriver     string
	BadgerPath      string
	DatabaseURL     string
	DBMaxConns      int32
	TreasuryBaseURL string
	TreasuryTimeout time.Duration
	// RateLimit is a limiter formatted rate such as "100-M"; empty disables limiting.
	RateLimit       string
	RedisURL        string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables and a .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverBadger)
	v.SetDefault("BADGER_PATH", "./data")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", "10")
	v.SetDefault("TREASURY_BASE_URL", "https://api.fiscaldata.treasury.gov/services/api/fiscal_service/v1/accounting/od/rates_of_exchange")
	v.SetDefault("TREASURY_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	cfg := &Config{
		Port:            v.GetString("PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		StoreDriver:     v.GetString("STORE_DRIVER"),
		BadgerPath:      v.GetString("BADGER_PATH"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		TreasuryBaseURL: v.GetString("TREASURY_BASE_URL"),
		RateLimit:       v.GetString("RATE_LIMIT"),
		RedisURL:        v.GetString("REDIS_URL"),
	}

	var err error
	if cfg.TreasuryTimeout, err = parseDuration(v, "TREASURY_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDuration(v, "SHUTDOWN_TIMEOUT"); err != nil {
		return nil, err
	}

	maxConns, err := strconv.ParseInt(v.GetString("DB_MAX_CONNS"), 10, 32)
	if err != nil || maxConns <= 0 {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS %q: must be a positive integer", v.GetString("DB_MAX_CONNS"))
	}
	cfg.DBMaxConns = int32(maxConns)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}

	switch c.StoreDriver {
	case DriverBadger:
		if c.BadgerPath == "" {
			return errors.New("BADGER_PATH must not be empty for the badger store")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q: expected %q or %q", c.StoreDriver, DriverBadger, DriverPostgres)
	}

	if c.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
			return fmt.Errorf("invalid RATE_LIMIT %q: %w", c.RateLimit, err)
		}
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}
