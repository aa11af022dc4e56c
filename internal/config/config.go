// Package config loads service settings from TURING_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds every setting of the service. Command-line flags override it.
type Config struct {
	Host string `env:"TURING_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"TURING_PORT" envDefault:"8080"`

	Store      string `env:"TURING_STORE" envDefault:"memory"`
	FileDir    string `env:"TURING_FILE_DIR" envDefault:".turing/machines"`
	SQLitePath string `env:"TURING_SQLITE_PATH" envDefault:".turing/turing.db"`

	RedisAddr     string        `env:"TURING_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"TURING_REDIS_PASSWORD"`
	RedisDB       int           `env:"TURING_REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"TURING_REDIS_PREFIX" envDefault:"turing:machine:"`
	RedisTTL      time.Duration `env:"TURING_REDIS_TTL" envDefault:"0s"`
	RedisLock     bool          `env:"TURING_REDIS_LOCK" envDefault:"false"`

	CatalogDir string `env:"TURING_CATALOG_DIR"`

	MaxSteps      uint64 `env:"TURING_MAX_STEPS" envDefault:"1000"`
	MaxStepsLimit uint64 `env:"TURING_MAX_STEPS_LIMIT" envDefault:"100000"`

	MaxHead int `env:"TURING_MAX_HEAD" envDefault:"1000000"`
	MaxTape int `env:"TURING_MAX_TAPE" envDefault:"1000000"`

	LogLevel string `env:"TURING_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"TURING_LOG_FILE"`

	OTelEndpoint string `env:"TURING_OTEL_ENDPOINT"`
	Metrics      bool   `env:"TURING_METRICS" envDefault:"true"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks ranges and the settings the chosen store needs.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("TURING_PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.Store {
	case StoreMemory:
	case StoreFile:
		if c.FileDir == "" {
			errs = append(errs, errors.New("TURING_FILE_DIR is required for the file store"))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("TURING_SQLITE_PATH is required for the sqlite store"))
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("TURING_REDIS_ADDR is required for the redis store"))
		}
		if c.RedisTTL < 0 {
			errs = append(errs, errors.New("TURING_REDIS_TTL cannot be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("TURING_STORE must be one of memory, file, sqlite, redis, got %q", c.Store))
	}

	if c.RedisLock && c.Store != StoreRedis {
		errs = append(errs, errors.New("TURING_REDIS_LOCK requires TURING_STORE=redis"))
	}

	if c.MaxStepsLimit == 0 {
		errs = append(errs, errors.New("TURING_MAX_STEPS_LIMIT must be positive"))
	}
	if c.MaxSteps > c.MaxStepsLimit {
		errs = append(errs, fmt.Errorf("TURING_MAX_STEPS (%d) exceeds TURING_MAX_STEPS_LIMIT (%d)", c.MaxSteps, c.MaxStepsLimit))
	}

	if c.MaxHead <= 0 {
		errs = append(errs, fmt.Errorf("TURING_MAX_HEAD must be positive, got %d", c.MaxHead))
	}
	if c.MaxTape <= 0 {
		errs = append(errs, fmt.Errorf("TURING_MAX_TAPE must be positive, got %d", c.MaxTape))
	}

	return errors.Join(errs...)
}
