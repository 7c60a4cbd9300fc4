// Package config maps environment variables onto the desk's runtime
// settings. A .env file in the working directory is read first when present;
// variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// maxLoanDurationDays matches the longest loan the desk will issue.
const maxLoanDurationDays = 3650

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds every runtime setting.
type Config struct {
	// Persistence
	Store       string `env:"LIBRARY_STORE"   envDefault:"sqlite"`
	DBPath      string `env:"LIBRARY_DB_PATH" envDefault:"library.db"`
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	// HTTP API
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	Log LogConfig

	// Library behaviour
	LoanDurationDays  int    `env:"LOAN_DURATION_DAYS" envDefault:"14"`
	NotificationLimit int    `env:"NOTIFICATION_LIMIT" envDefault:"5"`
	JournalKeyword    string `env:"JOURNAL_KEYWORD"    envDefault:"دوريات"`

	// Background worker
	BackupDir      string        `env:"BACKUP_DIR"      envDefault:"backups"`
	WorkerInterval time.Duration `env:"WORKER_INTERVAL" envDefault:"1h"`
}

// LogConfig selects the zap preset and level.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads .env (if any) and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return Parse()
}

// Parse maps the current environment onto a Config without touching .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements env tags cannot express.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return errors.New("config: LIBRARY_DB_PATH is required for the sqlite store")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL is required for the redis store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown LIBRARY_STORE %q (want sqlite, redis, postgres or memory)", c.Store)
	}
	if c.LoanDurationDays < 1 || c.LoanDurationDays > maxLoanDurationDays {
		return fmt.Errorf("config: LOAN_DURATION_DAYS must be between 1 and %d", maxLoanDurationDays)
	}
	if c.NotificationLimit < 1 {
		return errors.New("config: NOTIFICATION_LIMIT must be at least 1")
	}
	return nil
}
