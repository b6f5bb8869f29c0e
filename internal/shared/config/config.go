package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends accepted by STORAGE_BACKEND
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds every runtime setting of the auction service
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":9000"`

	StorageBackend string   `env:"STORAGE_BACKEND" envDefault:"memory"`
	SQLitePath     string   `env:"SQLITE_PATH" envDefault:"evauction.db"`
	DB             DBConfig `envPrefix:"DB_"`

	// LockTimeout bounds how long a bid waits for its auction's lock before failing as busy.
	LockTimeout         time.Duration `env:"BID_LOCK_TIMEOUT" envDefault:"2s"`
	SchedulerInterval   time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1s"`
	DefaultMinIncrement int64         `env:"DEFAULT_MIN_INCREMENT" envDefault:"100000"`
}

// DBConfig keeps the DB_* variables the Postgres backend is built from
type DBConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"evauction"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.StorageBackend)
	}
	if c.LockTimeout <= 0 {
		return errors.New("config: BID_LOCK_TIMEOUT must be positive")
	}
	if c.SchedulerInterval <= 0 {
		return errors.New("config: SCHEDULER_INTERVAL must be positive")
	}
	if c.DefaultMinIncrement <= 0 {
		return errors.New("config: DEFAULT_MIN_INCREMENT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
