package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	AppEnv   string     `env:"APP_ENV" envDefault:"development"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/signalcheck.db"`
	SPADir   string     `env:"SPA_DIR" envDefault:"web/dist"`

	CatalogPath string `env:"CATALOG_PATH"`

	SnapshotBackend string        `env:"SNAPSHOT_BACKEND" envDefault:"sqlite"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SnapshotTTL     time.Duration `env:"SNAPSHOT_TTL" envDefault:"24h"`

	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SubmitTimeout time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"10s"`

	AdminEmail      string        `env:"ADMIN_EMAIL" envDefault:"admin@origo.local"`
	AdminPassword   string        `env:"ADMIN_PASSWORD" envDefault:"changeme"`
	AdminSessionTTL time.Duration `env:"ADMIN_SESSION_TTL" envDefault:"168h"`

	BookingURL string `env:"BOOKING_URL" envDefault:"https://cal.com/origo/strategy"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.AppEnv != EnvDevelopment && cfg.AppEnv != EnvProduction {
		return nil, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.AppEnv)
	}
	if cfg.SubmitTimeout <= 0 {
		return nil, fmt.Errorf("SUBMIT_TIMEOUT must be positive")
	}
	return &cfg, nil
}

// Development reports whether contact details may appear in logs.
func (c *Config) Development() bool { return c.AppEnv == EnvDevelopment }
