package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"5000" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret           string        `env:"JWT_SECRET,required"     validate:"required,min=32"`
	JWTExpire           time.Duration `env:"JWT_EXPIRE"              envDefault:"720h"`
	JWTCookieExpireDays int           `env:"JWT_COOKIE_EXPIRE_DAYS"  envDefault:"30" validate:"min=1,max=365"`
	ClientURL           string        `env:"CLIENT_URL"              envDefault:"http://localhost:5173" validate:"required,url"`

	SnapshotBackend string `env:"SNAPSHOT_BACKEND" envDefault:"postgres" validate:"oneof=postgres redis memory"`
	RedisAddr       string `env:"REDIS_ADDR"       validate:"required_if=SnapshotBackend redis"`
	RedisPassword   string `env:"REDIS_PASSWORD"`

	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT"  envDefault:"10" validate:"min=1,max=1000"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET" validate:"required_with=GoogleClientID"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"  validate:"required_with=GoogleClientID"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")
	return cfg, nil
}

// SlogLevel maps LOG_LEVEL to a slog.Level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GoogleEnabled reports whether the Google login routes should be mounted.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// CookieMaxAge is the token cookie lifetime in seconds.
func (c *Config) CookieMaxAge() int {
	return c.JWTCookieExpireDays * 24 * 60 * 60
}
