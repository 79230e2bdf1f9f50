package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string `env:"PORT" envDefault:"8080"`
	Mode string `env:"GIN_MODE" envDefault:"debug"`

	// Database configuration
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"studio-api.db"`

	// Redis configuration
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Brevo email configuration
	BrevoAPIKey    string `env:"BREVO_API_KEY"`
	BrevoFromEmail string `env:"BREVO_FROM_EMAIL"`
	BrevoFromName  string `env:"BREVO_FROM_NAME" envDefault:"Studio"`

	// One-time passcode configuration
	CodeExpireMinutes int           `env:"CODE_EXPIRE_MINUTES" envDefault:"10"`
	RateLimitMinutes  int           `env:"RATE_LIMIT_MINUTES" envDefault:"1"`
	OTPRetention      time.Duration `env:"OTP_RETENTION" envDefault:"24h"`
	ServiceName       string        `env:"SERVICE_NAME" envDefault:"Studio"`

	// Sessions
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	// Admin and payment callback gates
	AdminAPIKey          string `env:"ADMIN_API_KEY"`
	PaymentWebhookSecret string `env:"PAYMENT_WEBHOOK_SECRET"`

	// Ledger event webhook (optional)
	WebhookCallbackURL string `env:"WEBHOOK_CALLBACK_URL"`
	WebhookSecret      string `env:"WEBHOOK_SECRET"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

var AppConfig *Config

// InitConfig loads .env (if present) and the process environment into AppConfig.
func InitConfig() error {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := Load()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load parses the environment into a fresh Config without touching AppConfig.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CodeExpireMinutes <= 0 {
		cfg.CodeExpireMinutes = 10
	}
	if cfg.RateLimitMinutes < 0 {
		cfg.RateLimitMinutes = 0
	}
	return cfg, nil
}

// CodeTTL is the lifetime of a freshly issued passcode.
func (c *Config) CodeTTL() time.Duration {
	return time.Duration(c.CodeExpireMinutes) * time.Minute
}

// ResendCooldown is the minimum gap between two send-code requests for one email.
func (c *Config) ResendCooldown() time.Duration {
	return time.Duration(c.RateLimitMinutes) * time.Minute
}
