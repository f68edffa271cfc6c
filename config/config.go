// config/config.go
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment (and .env when present).
type Config struct {
	Port           string   `env:"PORT" envDefault:"5200"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://localhost:5200"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

	// LocalStoreDSN is a SQLite DSN, or a postgres:// URL.
	LocalStoreDSN string `env:"LOCAL_STORE_DSN" envDefault:"file:spinwin.db?cache=shared"`

	RestaurantsFile string `env:"RESTAURANTS_FILE"`
	// QuotaTZ is an IANA zone name; empty means the process local zone.
	QuotaTZ            string        `env:"QUOTA_TZ"`
	QuotaRetentionDays int           `env:"QUOTA_RETENTION_DAYS" envDefault:"30"`
	OTPResendInterval  time.Duration `env:"OTP_RESEND_INTERVAL" envDefault:"30s"`
	WidgetIdleTTL      time.Duration `env:"WIDGET_IDLE_TTL" envDefault:"30m"`

	MockBackend      bool          `env:"MOCK_BACKEND" envDefault:"false"`
	MockOTPCode      string        `env:"MOCK_OTP_CODE" envDefault:"1234"`
	MockJWTSecret    string        `env:"MOCK_JWT_SECRET" envDefault:"dev-secret-change-me"`
	MockTokenTTL     time.Duration `env:"MOCK_TOKEN_TTL" envDefault:"1h"`
	MockServiceToken string        `env:"MOCK_SERVICE_TOKEN"`
	MockStoreDSN     string        `env:"MOCK_STORE_DSN" envDefault:"file:spinwin-mock.db?cache=shared"`

	LogFile string `env:"LOG_FILE"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	if cfg.QuotaRetentionDays < 1 {
		return nil, fmt.Errorf("QUOTA_RETENTION_DAYS must be at least 1, got %d", cfg.QuotaRetentionDays)
	}
	if cfg.MockBackend && cfg.MockOTPCode != "" && !isFourDigits(cfg.MockOTPCode) {
		return nil, fmt.Errorf("MOCK_OTP_CODE must be 4 digits")
	}
	return &cfg, nil
}

// QuotaLocation resolves QuotaTZ.
func (c *Config) QuotaLocation() (*time.Location, error) {
	if c.QuotaTZ == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.QuotaTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTA_TZ %q: %w", c.QuotaTZ, err)
	}
	return loc, nil
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
