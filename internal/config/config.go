package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Partner sync rate limiting (medications route).
	SyncRateLimit         int `mapstructure:"SYNC_RATE_LIMIT"`
	SyncRateWindowSeconds int `mapstructure:"SYNC_RATE_WINDOW_SECONDS"`

	// Push provider service account (reminder dispatcher).
	PushClientEmail string `mapstructure:"PUSH_CLIENT_EMAIL"`
	PushPrivateKey  string `mapstructure:"PUSH_PRIVATE_KEY"`
	PushProjectID   string `mapstructure:"PUSH_PROJECT_ID"`
	PushTokenURL    string `mapstructure:"PUSH_TOKEN_URL"`

	// SMTP for the storage-request notifier.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("SYNC_RATE_LIMIT", 100)
	v.SetDefault("SYNC_RATE_WINDOW_SECONDS", 60)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("PUSH_TOKEN_URL", "https://oauth2.googleapis.com/token")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("SYNC_RATE_LIMIT")
	v.BindEnv("SYNC_RATE_WINDOW_SECONDS")
	v.BindEnv("PUSH_CLIENT_EMAIL")
	v.BindEnv("PUSH_PRIVATE_KEY")
	v.BindEnv("PUSH_PROJECT_ID")
	v.BindEnv("PUSH_TOKEN_URL")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_FROM")
	v.BindEnv("SMTP_USERNAME")
	v.BindEnv("SMTP_PASSWORD")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// PushConfigured reports whether the service-account credentials needed by
// the reminder dispatcher are present. The dispatcher refuses to run
// without them; the sync gateway does not care.
func (c *Config) PushConfigured() bool {
	return c.PushClientEmail != "" && c.PushPrivateKey != "" && c.PushProjectID != ""
}

// Validate checks settings that would otherwise fail at an awkward moment.
// Rate-limit values must be positive; SMTP is optional but, when a host is
// set, the sender address must be too.
func (c *Config) Validate() error {
	if c.SyncRateLimit <= 0 {
		return fmt.Errorf("SYNC_RATE_LIMIT must be positive, got %d", c.SyncRateLimit)
	}
	if c.SyncRateWindowSeconds <= 0 {
		return fmt.Errorf("SYNC_RATE_WINDOW_SECONDS must be positive, got %d", c.SyncRateWindowSeconds)
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}
	return nil
}
