package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ClientLink server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
	// BaseURL is the public origin embedded in activation URLs and QR codes,
	// e.g. "https://app.example.com".
	BaseURL string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	// TokenSecret keys the v2 activation-token MAC. When empty, tokens are
	// minted with the legacy unkeyed derivation.
	TokenSecret string
	// AllowLegacyTokens keeps unkeyed tokens verifiable during the
	// reissuance window. Printed QR codes stop working when disabled.
	AllowLegacyTokens bool
	SessionSecret     string
	SessionTTL        time.Duration
	RequestsPerMinute int
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    envInt("CLIENTLINK_PORT", 8080),
			Env:     envString("CLIENTLINK_ENV", "development"),
			BaseURL: strings.TrimRight(os.Getenv("CLIENTLINK_BASE_URL"), "/"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			TokenSecret:       os.Getenv("AUTH_TOKEN_SECRET"),
			AllowLegacyTokens: envBool("AUTH_ALLOW_LEGACY", true),
			SessionSecret:     os.Getenv("AUTH_SESSION_SECRET"),
			SessionTTL:        envDuration("AUTH_SESSION_TTL", 12*time.Hour),
			RequestsPerMinute: envInt("AUTH_REQUESTS_PER_MINUTE", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("CLIENTLINK_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("CLIENTLINK_BASE_URL must start with http:// or https://, got %q", c.Server.BaseURL)
	}

	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("AUTH_SESSION_SECRET is required")
	}

	if !c.Auth.AllowLegacyTokens && c.Auth.TokenSecret == "" {
		return fmt.Errorf("AUTH_TOKEN_SECRET is required when AUTH_ALLOW_LEGACY is false")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
