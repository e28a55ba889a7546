// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// MinSecretKeyLength is the minimum accepted length of SECRET_KEY in bytes.
const MinSecretKeyLength = 32

var (
	// ErrWeakSecret indicates SECRET_KEY is too short for HMAC signing.
	ErrWeakSecret = errors.New("SECRET_KEY must be at least 32 bytes")
	// ErrUnsupportedAlgorithm indicates TOKEN_ALGORITHM is not an HMAC algorithm.
	ErrUnsupportedAlgorithm = errors.New("TOKEN_ALGORITHM must be one of HS256, HS384, HS512")
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Cache (Redis). Empty disables the principal cache.
	RedisURL          string        `env:"REDIS_URL" envDefault:""`
	PrincipalCacheTTL time.Duration `env:"PRINCIPAL_CACHE_TTL" envDefault:"30s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Token signing
	SecretKey      string        `env:"SECRET_KEY,required,notEmpty"`
	TokenAlgorithm string        `env:"TOKEN_ALGORITHM" envDefault:"HS256"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`

	// API keys
	APIKeyLength           int `env:"API_KEY_LENGTH" envDefault:"32"`
	APIKeyDefaultValidDays int `env:"API_KEY_DEFAULT_VALID_DAYS" envDefault:"30"`

	// First superuser, created at startup when the email is set and unknown.
	FirstSuperuserEmail    string `env:"FIRST_SUPERUSER_EMAIL" envDefault:""`
	FirstSuperuserUsername string `env:"FIRST_SUPERUSER_USERNAME" envDefault:"admin"`
	FirstSuperuserPassword string `env:"FIRST_SUPERUSER_PASSWORD" envDefault:""`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// CacheEnabled reports whether a Redis principal cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	if len(c.SecretKey) < MinSecretKeyLength {
		return ErrWeakSecret
	}

	switch c.TokenAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return ErrUnsupportedAlgorithm
	}

	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %s", c.AccessTokenTTL)
	}
	if c.APIKeyLength < 16 || c.APIKeyLength > 128 {
		return fmt.Errorf("API_KEY_LENGTH must be between 16 and 128, got %d", c.APIKeyLength)
	}
	if c.APIKeyDefaultValidDays < 1 || c.APIKeyDefaultValidDays > 365 {
		return fmt.Errorf("API_KEY_DEFAULT_VALID_DAYS must be between 1 and 365, got %d", c.APIKeyDefaultValidDays)
	}
	if c.CacheEnabled() && c.PrincipalCacheTTL <= 0 {
		return fmt.Errorf("PRINCIPAL_CACHE_TTL must be positive when REDIS_URL is set")
	}
	if c.FirstSuperuserEmail != "" && c.FirstSuperuserPassword == "" {
		return fmt.Errorf("FIRST_SUPERUSER_PASSWORD is required when FIRST_SUPERUSER_EMAIL is set")
	}

	return nil
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
