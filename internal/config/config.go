// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// MinSessionSecretLength is the shortest SESSION_SECRET accepted outside development.
const MinSessionSecretLength = 32

// generatedSecretLength is the size of the per-process development secret.
const generatedSecretLength = 64

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database: postgres://... or sqlite:path
	DatabaseURL string `env:"DATABASE_URL,required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// Session storage (Redis). Sessions are kept in process memory when empty.
	RedisURL string `env:"REDIS_URL"`

	// Sessions
	SessionSecret       string        `env:"SESSION_SECRET"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"rosterly_session"`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"336h"`
	SessionCookieSecure *bool         `env:"SESSION_COOKIE_SECURE"`

	// Student listing
	PageSize int `env:"PAGE_SIZE" envDefault:"5"`

	// Password hashing (argon2id)
	Argon2Time     uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Argon2MemoryKB uint32 `env:"ARGON2_MEMORY_KB" envDefault:"65536"`
	Argon2Threads  uint8  `env:"ARGON2_THREADS" envDefault:"4"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// secretGenerated is set when Validate filled in a development secret.
	secretGenerated bool
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// CookieSecure reports whether the session cookie carries the Secure flag.
// It defaults to true everywhere except development.
func (c *Config) CookieSecure() bool {
	if c.SessionCookieSecure != nil {
		return *c.SessionCookieSecure
	}
	return !c.IsDevelopment()
}

// SecretGenerated reports whether the session secret is a random
// per-process value. Sessions then do not survive a restart.
func (c *Config) SecretGenerated() bool {
	return c.secretGenerated
}

// Validate checks cross-field rules. In development an empty session secret
// is replaced by a random one; elsewhere a strong secret is required.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.SessionSecret == "" && c.IsDevelopment():
		secret := make([]byte, generatedSecretLength)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		c.SessionSecret = string(secret)
		c.secretGenerated = true
	case len(c.SessionSecret) < MinSessionSecretLength && !c.IsDevelopment():
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength))
	}

	if !strings.HasPrefix(c.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(c.DatabaseURL, "postgresql://") &&
		!strings.HasPrefix(c.DatabaseURL, "sqlite:") {
		errs = append(errs, errors.New("DATABASE_URL must start with postgres://, postgresql:// or sqlite:"))
	}
	if c.PageSize < 1 {
		errs = append(errs, errors.New("PAGE_SIZE must be at least 1"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Argon2Time < 1 || c.Argon2MemoryKB < 8*uint32(max(c.Argon2Threads, 1)) || c.Argon2Threads < 1 {
		errs = append(errs, errors.New("ARGON2_TIME, ARGON2_MEMORY_KB and ARGON2_THREADS are out of range"))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, errors.New("LOG_FORMAT must be json or text"))
	}

	return errors.Join(errs...)
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
