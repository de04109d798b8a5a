// Package config loads the chat server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration.
type Config struct {
	Port               int           `env:"PORT"                 envDefault:"8080"`
	DirectoryDBPath    string        `env:"DIRECTORY_DB_PATH"    envDefault:"directory.db"`
	HistoryDBPath      string        `env:"HISTORY_DB_PATH"      envDefault:"history.db"`
	AuthDBPath         string        `env:"AUTH_DB_PATH"         envDefault:"auth.db"`
	DBDebug            bool          `env:"DB_DEBUG"             envDefault:"false"`
	JWTSecret          string        `env:"JWT_SECRET"`
	JWTIssuer          string        `env:"JWT_ISSUER"           envDefault:"realtime-chat"`
	TokenTTL           time.Duration `env:"TOKEN_TTL"            envDefault:"24h"`
	BcryptCost         int           `env:"BCRYPT_COST"          envDefault:"12"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	PresenceTTL        time.Duration `env:"PRESENCE_TTL"         envDefault:"2m"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	OutboundQueueSize  int           `env:"OUTBOUND_QUEUE_SIZE"  envDefault:"64"`
	MaxMessageLength   int           `env:"MAX_MESSAGE_LENGTH"   envDefault:"5000"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT"     envDefault:"30s"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that have no safe fallback.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.OutboundQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOUND_QUEUE_SIZE must be positive: %d", c.OutboundQueueSize))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("MAX_MESSAGE_LENGTH must be positive: %d", c.MaxMessageLength))
	}
	if c.RedisAddr != "" && c.PresenceTTL < time.Second {
		errs = append(errs, fmt.Errorf("PRESENCE_TTL too short: %s", c.PresenceTTL))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// PresenceCacheEnabled reports whether presence is mirrored to Redis.
func (c Config) PresenceCacheEnabled() bool {
	return c.RedisAddr != ""
}
