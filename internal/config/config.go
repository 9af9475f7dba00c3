package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config is read from the environment (docker-compose sets these).
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	DSN             string        `env:"DB_DSN"`
	JWTSecret       string        `env:"JWT_SECRET"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisChannel    string        `env:"REDIS_CHANNEL" envDefault:"buachat:events"`
	UploadDir       string        `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	DefaultRoom     string        `env:"DEFAULT_ROOM" envDefault:"general"`
	LogDev          bool          `env:"LOG_DEV" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

var (
	ErrMissingDSN    = errors.New("DB_DSN is not set")
	ErrMissingSecret = errors.New("JWT_SECRET is not set")
)

// Load parses the environment into a Config. Secrets are not checked here,
// commands that need them call Validate.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DSN == "" {
		return ErrMissingDSN
	}
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	return nil
}

// RedisEnabled reports whether room events should be relayed through Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
