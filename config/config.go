package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	Database struct {
		// sqlite or mysql
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
		DSN    string `env:"DB_DSN" envDefault:"proptx.db"`
	}

	// Secret used to verify HS256 bearer tokens
	JWTSecret string `env:"JWT_SECRET"`

	// CORSOrigins is a comma-separated allow list
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	Flutterwave struct {
		BaseURL     string `env:"FLW_BASE_URL" envDefault:"https://api.flutterwave.com/v3"`
		SecretKey   string `env:"FLW_SECRET_KEY"`
		WebhookHash string `env:"FLW_WEBHOOK_HASH"`
	}

	// Webhooks configures asynchronous settlement processing
	Webhooks struct {
		// Settlements buffered before the webhook answers 503
		QueueSize int `env:"WEBHOOK_QUEUE_SIZE" envDefault:"256"`

		// Number of concurrent settlement workers
		ProcessorCount int `env:"WEBHOOK_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for a failed settlement
		MaxRetries int `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"WEBHOOK_RETRY_DELAY" envDefault:"2"`

		// Requests per second allowed per client IP, and the burst above it
		RateLimit float64 `env:"WEBHOOK_RATE_LIMIT" envDefault:"5"`
		RateBurst int     `env:"WEBHOOK_RATE_BURST" envDefault:"10"`
	}

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "mysql":
		c.Database.Driver = strings.ToLower(c.Database.Driver)
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or mysql, got %q", c.Database.Driver)
	}
	if c.Webhooks.QueueSize < 1 {
		return fmt.Errorf("WEBHOOK_QUEUE_SIZE must be positive")
	}
	if c.Webhooks.MaxRetries < 0 {
		return fmt.Errorf("WEBHOOK_MAX_RETRIES cannot be negative")
	}
	return nil
}

// ValidateServer adds the checks only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
