package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string
	UserID    string

	// Subscription store
	DatabaseURL          string
	DatabaseMaxConns     int
	StoreBreakerFailures int
	StoreBreakerTimeout  time.Duration

	// Usage counter
	RedisURL string

	// Change events
	RabbitMQURL string

	// Payment
	PayPalClientID     string
	PayPalClientSecret string
	PayPalAPIURL       string
	PaymentDemoDelay   time.Duration

	// Worker
	SweepInterval    time.Duration
	SweepBatchSize   int
	WorkerHealthAddr string

	// MCP
	MCPAddr      string
	MCPAuthToken string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""),
		UserID:    getEnv("TUTORA_USER_ID", "local-user"),

		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:     getIntEnv("DATABASE_MAX_CONNS", 10),
		StoreBreakerFailures: getIntEnv("STORE_BREAKER_FAILURES", 5),
		StoreBreakerTimeout:  getDurationEnv("STORE_BREAKER_TIMEOUT", 30*time.Second),

		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		PayPalAPIURL:       getEnv("PAYPAL_API_URL", "https://api-m.sandbox.paypal.com"),
		PaymentDemoDelay:   getDurationEnv("PAYMENT_DEMO_DELAY", time.Second),

		SweepInterval:    getDurationEnv("SWEEP_INTERVAL", time.Hour),
		SweepBatchSize:   getIntEnv("SWEEP_BATCH_SIZE", 100),
		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),

		MCPAddr:      getEnv("MCP_ADDR", "0.0.0.0:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DatabaseConfigured reports whether a remote subscription store is set.
func (c *Config) DatabaseConfigured() bool {
	return !IsPlaceholder(c.DatabaseURL)
}

// PaymentConfigured reports whether real PayPal credentials are set.
// Without them the demo gateway is used.
func (c *Config) PaymentConfigured() bool {
	return !IsPlaceholder(c.PayPalClientID) && !IsPlaceholder(c.PayPalClientSecret)
}

var placeholderValues = map[string]bool{
	"placeholder": true,
	"changeme":    true,
	"change-me":   true,
	"test":        true,
	"demo":        true,
	"none":        true,
	"todo":        true,
}

// IsPlaceholder reports whether a credential or URL is empty or an
// obvious template value such as "your-client-id" or "xxxx".
func IsPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	if placeholderValues[v] {
		return true
	}
	if strings.HasPrefix(v, "your-") || strings.HasPrefix(v, "your_") || strings.HasPrefix(v, "<") {
		return true
	}
	return strings.Trim(v, "x") == ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
