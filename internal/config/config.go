package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Services
	Autoscale AutoscaleConfig
	API       APIConfig
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// AutoscaleConfig holds rule engine configuration
type AutoscaleConfig struct {
	Port              int
	HealthCheckPort   int
	DefaultTimezone   string        // used when the asset's bot has no timezone configured
	QueryTimeout      time.Duration // per database call
	ProviderTimeout   time.Duration // per ad provider call
	HistoryMaxRetries int
	HistoryRetryDelay time.Duration
	SummaryStream     string // Redis stream for batch summaries, empty disables publishing
	DryRun            bool   // never call ad platforms
}

// APIConfig holds REST API configuration
type APIConfig struct {
	JWTSecret    string
	RateLimitRPS int
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "ad_autoscaler"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		Autoscale: AutoscaleConfig{
			Port:              getEnvAsInt("AUTOSCALE_PORT", 8095),
			HealthCheckPort:   getEnvAsInt("AUTOSCALE_HEALTH_PORT", 8096),
			DefaultTimezone:   getEnv("AUTOSCALE_DEFAULT_TIMEZONE", "UTC"),
			QueryTimeout:      getEnvAsDuration("AUTOSCALE_QUERY_TIMEOUT", 10*time.Second),
			ProviderTimeout:   getEnvAsDuration("AUTOSCALE_PROVIDER_TIMEOUT", 30*time.Second),
			HistoryMaxRetries: getEnvAsInt("AUTOSCALE_HISTORY_MAX_RETRIES", 3),
			HistoryRetryDelay: getEnvAsDuration("AUTOSCALE_HISTORY_RETRY_DELAY", 500*time.Millisecond),
			SummaryStream:     getEnv("AUTOSCALE_SUMMARY_STREAM", "autoscale.runs"),
			DryRun:            getEnvAsBool("AUTOSCALE_DRY_RUN", false),
		},
		API: APIConfig{
			JWTSecret:    getEnv("API_JWT_SECRET", ""),
			RateLimitRPS: getEnvAsInt("API_RATE_LIMIT_RPS", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required when REDIS_ENABLED is set")
	}
	if _, err := time.LoadLocation(c.Autoscale.DefaultTimezone); err != nil {
		return fmt.Errorf("AUTOSCALE_DEFAULT_TIMEZONE is invalid: %w", err)
	}
	if c.Autoscale.HistoryMaxRetries < 1 {
		return fmt.Errorf("AUTOSCALE_HISTORY_MAX_RETRIES must be at least 1")
	}
	if c.Environment == "production" && c.API.JWTSecret == "" {
		return fmt.Errorf("API_JWT_SECRET is required in production")
	}
	return nil
}

// DefaultLocation returns the configured fallback timezone
func (c *AutoscaleConfig) DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ConnString builds a lib/pq connection string
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// URL builds a postgres:// URL for golang-migrate
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.Database, c.SSLMode)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
