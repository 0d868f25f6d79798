// Package config provides configuration management for the transaction
// cache service. It loads configuration from environment variables and
// .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Mirror    MirrorConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds backing store configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration for the account directory
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration for the cache store
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// MirrorConfig holds mirror node (ledger) client configuration
type MirrorConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CacheConfig holds cache behavior configuration
type CacheConfig struct {
	TTL           time.Duration // store-level safety expiration
	FetchLimit    int           // max records fetched per refresh
	MaxAgeMinutes int           // application-level staleness threshold
}

// SchedulerConfig holds refresh scheduler configuration
type SchedulerConfig struct {
	Interval   time.Duration
	BatchSize  int
	BatchDelay time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "direla"),
				User:           getEnv("POSTGRES_USER", "direla"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		Mirror: MirrorConfig{
			BaseURL: getEnv("MIRROR_NODE_URL", "https://testnet.mirrornode.hedera.com"),
			Timeout: getEnvAsDuration("MIRROR_NODE_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			TTL:           getEnvAsDuration("CACHE_TTL", 24*time.Hour),
			FetchLimit:    getEnvAsInt("CACHE_FETCH_LIMIT", 1000),
			MaxAgeMinutes: getEnvAsInt("CACHE_MAX_AGE_MINUTES", 5),
		},
		Scheduler: SchedulerConfig{
			Interval:   getEnvAsDuration("SCHEDULER_INTERVAL", 5*time.Minute),
			BatchSize:  getEnvAsInt("SCHEDULER_BATCH_SIZE", 3),
			BatchDelay: getEnvAsDuration("SCHEDULER_BATCH_DELAY", time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
