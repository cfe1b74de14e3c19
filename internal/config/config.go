// Package config provides configuration management for the pop scanner
// service. It loads configuration from environment variables and .env files.
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
	Firecrawl FirecrawlConfig
	Scraper   ScraperConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// FirecrawlConfig holds the page-fetch API configuration. An empty APIKey is
// a valid state: the scraper falls back to synthetic data instead of
// fetching.
type FirecrawlConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ScraperConfig holds scraping pipeline configuration
type ScraperConfig struct {
	// FetchDelay is the pacing between successive fetch calls, a courtesy
	// to the upstream API rather than a correctness requirement.
	FetchDelay time.Duration
	// PageCacheTTL bounds how long a fetched search page is reused.
	PageCacheTTL time.Duration
	// RescrapeInterval sets next_scrape_due relative to a completed run.
	RescrapeInterval time.Duration
	// WorkerPollInterval is how often the rescrape worker looks for due
	// jobs. Zero disables the worker.
	WorkerPollInterval time.Duration
	// WorkerBatchSize caps how many due jobs one poll claims.
	WorkerBatchSize int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
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
				Database:       getEnv("POSTGRES_DB", "pop_scanner"),
				User:           getEnv("POSTGRES_USER", "scanner"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			Redis: RedisConfig{
				Host:     getEnv("REDIS_HOST", "localhost"),
				Port:     getEnv("REDIS_PORT", "6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
		},
		Firecrawl: FirecrawlConfig{
			APIKey:  getEnv("FIRECRAWL_API_KEY", ""),
			BaseURL: getEnv("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
			Timeout: getEnvAsDuration("FIRECRAWL_TIMEOUT", 30*time.Second),
		},
		Scraper: ScraperConfig{
			FetchDelay:         getEnvAsDuration("SCRAPER_FETCH_DELAY", time.Second),
			PageCacheTTL:       getEnvAsDuration("SCRAPER_PAGE_CACHE_TTL", 15*time.Minute),
			RescrapeInterval:   getEnvAsDuration("SCRAPER_RESCRAPE_INTERVAL", 7*24*time.Hour),
			WorkerPollInterval: getEnvAsDuration("SCRAPER_WORKER_POLL_INTERVAL", time.Minute),
			WorkerBatchSize:    getEnvAsInt("SCRAPER_WORKER_BATCH_SIZE", 10),
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
