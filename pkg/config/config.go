package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Document feeds
	Feed FeedConfig

	// Sessions
	Session SessionConfig

	// Database (optional, only for pg: feed locations)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// API throttling (requests per second, 0 disables)
	APIRateLimit int

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// FeedConfig holds the locations of the two static documents.
// A location is an http(s) URL, a file path, or pg:<name>.
type FeedConfig struct {
	CatalogLocation string
	SeriesLocation  string
	Timeout         time.Duration
	MaxRetries      int
	SeriesCacheTTL  time.Duration
}

// SessionConfig controls idle session eviction
type SessionConfig struct {
	IdleTTL      time.Duration
	ReapSchedule string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PostgresScheme prefixes feed locations served from the feed_documents table
const PostgresScheme = "pg:"

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Feed: FeedConfig{
			CatalogLocation: getEnv("CATALOG_LOCATION", "reportjson.json"),
			SeriesLocation:  getEnv("SERIES_LOCATION", "data.json"),
			Timeout:         getEnvAsDuration("FEED_TIMEOUT", "30s"),
			MaxRetries:      getEnvAsInt("FEED_MAX_RETRIES", 3),
			SeriesCacheTTL:  getEnvAsDuration("SERIES_CACHE_TTL", "1h"),
		},

		Session: SessionConfig{
			IdleTTL:      getEnvAsDuration("SESSION_IDLE_TTL", "2h"),
			ReapSchedule: getEnv("SESSION_REAP_SCHEDULE", "0 */10 * * * *"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		APIRateLimit: getEnvAsInt("API_RATE_LIMIT", 20),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// UsesPostgres reports whether any feed location is served from Postgres
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.Feed.CatalogLocation, PostgresScheme) ||
		strings.HasPrefix(c.Feed.SeriesLocation, PostgresScheme)
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Feed.CatalogLocation == "" {
		return fmt.Errorf("CATALOG_LOCATION is required")
	}
	if c.Feed.SeriesLocation == "" {
		return fmt.Errorf("SERIES_LOCATION is required")
	}

	// pg: locations need a database
	if c.UsesPostgres() && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required for %s feed locations", PostgresScheme)
	}

	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
