package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Cache configuration
	RedisURL     string        `json:"redis_url"`
	RedisEnabled bool          `json:"redis_enabled"`
	CachePrefix  string        `json:"cache_prefix"`
	CacheTTL     time.Duration `json:"cache_ttl"`

	// Aggregator configuration
	MaxWorkers    int           `json:"max_workers"`
	MaxPerSource  int           `json:"max_per_source"`
	SourceTimeout time.Duration `json:"source_timeout"`
	FetchTimeout  time.Duration `json:"fetch_timeout"`

	// Store configuration
	DBPath        string `json:"db_path"`
	RetentionDays int    `json:"retention_days"`
	MaxRows       int    `json:"max_rows"`

	// Archive (S3/R2) configuration
	ArchiveEnabled  bool   `json:"archive_enabled"`
	ArchiveEndpoint string `json:"archive_endpoint"`
	ArchiveKey      string `json:"archive_key"`
	ArchiveSecret   string `json:"archive_secret"`
	ArchiveBucket   string `json:"archive_bucket"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Cache configuration
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisEnabled: getEnvAsBool("REDIS_ENABLED", true),
		CachePrefix:  getEnv("CACHE_PREFIX", "newspulse:"),
		CacheTTL:     getEnvAsDuration("CACHE_TTL", 5*time.Minute),

		// Aggregator configuration
		MaxWorkers:    getEnvAsInt("MAX_WORKERS", 5),
		MaxPerSource:  getEnvAsInt("MAX_PER_SOURCE", 20),
		SourceTimeout: getEnvAsDuration("SOURCE_TIMEOUT", 15*time.Second),
		FetchTimeout:  getEnvAsDuration("FETCH_TIMEOUT", 60*time.Second),

		// Store configuration
		DBPath:        getEnv("DB_PATH", "./data/news.db"),
		RetentionDays: getEnvAsInt("RETENTION_DAYS", 30),
		MaxRows:       getEnvAsInt("MAX_ROWS", 10000),

		// Archive configuration
		ArchiveEnabled:  getEnvAsBool("ARCHIVE_ENABLED", false),
		ArchiveEndpoint: getEnv("ARCHIVE_ENDPOINT", ""),
		ArchiveKey:      getEnv("ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecret:   getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
		ArchiveBucket:   getEnv("ARCHIVE_BUCKET", "newspulse-archive"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	return cfg
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
