// Package config loads application configuration from environment variables
// (optionally via a .env file) with sensible defaults.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Record source: "sqlite", "postgres" or "memory"
	DBDriver    string
	DBPath      string // sqlite file path, ":memory:" for in-memory
	DatabaseURL string // postgres DSN

	// Report computation
	ReportTimeout time.Duration
	Workers       int // <= 0 means GOMAXPROCS

	// Cache
	CacheTTL time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		DBPath:      getEnv("DB_PATH", "sinistro.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		ReportTimeout: getEnvDuration("REPORT_TIMEOUT", 30*time.Second),
		Workers:       getEnvInt("REPORT_WORKERS", 0),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
