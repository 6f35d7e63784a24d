package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	AppEnv   string
	LogLevel string

	ServerAddr  string
	CORSOrigins []string

	// Postgres configuration
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Redis session store configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	// Accounts is the raw LIBRARY_ACCOUNTS value: comma-separated
	// username:role:bcrypt-hash entries.
	Accounts string

	// ClickHouse event sink configuration (disabled when ClickHouseHost is empty)
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool
}

// EventsEnabled reports whether ledger events should be shipped to ClickHouse.
func (c *Config) EventsEnabled() bool { return c.ClickHouseHost != "" }

// Development reports whether the app runs with developer-friendly logging.
func (c *Config) Development() bool { return c.AppEnv == "dev" }

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{
		AppEnv:             getEnv("APP_ENV", "prod"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		RedisAddr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		ClickHouseHost:     os.Getenv("CLICKHOUSE_HOST"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "default"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: os.Getenv("CLICKHOUSE_PASSWORD"),
		ClickHouseUseTLS:   os.Getenv("CLICKHOUSE_USE_TLS") == "true",
	}

	// Database URL (required)
	config.DatabaseURL = os.Getenv("DATABASE_URL")
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Accounts (required)
	config.Accounts = os.Getenv("LIBRARY_ACCOUNTS")
	if strings.TrimSpace(config.Accounts) == "" {
		return nil, fmt.Errorf("LIBRARY_ACCOUNTS is required (comma-separated username:role:bcrypt-hash entries)")
	}

	var err error
	if config.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 20); err != nil {
		return nil, err
	}
	if config.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 10); err != nil {
		return nil, err
	}
	if config.DBConnMaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", time.Hour); err != nil {
		return nil, err
	}
	if config.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if config.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if config.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	if config.ClickHousePort, err = getInt("CLICKHOUSE_PORT", 9000); err != nil {
		return nil, err
	}

	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if s := strings.TrimSpace(o); s != "" {
			config.CORSOrigins = append(config.CORSOrigins, s)
		}
	}

	return config, nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
