// Package configs provides application configuration loaded from environment variables.
// Per-run choices (exchange, market, day range) are command line flags instead.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// DataDir is the root of the day archive.
	DataDir string

	// LogLevel is a logrus level name.
	LogLevel string

	// Crawler holds HTTP settings shared by every exchange driver.
	Crawler CrawlerConfig

	// Ingester holds pacing and retry policy.
	Ingester IngesterConfig

	// Kafka holds settings for day-archived events.
	Kafka KafkaConfig

	// DBDSN is the ClickHouse connection string used by export and migrate.
	DBDSN string

	// ServerPort is the HTTP API listen port.
	ServerPort string
}

type CrawlerConfig struct {
	// ProxyURL routes exchange requests through an HTTP proxy when set.
	ProxyURL string

	RequestTimeout time.Duration
}

// IngesterConfig holds settings for day-by-day archiving.
type IngesterConfig struct {
	// PacingDelay is the minimum gap between two exchange calls.
	PacingDelay time.Duration

	// RateLimitRetries bounds retries of one rate limited day.
	RateLimitRetries int

	// RateLimitDelay is the wait after a rate limit response.
	RateLimitDelay time.Duration

	// Tolerant skips days with malformed payloads.
	Tolerant bool
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	// Broker is the Kafka broker address. Empty disables events.
	Broker string

	// Topic receives one message per archived day.
	Topic string
}

func (k KafkaConfig) Enabled() bool { return k.Broker != "" }

// getDatabaseDSN constructs the ClickHouse DSN from environment variables.
func getDatabaseDSN() string {
	if dsn := getEnv("CLICKHOUSE_DSN", ""); dsn != "" {
		return dsn
	}
	dbUser := getEnv("CLICKHOUSE_USER", "default")
	dbPassword := getEnv("CLICKHOUSE_PASSWORD", "")
	dbHost := getEnv("CLICKHOUSE_HOST", "localhost")
	dbPort := getEnv("CLICKHOUSE_TCP_PORT", "9000")
	dbName := getEnv("CLICKHOUSE_DB", "marketarchive")

	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&read_timeout=20s",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
func AppLoad() *AppConfig {
	_ = godotenv.Load() // .env is optional

	return &AppConfig{
		DataDir:  getEnv("DATA_DIR", "./data"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Crawler: CrawlerConfig{
			ProxyURL:       getEnv("HTTP_PROXY_URL", ""),
			RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Ingester: IngesterConfig{
			PacingDelay:      time.Duration(getEnvInt("PACING_DELAY_MS", 500)) * time.Millisecond,
			RateLimitRetries: getEnvInt("RATE_LIMIT_RETRIES", 5),
			RateLimitDelay:   time.Duration(getEnvInt("RATE_LIMIT_DELAY_MS", 10000)) * time.Millisecond,
			Tolerant:         getEnvBool("TOLERANT", false),
		},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_ARCHIVE_TOPIC", "marketarchive_days"),
		},
		DBDSN:      getDatabaseDSN(),
		ServerPort: getEnv("SERVER_PORT", "8080"),
	}
}

// getEnv returns the environment variable value or a default.
// A variable set to the empty string counts as unset.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
