package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Memory backend
	SeedDataDir string

	// AMQP (empty URL disables the event pipeline)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Tax table override (empty uses the embedded table)
	TaxTablePath string

	// Comparison sessions
	SessionCacheSize  int
	SessionTTL        time.Duration
	SessionCookieName string

	// Provider read cache
	ProviderCacheTTL time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/schools.db"),
		SeedDataDir:  getEnv("SEED_DATA_DIR", "data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "schoolcompare"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "comparison_events"),

		TaxTablePath: getEnv("TAX_TABLE_PATH", ""),

		SessionCacheSize:  getEnvInt("SESSION_CACHE_SIZE", 1000),
		SessionTTL:        getEnvDuration("SESSION_TTL", 2*time.Hour),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "compare_session"),

		ProviderCacheTTL: getEnvDuration("PROVIDER_CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// EventsEnabled reports whether comparison events go to a broker.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		// Counters live in SQLite; the memory backend records events in-process.
		if c.DataBackend == "memory" {
			errors = append(errors, "AMQP events require the sqlite backend")
		}
	}

	if c.TaxTablePath != "" {
		if _, err := os.Stat(c.TaxTablePath); err != nil {
			errors = append(errors, fmt.Sprintf("tax table file '%s' is not readable: %v", c.TaxTablePath, err))
		}
	}

	if c.SessionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	} else if c.SessionCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must be at most 100000", c.SessionCacheSize))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session ttl %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.SessionCookieName == "" || strings.ContainsAny(c.SessionCookieName, " ;,=\t") {
		errors = append(errors, fmt.Sprintf("invalid session cookie name '%s'", c.SessionCookieName))
	}

	if c.ProviderCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid provider cache ttl %v: must not be negative", c.ProviderCacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
