package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultSearchURL is the marketplace search endpoint the crawler templates queries into
const DefaultSearchURL = "https://www.ebay.com/sch/i.html"

// Config represents the application configuration
type Config struct {
	// HTTP API configuration
	HTTPAddr          string
	CORSAllowedOrigin string

	// Upstream fetch configuration
	SearchURL      string
	FetchTimeout   time.Duration
	ExtractWorkers int
	SourceTimezone string
	BlockTime      time.Duration
	PageCacheTTL   time.Duration

	// Memcache configuration
	MemcacheAddr string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Watch configuration
	WatchFile     string
	WatchInterval time.Duration
	SeenTTL       time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		CORSAllowedOrigin:    getEnv("CORS_ALLOWED_ORIGIN", "*"),
		SearchURL:            getEnv("EBAY_SEARCH_URL", DefaultSearchURL),
		FetchTimeout:         getSeconds("FETCH_TIMEOUT_SECONDS", 15),
		ExtractWorkers:       getInt("EXTRACT_WORKERS", 8),
		SourceTimezone:       getEnv("SOURCE_TIMEZONE", "Local"),
		BlockTime:            getSeconds("BLOCK_SECONDS", 300),
		PageCacheTTL:         getSeconds("PAGE_CACHE_SECONDS", 0),
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "listings"),
		RedisStreamCount:     getInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getInt("REDIS_STREAM_MAX_LENGTH", 1000),
		WatchFile:            os.Getenv("WATCH_FILE"),
		WatchInterval:        getSeconds("WATCH_INTERVAL_SECONDS", 300),
		SeenTTL:              getSeconds("SEEN_TTL_SECONDS", 86400),
		Environment:          getEnv("EBAYMONITOR_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if c.SearchURL == "" {
		return fmt.Errorf("EBAY_SEARCH_URL must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.ExtractWorkers <= 0 {
		return fmt.Errorf("EXTRACT_WORKERS must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("SOURCE_TIMEZONE: %w", err)
	}
	if c.WatchFile != "" {
		if c.WatchInterval <= 0 {
			return fmt.Errorf("WATCH_INTERVAL_SECONDS must be positive")
		}
		if c.RedisStreamCount <= 0 {
			return fmt.Errorf("REDIS_STREAM_COUNT must be positive")
		}
	}
	return nil
}

// Location returns the time zone listing timestamps are interpreted in
func (c *Config) Location() (*time.Location, error) {
	if c.SourceTimezone == "" || c.SourceTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.SourceTimezone)
}

// WatchEnabled reports whether the monitor worker should run
func (c *Config) WatchEnabled() bool {
	return c.WatchFile != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return n
}

func getSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * time.Second
}
