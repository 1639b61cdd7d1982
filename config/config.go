package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Environment
	Environment string
	HTTPAddr    string

	// Memcache configuration, empty disables it
	MemcacheAddr string

	// Redis configuration, empty disables the event stream and cart cache
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int
	CartCacheTTL         time.Duration

	// MongoDB configuration, empty URI keeps carts in memory
	MongoURI    string
	MongoDBName string

	// Scraper configuration
	ScraperTimeout     time.Duration
	ScraperAttempts    int
	ScraperRetryDelay  time.Duration
	ScraperMinBodySize int
	MaxRetryAfter      time.Duration
	RequestsPerSecond  float64
	RateLimitBlockTime time.Duration
	// Proxies are http, https or socks5 URLs; empty fetches direct
	Proxies             []string
	ProxyUpdateInterval time.Duration

	// Search configuration
	SearchDeadline     time.Duration
	RealTierDeadline   time.Duration
	MaxConcurrent      int
	EnableMockFallback bool
	SearchCacheTTL     time.Duration
	EnabledPlatforms   []string
	DefaultPlatforms   []string
	DefaultLocation    string

	// Intent extractor configuration, empty endpoint uses keyword matching only
	IntentEndpoint string
	IntentAPIKey   string
	IntentModel    string
	IntentTimeout  time.Duration
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Environment: getEnv("SHOPCOMPARE_ENVIRONMENT", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),

		MemcacheAddr: getEnv("MEMCACHE_ADDR", ""),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "searches"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		CartCacheTTL:         getEnvSeconds("CART_CACHE_TTL_SECONDS", 900),

		MongoURI:    getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DB_NAME", "shopcompare"),

		ScraperTimeout:     getEnvSeconds("SCRAPER_TIMEOUT_SECONDS", 10),
		ScraperAttempts:    getEnvInt("SCRAPER_ATTEMPTS", 3),
		ScraperRetryDelay:  getEnvMillis("SCRAPER_RETRY_DELAY_MS", 1000),
		ScraperMinBodySize: getEnvInt("SCRAPER_MIN_BODY_SIZE", 1000),
		MaxRetryAfter:      getEnvSeconds("SCRAPER_MAX_RETRY_AFTER_SECONDS", 60),
		RequestsPerSecond:  getEnvFloat("SCRAPER_REQUESTS_PER_SECOND", 2),
		RateLimitBlockTime: getEnvSeconds("RATE_LIMIT_BLOCK_SECONDS", 300),

		Proxies:             getEnvStrings("SCRAPER_PROXIES"),
		ProxyUpdateInterval: getEnvSeconds("PROXY_UPDATE_INTERVAL_SECONDS", 1800),

		SearchDeadline:     getEnvSeconds("SEARCH_DEADLINE_SECONDS", 25),
		RealTierDeadline:   getEnvSeconds("REAL_TIER_DEADLINE_SECONDS", 8),
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT_REQUESTS", 5),
		EnableMockFallback: getEnvBool("ENABLE_MOCK_FALLBACK", true),
		SearchCacheTTL:     getEnvSeconds("SEARCH_CACHE_TTL_SECONDS", 300),
		EnabledPlatforms:   getEnvList("ENABLED_PLATFORMS", "amazon,flipkart,blinkit,zepto,meesho,nykaa,instamart"),
		DefaultPlatforms:   getEnvList("DEFAULT_PLATFORMS", "flipkart,amazon,meesho,blinkit"),
		DefaultLocation:    getEnv("DEFAULT_CITY", "Mumbai"),

		IntentEndpoint: getEnv("INTENT_ENDPOINT", ""),
		IntentAPIKey:   getEnv("OPENAI_API_KEY", ""),
		IntentModel:    getEnv("INTENT_MODEL", "gpt-3.5-turbo"),
		IntentTimeout:  getEnvSeconds("INTENT_TIMEOUT_SECONDS", 3),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.ScraperTimeout <= 0 {
		return fmt.Errorf("SCRAPER_TIMEOUT_SECONDS must be positive")
	}
	if c.ScraperAttempts < 1 {
		return fmt.Errorf("SCRAPER_ATTEMPTS must be at least 1")
	}
	if c.SearchDeadline <= 0 || c.RealTierDeadline <= 0 {
		return fmt.Errorf("search deadlines must be positive")
	}
	if c.RealTierDeadline > c.SearchDeadline {
		return fmt.Errorf("REAL_TIER_DEADLINE_SECONDS (%v) exceeds SEARCH_DEADLINE_SECONDS (%v)", c.RealTierDeadline, c.SearchDeadline)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("MAX_CONCURRENT_REQUESTS must be at least 1")
	}
	if len(c.EnabledPlatforms) == 0 {
		return fmt.Errorf("ENABLED_PLATFORMS is empty")
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be at least 1")
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}

// getEnvStrings splits a comma-separated variable keeping case
func getEnvStrings(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
