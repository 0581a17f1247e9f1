package config

import (
	"os"
	"strconv"
	"time"

	apperrors "pricegap/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Site endpoints
	CatalogBaseURL string
	SearchURL      string
	SearchBaseURL  string
	OffersURL      string

	// Run defaults, overridable by CLI arguments
	DefaultCategory    string
	DefaultMinDiscount float64

	// Matching thresholds
	SimilarityThreshold float64
	PriceGapThreshold   float64

	// Fetcher configuration
	UserAgent      string
	RequestTimeout time.Duration
	FetchRetries   int
	RetryDelay     time.Duration
	SearchDelay    time.Duration
	BlockTime      time.Duration

	// Memcache configuration (optional rate-limit block keys)
	MemcacheAddr string

	// Redis configuration (optional match publishing)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	minDiscount, _ := strconv.ParseFloat(getEnv("MIN_DISCOUNT", "200"), 64)
	simThreshold, _ := strconv.ParseFloat(getEnv("SIMILARITY_THRESHOLD", "0.9"), 64)
	gapThreshold, _ := strconv.ParseFloat(getEnv("PRICE_GAP_THRESHOLD", "100"), 64)
	timeoutSeconds, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "15"))
	retries, _ := strconv.Atoi(getEnv("FETCH_RETRIES", "2"))
	retryDelaySeconds, _ := strconv.Atoi(getEnv("RETRY_DELAY_SECONDS", "8"))
	searchDelaySeconds, _ := strconv.Atoi(getEnv("SEARCH_DELAY_SECONDS", "1"))
	blockSeconds, _ := strconv.Atoi(getEnv("BLOCK_TIME_SECONDS", "60"))

	return Config{
		CatalogBaseURL:       getEnv("CATALOG_BASE_URL", "https://www.theiconic.com.au"),
		SearchURL:            getEnv("SEARCH_URL", "https://www.davidjones.com/search?q="),
		SearchBaseURL:        getEnv("SEARCH_BASE_URL", "https://www.davidjones.com"),
		OffersURL:            getEnv("OFFERS_URL", "https://www.davidjones.com/routes/special-offers"),
		DefaultCategory:      getEnv("CATALOG_CATEGORY", "womens-sale"),
		DefaultMinDiscount:   minDiscount,
		SimilarityThreshold:  simThreshold,
		PriceGapThreshold:    gapThreshold,
		UserAgent:            getEnv("USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"),
		RequestTimeout:       time.Duration(timeoutSeconds) * time.Second,
		FetchRetries:         retries,
		RetryDelay:           time.Duration(retryDelaySeconds) * time.Second,
		SearchDelay:          time.Duration(searchDelaySeconds) * time.Second,
		BlockTime:            time.Duration(blockSeconds) * time.Second,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "pricegap_matches"),
		RedisStreamMaxLength: streamMaxLength,
		Environment:          getEnv("PRICEGAP_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.CatalogBaseURL == "" || c.SearchURL == "" || c.OffersURL == "" {
		return apperrors.NewConfiguration("site endpoints must not be empty", nil)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return apperrors.NewConfiguration("similarity threshold must be in (0, 1]", nil)
	}
	if c.PriceGapThreshold < 0 {
		return apperrors.NewConfiguration("price gap threshold must not be negative", nil)
	}
	if c.DefaultMinDiscount < 0 {
		return apperrors.NewConfiguration("minimum discount must not be negative", nil)
	}
	if c.FetchRetries < 1 {
		return apperrors.NewConfiguration("fetch retries must be at least 1", nil)
	}
	if c.RequestTimeout <= 0 {
		return apperrors.NewConfiguration("request timeout must be positive", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
