package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"pricegap/config"
	"pricegap/internal/catalog"
	"pricegap/internal/fetch"
	"pricegap/internal/match"
	"pricegap/internal/offer"
	"pricegap/internal/product"
	"pricegap/logger"
	"pricegap/services/cache"
	"pricegap/services/pipeline"
	"pricegap/services/publisher"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// CLI arguments override the configured category and minimum discount
	category := cfg.DefaultCategory
	minDiscount := cfg.DefaultMinDiscount
	args := os.Args[1:]
	if len(args) > 0 {
		category = args[0]
	}
	if len(args) > 1 {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			log.Fatal().Str("arg", args[1]).Msg("Minimum discount must be a number")
		}
		minDiscount = value
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("category", category).
		Float64("min_discount", minDiscount).
		Msg("Starting price gap run")

	// Set up context cancelled on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional memcache-backed rate-limit block keys
	var cacheService cache.CacheService
	if cfg.MemcacheAddr != "" {
		cacheService = cache.NewMemcacheService(cfg.MemcacheAddr)
		log.Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
	}

	// Optional Redis stream for publishing match records
	var pub publisher.Publisher
	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		defer redisPublisher.Close()
		pub = redisPublisher
		log.Info().
			Str("addr", cfg.RedisAddr).
			Int("db", cfg.RedisDB).
			Str("stream", cfg.RedisStream).
			Msg("Connected to Redis")
	}

	fetcher := fetch.New(fetch.Config{
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.RequestTimeout,
		Retries:    cfg.FetchRetries,
		RetryDelay: cfg.RetryDelay,
		BlockTime:  cfg.BlockTime,
	}, cacheService)

	scraper := catalog.NewScraper(fetcher, cfg.CatalogBaseURL, catalog.DefaultSelectors())
	extractor := product.NewExtractor(cfg.SearchBaseURL, product.DefaultSelectors())
	offersClient := offer.NewClient(fetcher, cfg.OffersURL)
	matcher := match.NewMatcher(fetcher, extractor, offersClient, match.Config{
		SearchURL:           cfg.SearchURL,
		SimilarityThreshold: cfg.SimilarityThreshold,
		PriceGapThreshold:   cfg.PriceGapThreshold,
		SearchDelay:         cfg.SearchDelay,
	})

	p := pipeline.New(scraper, matcher, pub, os.Stdout)
	if err := p.Run(ctx, category, minDiscount); err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}

	log.Info().Msg("Run complete")
}
