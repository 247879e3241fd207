package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ebaymonitor/server/config"
	"ebaymonitor/server/helpers"
	"ebaymonitor/server/internal"
	"ebaymonitor/server/internal/api"
	"ebaymonitor/server/internal/crawler"
	"ebaymonitor/server/logger"
	"ebaymonitor/server/services/cache"
	"ebaymonitor/server/services/publisher"
	"ebaymonitor/server/services/worker"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

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

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid source timezone")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.HTTPAddr).
		Str("timezone", loc.String()).
		Bool("watch", cfg.WatchEnabled()).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Cleanup()

	searcher := crawler.NewSearchCrawler(crawler.CrawlerConfig{
		SearchURL:    cfg.SearchURL,
		BlockTime:    cfg.BlockTime,
		PageCacheTTL: cfg.PageCacheTTL,
		Workers:      cfg.ExtractWorkers,
		Location:     loc,
	}, deps.Fetcher, deps.Cache)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(api.NewListingsHandler(searcher), cfg.CORSAllowedOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting HTTP server")
		serverDone <- server.ListenAndServe()
	}()

	workerDone := make(chan error, 1)
	if cfg.WatchEnabled() {
		watchList, err := config.LoadWatchList(cfg.WatchFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load watch list")
		}

		w := worker.NewWorker(
			ctx,
			searcher,
			watchList.Searches,
			deps.Publisher,
			deps.Cache,
			cfg.SeenTTL,
			cfg.WatchInterval,
		)

		go func() {
			log.Info().
				Int("searches", len(watchList.Searches)).
				Dur("interval", cfg.WatchInterval).
				Msg("Starting watch worker")
			workerDone <- w.Start()
		}()
	}

	// Wait for shutdown signal or a component exiting
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	case err := <-workerDone:
		if err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}
	cancel()

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{
		Fetcher: helpers.NewFetcher(helpers.NewHTTPClient(cfg.FetchTimeout)),
	}

	// Cache is optional: without it there is no page cache, block marker or seen marker
	if cfg.MemcacheAddr != "" {
		memcache := cache.NewMemcacheService(cfg.MemcacheAddr, cfg.FetchTimeout)
		if err := memcache.Ping(); err != nil {
			logger.Warn("Memcache at %s unreachable: %v", cfg.MemcacheAddr, err)
		} else {
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
		deps.Cache = memcache
	}

	if !cfg.WatchEnabled() {
		return deps, nil
	}

	redisPublisher := publisher.NewRedisPublisher(
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(ctx); err != nil {
		redisPublisher.Close()
		return nil, err
	}
	deps.Publisher = redisPublisher

	logger.LogInfo("publisher", "Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return deps, nil
}
