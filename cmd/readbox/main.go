package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ozgund/readbox/internal/api"
	"github.com/ozgund/readbox/internal/cache"
	"github.com/ozgund/readbox/internal/config"
	"github.com/ozgund/readbox/internal/feed"
	"github.com/ozgund/readbox/internal/logger"
	"github.com/ozgund/readbox/internal/middleware"
	"github.com/ozgund/readbox/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Msg("Starting readbox...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database and apply migrations
	store, err := storage.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	if err := store.Migrate(ctx, "./migrations"); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// The document skip cache is optional; without Redis every batch does
	// a full pass, which is merely slower, never wrong.
	var docCache feed.DocumentCache
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, syncing without document cache")
		} else {
			docCache = redisClient
			defer func() {
				if err := redisClient.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing Redis client")
				}
			}()
		}
	}

	fetcher := feed.NewFetcher(cfg.FetchTimeout)
	syncer := feed.NewSyncer(store, store, fetcher, docCache, cfg.CacheTTL, cfg.MaxConcurrency)

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	api.SetupRoutes(app, api.NewHandlers(cfg, store, syncer), cfg)

	// Scheduled batch sync: one pass at startup, then every interval.
	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		syncer.SyncAllFeeds(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Sync scheduler stopped")
				return
			case <-ticker.C:
				syncer.SyncAllFeeds(ctx)
			}
		}
	}()

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
