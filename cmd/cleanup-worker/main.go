package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"excel-insights-api/internal/config"
	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/queue"
	"excel-insights-api/internal/storage"
	"excel-insights-api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting cleanup worker")

	// Initialize Redis client
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize blob storage
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	consumer := queue.NewConsumer(redisClient, cfg)
	cleanupWorker := worker.NewCleanupWorker(cfg, store, consumer)

	if backlog, err := redisClient.Backlog(context.Background(), cfg.Redis.CleanupQueue, consumer.DLQName()); err == nil {
		log.Info().
			Int64("pending", backlog[cfg.Redis.CleanupQueue]).
			Int64("dead_lettered", backlog[consumer.DLQName()]).
			Msg("Cleanup queue backlog")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cleanupWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Cleanup worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down cleanup worker...")

	cancel()
	<-done
	cleanupWorker.Stop()

	log.Info().Msg("Cleanup worker exited")
}
