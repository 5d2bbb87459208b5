package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"excel-insights-api/internal/api"
	"excel-insights-api/internal/auth"
	"excel-insights-api/internal/config"
	"excel-insights-api/internal/db"
	"excel-insights-api/internal/excel"
	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/queue"
	"excel-insights-api/internal/service"
	"excel-insights-api/internal/storage"

	"github.com/gin-gonic/gin"
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

	log.Info().Str("version", cfg.App.Version).Msg("Starting API server")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize repositories
	fileRepo := db.NewFileRepository(database)
	settingsRepo := db.NewSettingsRepository(database, cfg.Database.Driver)
	userRepo := db.NewUserRepository(database)

	// Initialize blob storage
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	policy := auth.DefaultPolicy()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	files := service.NewFileService(
		fileRepo,
		settingsRepo,
		store,
		excel.NewNormalizer(),
		excel.NewValidator(cfg.Upload.AllowedMIMETypes),
		policy,
	)

	handler := api.NewHandler(
		files,
		service.NewAdminService(settingsRepo, userRepo, policy),
		service.NewAccountService(userRepo, tokens),
		cfg,
	).WithHealthCheck("database", database.PingContext)

	// Orphaned blobs are handed to the cleanup worker when Redis is enabled
	if cfg.Redis.Enabled {
		redisClient, err := queue.NewRedisClient(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		files.WithCleanup(queue.NewProducer(redisClient, cfg))
		handler.WithHealthCheck("redis", redisClient.Ping)
	}

	// Setup Gin router
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Upload.MultipartMemory
	router.Use(api.RecoveryMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.CORSMiddleware())
	router.Use(api.SecurityHeaders())

	// Setup routes
	api.SetupRoutes(router, handler, tokens, policy)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
