package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/timkrebs/imageweb/internal/api"
	"github.com/timkrebs/imageweb/internal/cache"
	"github.com/timkrebs/imageweb/internal/commands"
	"github.com/timkrebs/imageweb/internal/config"
	"github.com/timkrebs/imageweb/internal/database"
	"github.com/timkrebs/imageweb/internal/metrics"
	"github.com/timkrebs/imageweb/internal/processor"
	"github.com/timkrebs/imageweb/internal/resize"
	"github.com/timkrebs/imageweb/internal/storage"
)

const namespace = "imageweb"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	db, err := database.New(cfg.DatabaseURL, cfg.DatabaseMaxConn)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()
	logger.Info("connected to database")

	variantRepo := database.NewVariantRepository(db)
	if err := variantRepo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis", "error", err)
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	cancel()
	logger.Info("connected to redis")

	variantCache := cache.New(redisClient, cfg.CacheTTL, cfg.CacheMaxItemSize)

	// Connect to MinIO
	storageClient, err := storage.New(storage.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
	})
	if err != nil {
		logger.Error("failed to create storage client", "error", err)
		os.Exit(1)
	}

	bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := storageClient.EnsureBucket(bucketCtx); err != nil {
		cancel()
		logger.Error("failed to ensure bucket", "error", err)
		os.Exit(1)
	}
	cancel()
	logger.Info("connected to minio", "bucket", cfg.MinIOBucket)

	provider, err := storage.NewProvider(storageClient, cfg.MinIOSourcePrefix, cfg.MinIOCachePrefix, cfg.AllowedSources)
	if err != nil {
		logger.Error("failed to create image provider", "error", err)
		os.Exit(1)
	}

	// Image pipeline
	resizer := resize.NewResizer(resize.Limits{
		MaxWidth:  cfg.MaxWidth,
		MaxHeight: cfg.MaxHeight,
		MaxPixels: cfg.MaxPixels,
	})
	parser := commands.NewParser(commands.DefaultRegistry(), logger)
	imageProcessor := processor.New(parser, logger, processor.DefaultProcessors(resizer)...)
	imageProcessor.SetSourceLimits(resize.Limits{MaxPixels: cfg.MaxSourcePixels})

	// Initialize metrics
	httpMetrics := metrics.NewHTTPMetrics(namespace)
	cacheMetrics := metrics.NewCacheMetrics(namespace)
	imageProcessor.SetMetrics(metrics.NewProcessingMetrics(namespace))
	storageClient.SetMetrics(metrics.NewStorageMetrics(namespace))
	db.SetMetrics(ctx, metrics.NewDatabaseMetrics(namespace))
	variantCache.SetMetrics(cacheMetrics)

	// Create handlers
	handlers := api.NewHandlers(imageProcessor, provider, variantCache, variantRepo, api.Options{
		DefaultCulture: commands.ParseCulture(cfg.DefaultCulture),
		MaxAge:         cfg.CacheMaxAge,
		MaxSourceSize:  cfg.MaxSourceSize,
	}, logger)
	handlers.SetMetrics(cacheMetrics)
	handlers.AddHealthCheck("database", db)
	handlers.AddHealthCheck("storage", storageClient)
	handlers.AddHealthCheck("redis", variantCache)

	// Create router
	router := api.NewRouter(handlers, httpMetrics, cfg.WriteTimeout, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting image server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
