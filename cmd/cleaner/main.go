package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/timkrebs/imageweb/internal/cache"
	"github.com/timkrebs/imageweb/internal/cleanup"
	"github.com/timkrebs/imageweb/internal/config"
	"github.com/timkrebs/imageweb/internal/database"
	"github.com/timkrebs/imageweb/internal/metrics"
	"github.com/timkrebs/imageweb/internal/storage"
)

const namespace = "imageweb_cleaner"

func main() {
	once := flag.Bool("once", false, "run a single cleanup cycle and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	cleanerID := fmt.Sprintf("cleaner-%s", uuid.New().String()[:8])
	logger := cfg.NewLogger(os.Stdout).With("cleaner_id", cleanerID)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Connect to database
	db, err := database.New(cfg.DatabaseURL, cfg.DatabaseMaxConn)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
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
	defer redisClient.Close()

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
	logger.Info("connected to minio", "bucket", cfg.MinIOBucket)

	provider, err := storage.NewProvider(storageClient, cfg.MinIOSourcePrefix, cfg.MinIOCachePrefix, cfg.AllowedSources)
	if err != nil {
		logger.Error("failed to create image provider", "error", err)
		os.Exit(1)
	}

	cacheMetrics := metrics.NewCacheMetrics(namespace)
	storageClient.SetMetrics(metrics.NewStorageMetrics(namespace))
	db.SetMetrics(ctx, metrics.NewDatabaseMetrics(namespace))

	worker := cleanup.NewWorker(variantRepo, provider, cache.New(redisClient, cfg.CacheTTL, cfg.CacheMaxItemSize), cleanup.Config{
		Interval:  cfg.CleanupInterval,
		BatchSize: cfg.CleanupBatchSize,
	}, logger)
	worker.SetMetrics(cacheMetrics)

	if *once {
		cleaned, err := worker.Run(ctx)
		if err != nil {
			logger.Error("cleanup failed", "error", err, "cleaned", cleaned)
			os.Exit(1)
		}
		return
	}

	// Start health and metrics server
	server := newHealthServer(cfg.MetricsPort)
	go func() {
		logger.Info("starting health server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", "error", err)
		}
	}()

	worker.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server forced to shutdown", "error", err)
	}

	logger.Info("cleaner stopped")
}

func newHealthServer(port int) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
