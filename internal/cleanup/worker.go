package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/timkrebs/imageweb/internal/metrics"
	"github.com/timkrebs/imageweb/internal/models"
	"github.com/timkrebs/imageweb/internal/storage"
)

// VariantIndex lists and forgets indexed variants
type VariantIndex interface {
	GetExpired(ctx context.Context, limit int) ([]*models.Variant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ObjectDeleter removes stored variant objects
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// CacheDeleter removes hot cache entries
type CacheDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Worker handles periodic removal of expired variants from the index, the
// object store and the hot cache
type Worker struct {
	index     VariantIndex
	objects   ObjectDeleter
	cache     CacheDeleter
	metrics   *metrics.CacheMetrics
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// Config holds cleanup worker configuration
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// NewWorker creates a new cleanup worker. cache may be nil when no hot
// cache is configured.
func NewWorker(index VariantIndex, objects ObjectDeleter, cache CacheDeleter, cfg Config, logger *slog.Logger) *Worker {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}

	return &Worker{
		index:     index,
		objects:   objects,
		cache:     cache,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
	}
}

// SetMetrics injects metrics collectors into the worker
func (w *Worker) SetMetrics(m *metrics.CacheMetrics) {
	w.metrics = m
}

// Start runs a cleanup cycle immediately and then on every tick until ctx
// is canceled
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("cleanup worker started", "interval", w.interval, "batch_size", w.batchSize)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Run(ctx); err != nil {
			w.logger.Error("cleanup failed", "error", err)
		}

		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Run drains expired variants batch by batch and returns how many were
// removed. A batch in which nothing could be removed ends the cycle so a
// persistently failing variant cannot spin the loop.
func (w *Worker) Run(ctx context.Context) (int, error) {
	startTime := time.Now()
	total := 0

	for ctx.Err() == nil {
		cleaned, found, err := w.cleanup(ctx)
		total += cleaned
		if err != nil {
			return total, err
		}
		if found < w.batchSize || cleaned == 0 {
			break
		}
	}

	w.logger.Info("cleanup cycle completed",
		"duration_ms", time.Since(startTime).Milliseconds(),
		"cleaned", total,
	)
	return total, nil
}

// cleanup processes a single batch of expired variants
func (w *Worker) cleanup(ctx context.Context) (cleaned, found int, err error) {
	variants, err := w.index.GetExpired(ctx, w.batchSize)
	if err != nil {
		return 0, 0, err
	}

	if len(variants) == 0 {
		w.logger.Debug("no variants to cleanup")
		return 0, 0, nil
	}

	w.logger.Info("found variants to cleanup", "count", len(variants))

	errorCount := 0
	for _, v := range variants {
		if err := w.cleanupVariant(ctx, v); err != nil {
			w.logger.Error("failed to cleanup variant",
				"variant_id", v.ID,
				"error", err,
			)
			errorCount++
			continue
		}
		cleaned++
	}

	if errorCount > 0 {
		w.logger.Warn("cleanup batch had errors", "errors", errorCount, "total", len(variants))
	}
	return cleaned, len(variants), nil
}

// cleanupVariant removes the object and cache entry before the index row,
// so a failed object delete leaves the row to be retried next cycle
func (w *Worker) cleanupVariant(ctx context.Context, v *models.Variant) error {
	logger := w.logger.With("variant_id", v.ID, "cache_key", v.CacheKey)

	if v.ObjectKey != "" {
		logger.Debug("deleting variant object", "key", v.ObjectKey)
		if err := w.objects.DeleteObject(ctx, v.ObjectKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}

	if w.cache != nil {
		if err := w.cache.Delete(ctx, v.CacheKey); err != nil {
			logger.Error("failed to delete cache entry", "error", err)
		}
	}

	if err := w.index.Delete(ctx, v.ID); err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.Evictions.Inc()
	}
	logger.Debug("variant cleaned up")
	return nil
}
