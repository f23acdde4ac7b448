package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/timkrebs/imageweb/internal/cache"
	"github.com/timkrebs/imageweb/internal/commands"
	"github.com/timkrebs/imageweb/internal/database"
	"github.com/timkrebs/imageweb/internal/metrics"
	"github.com/timkrebs/imageweb/internal/models"
	"github.com/timkrebs/imageweb/internal/processor"
	"github.com/timkrebs/imageweb/internal/resize"
	"github.com/timkrebs/imageweb/internal/storage"
)

// ImageStore provides source images and persists rendered variants
type ImageStore interface {
	Allowed(name string) bool
	SourceKey(name string) string
	SourceInfo(ctx context.Context, name string) (*storage.ObjectInfo, error)
	Source(ctx context.Context, name string) (*storage.Object, error)
	Variant(ctx context.Context, cacheKey string) (*storage.Object, error)
	PutVariant(ctx context.Context, cacheKey string, data []byte, contentType string) (string, error)
}

// VariantCache is the hot tier in front of the image store
type VariantCache interface {
	Get(ctx context.Context, key string) (*cache.Entry, error)
	Set(ctx context.Context, key string, entry *cache.Entry) error
}

// VariantIndex records rendered variants so they can be expired
type VariantIndex interface {
	Upsert(ctx context.Context, v *models.Variant) error
	GetByCacheKey(ctx context.Context, cacheKey string) (*models.Variant, error)
}

// HealthChecker is a dependency reported by the health endpoint
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options holds the image endpoint settings
type Options struct {
	// Culture used when a request carries no usable Accept-Language header
	DefaultCulture commands.Culture
	// MaxAge is sent as Cache-Control max-age and bounds how long rendered
	// variants are kept. Zero disables the header.
	MaxAge time.Duration
	// MaxSourceSize rejects larger source objects; zero disables the check
	MaxSourceSize int64
}

// Handlers holds all HTTP handlers
type Handlers struct {
	processor *processor.Processor
	images    ImageStore
	cache     VariantCache
	index     VariantIndex
	checks    map[string]HealthChecker
	metrics   *metrics.CacheMetrics
	validate  *validator.Validate
	logger    *slog.Logger
	opts      Options
}

// NewHandlers creates a new handlers instance. cache and index may be nil.
func NewHandlers(
	proc *processor.Processor,
	images ImageStore,
	variants VariantCache,
	index VariantIndex,
	opts Options,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		processor: proc,
		images:    images,
		cache:     variants,
		index:     index,
		checks:    map[string]HealthChecker{},
		validate:  validator.New(),
		logger:    logger,
		opts:      opts,
	}
}

// SetMetrics injects metrics collectors into handlers
func (h *Handlers) SetMetrics(m *metrics.CacheMetrics) {
	h.metrics = m
}

// AddHealthCheck registers a dependency reported by Health
func (h *Handlers) AddHealthCheck(name string, c HealthChecker) {
	h.checks[name] = c
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// GetImage handles GET /images/*
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := storage.Clean(chi.URLParam(r, "*"))
	if !h.images.Allowed(name) {
		h.writeError(w, http.StatusNotFound, "image not found")
		return
	}

	cmds := h.processor.Sanitize(commands.ParseQuery(r.URL.RawQuery))
	if cmds.Len() == 0 {
		h.serveSource(w, r, name)
		return
	}

	// variants are keyed by the source version, so a replaced or deleted
	// source never answers from a stale tier
	info, err := h.sourceInfo(ctx, name)
	if err != nil {
		h.writeFailure(w, h.logger.With("path", name), err)
		return
	}

	culture := commands.CultureFromAcceptLanguage(r.Header.Get("Accept-Language"), h.opts.DefaultCulture)
	key := cache.Key(name, info.ETag, cmds, culture)
	logger := h.logger.With("path", name, "cache_key", key)

	etag := `"` + key + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if entry := h.cached(ctx, key, logger); entry != nil {
		h.writeImage(w, entry.ContentType, entry.Data, "redis")
		return
	}

	if entry := h.stored(ctx, key, logger); entry != nil {
		h.writeImage(w, entry.ContentType, entry.Data, "storage")
		h.setCache(ctx, key, entry, logger)
		return
	}

	result, err := h.render(ctx, name, cmds, culture)
	if err != nil {
		h.writeFailure(w, logger, err)
		return
	}
	h.writeImage(w, result.ContentType, result.Data, "miss")

	// the client already has its response; persisting must not depend on it staying connected
	h.persist(context.WithoutCancel(ctx), name, key, cmds, result, logger)
}

// cached looks the variant up in the hot tier
func (h *Handlers) cached(ctx context.Context, key string, logger *slog.Logger) *cache.Entry {
	if h.cache == nil {
		return nil
	}
	entry, err := h.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("failed to read cache", "error", err)
		}
		return nil
	}
	return entry
}

// stored looks the variant up in the object store
func (h *Handlers) stored(ctx context.Context, key string, logger *slog.Logger) *cache.Entry {
	obj, err := h.images.Variant(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("failed to read stored variant", "error", err)
		}
		h.countLookup(false)
		return nil
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		logger.Warn("failed to read stored variant", "error", err)
		h.countLookup(false)
		return nil
	}
	h.countLookup(true)
	return &cache.Entry{ContentType: obj.ContentType, Data: data}
}

func (h *Handlers) countLookup(hit bool) {
	if h.metrics == nil {
		return
	}
	if hit {
		h.metrics.Hits.WithLabelValues("storage").Inc()
	} else {
		h.metrics.Misses.WithLabelValues("storage").Inc()
	}
}

// render processes the source image with the sanitized commands
func (h *Handlers) render(ctx context.Context, name string, cmds *commands.Collection, culture commands.Culture) (*processor.ProcessResult, error) {
	src, err := h.openSource(ctx, name)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return h.processor.Process(src, cmds, culture)
}

func (h *Handlers) sourceInfo(ctx context.Context, name string) (*storage.ObjectInfo, error) {
	info, err := h.images.SourceInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	if h.opts.MaxSourceSize > 0 && info.Size > h.opts.MaxSourceSize {
		return nil, fmt.Errorf("%w: source is %d bytes", resize.ErrImageTooLarge, info.Size)
	}
	return info, nil
}

func (h *Handlers) openSource(ctx context.Context, name string) (*storage.Object, error) {
	src, err := h.images.Source(ctx, name)
	if err != nil {
		return nil, err
	}
	if h.opts.MaxSourceSize > 0 && src.Size > h.opts.MaxSourceSize {
		src.Close()
		return nil, fmt.Errorf("%w: source is %d bytes", resize.ErrImageTooLarge, src.Size)
	}
	return src, nil
}

// persist stores a rendered variant in every tier. Failures only cost a
// re-render later, so they are logged and not returned.
func (h *Handlers) persist(ctx context.Context, name, key string, cmds *commands.Collection, result *processor.ProcessResult, logger *slog.Logger) {
	entry := &cache.Entry{ContentType: result.ContentType, Data: result.Data}
	h.setCache(ctx, key, entry, logger)

	objectKey, err := h.images.PutVariant(ctx, key, result.Data, result.ContentType)
	if err != nil {
		logger.Error("failed to store variant", "error", err)
		return
	}

	if h.index == nil {
		return
	}
	v := models.NewVariant(key, h.images.SourceKey(name), objectKey, cmds.String(), result.ContentType, h.opts.MaxAge)
	v.Width = result.Width
	v.Height = result.Height
	v.Size = int64(len(result.Data))
	if err := h.index.Upsert(ctx, v); err != nil {
		logger.Error("failed to index variant", "error", err)
	}
}

func (h *Handlers) setCache(ctx context.Context, key string, entry *cache.Entry, logger *slog.Logger) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, key, entry); err != nil {
		logger.Warn("failed to write cache", "error", err)
	}
}

// serveSource streams the unmodified source image
func (h *Handlers) serveSource(w http.ResponseWriter, r *http.Request, name string) {
	logger := h.logger.With("path", name)

	src, err := h.openSource(r.Context(), name)
	if err != nil {
		h.writeFailure(w, logger, err)
		return
	}
	defer src.Close()

	if src.ETag != "" {
		w.Header().Set("ETag", `"`+src.ETag+`"`)
	}
	w.Header().Set("Content-Type", src.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(src.Size, 10))
	h.setCacheControl(w)
	w.Header().Set("X-Cache", "source")

	if _, err := io.Copy(w, src); err != nil {
		logger.Error("failed to stream image", "error", err)
	}
}

func (h *Handlers) writeImage(w http.ResponseWriter, contentType string, data []byte, tier string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	h.setCacheControl(w)
	w.Header().Set("X-Cache", tier)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write image", "error", err)
	}
}

func (h *Handlers) setCacheControl(w http.ResponseWriter) {
	if h.opts.MaxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int64(h.opts.MaxAge.Seconds())))
	}
}

// writeFailure maps a render error to a status code
func (h *Handlers) writeFailure(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, message := failureStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("failed to render image", "error", err)
	} else {
		logger.Debug("image request rejected", "status", status, "error", err)
	}
	h.writeError(w, status, message)
}

func failureStatus(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrNotAllowed):
		return http.StatusNotFound, "image not found"
	case errors.Is(err, resize.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "image too large"
	case errors.Is(err, processor.ErrDecode):
		return http.StatusUnsupportedMediaType, "unsupported image format"
	case errors.Is(err, resize.ErrInvalidSize):
		return http.StatusBadRequest, "invalid image size"
	default:
		return http.StatusInternalServerError, "failed to process image"
	}
}

// GetVariant handles GET /api/v1/variants/{key}
func (h *Handlers) GetVariant(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.validate.Var(key, "len=64,hexadecimal"); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid cache key")
		return
	}
	if h.index == nil {
		h.writeError(w, http.StatusNotFound, "variant not found")
		return
	}

	v, err := h.index.GetByCacheKey(r.Context(), key)
	if errors.Is(err, database.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "variant not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get variant", "cache_key", key, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get variant")
		return
	}

	h.writeJSON(w, http.StatusOK, v)
}

// ListCommands handles GET /api/v1/commands
func (h *Handlers) ListCommands(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"commands": h.processor.Commands(),
		"enums": map[string][]string{
			processor.ResizeModes.TypeName(): processor.ResizeModes.Names(),
			processor.Samplers.TypeName():    processor.Samplers.Names(),
			processor.Anchors.TypeName():     processor.Anchors.Names(),
			processor.Formats.TypeName():     processor.Formats.Names(),
		},
	})
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]interface{})

	for name, c := range h.checks {
		if err := c.Health(ctx); err != nil {
			status = "unhealthy"
			checks[name] = map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			continue
		}
		checks[name] = map[string]string{
			"status": "healthy",
		}
	}

	response := map[string]interface{}{
		"status": status,
		"checks": checks,
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, statusCode, response)
}
