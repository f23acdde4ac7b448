package api

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/timkrebs/imageweb/internal/cache"
	"github.com/timkrebs/imageweb/internal/commands"
	"github.com/timkrebs/imageweb/internal/database"
	"github.com/timkrebs/imageweb/internal/models"
	"github.com/timkrebs/imageweb/internal/processor"
	"github.com/timkrebs/imageweb/internal/resize"
	"github.com/timkrebs/imageweb/internal/storage"
)

// memoryStore is an in-memory storage.ObjectStore
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	reads   map[string]int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}, reads: map[string]int{}}
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (m *memoryStore) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryStore) Download(_ context.Context, key string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	m.reads[key]++
	return &storage.Object{ReadCloser: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data)), ContentType: m.types[key], ETag: etagOf(data)}, nil
}

func (m *memoryStore) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return &storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: m.types[key], ETag: etagOf(data)}, nil
}

func (m *memoryStore) readCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[key]
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
}

func (c *memoryCache) Get(_ context.Context, key string) (*cache.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return e, nil
}

func (c *memoryCache) Set(_ context.Context, key string, e *cache.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	return nil
}

type memoryIndex struct {
	mu       sync.Mutex
	variants []*models.Variant
}

func (i *memoryIndex) Upsert(_ context.Context, v *models.Variant) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.variants = append(i.variants, v)
	return nil
}

func (i *memoryIndex) GetByCacheKey(_ context.Context, key string) (*models.Variant, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, v := range i.variants {
		if v.CacheKey == key {
			return v, nil
		}
	}
	return nil, database.ErrNotFound
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Health(ctx context.Context) error { return f(ctx) }

type testServer struct {
	router http.Handler
	store  *memoryStore
	cache  *memoryCache
	index  *memoryIndex
	h      *Handlers
}

func newTestServer(t *testing.T, opts Options, withCache bool) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := newMemoryStore()
	provider, err := storage.NewProvider(store, "originals/", "cache/", []string{"photos/**"})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	ts := &testServer{store: store, index: &memoryIndex{}}
	var variants VariantCache
	if withCache {
		ts.cache = &memoryCache{entries: map[string]*cache.Entry{}}
		variants = ts.cache
	}

	ts.h = NewHandlers(processor.New(nil, logger), provider, variants, ts.index, opts, logger)
	ts.router = NewRouter(ts.h, nil, 0, logger)
	return ts
}

func (ts *testServer) putSource(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := ts.store.Upload(context.Background(), "originals/"+name, bytes.NewReader(data), int64(len(data)), "image/png"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
}

func (ts *testServer) get(target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) image.Point {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode response image: %v", err)
	}
	return image.Pt(cfg.Width, cfg.Height)
}

func TestGetImage_Source(t *testing.T) {
	ts := newTestServer(t, Options{MaxAge: time.Hour}, true)
	src := encodePNG(t, 8, 4)
	ts.putSource(t, "photos/a.png", src)

	tests := []struct {
		name   string
		target string
	}{
		{"no query", "/images/photos/a.png"},
		{"unknown commands only", "/images/photos/a.png?foo=bar&debug=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.get(tt.target, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
			}
			if !bytes.Equal(rec.Body.Bytes(), src) {
				t.Error("body should be the unmodified source")
			}
			if got := rec.Header().Get("X-Cache"); got != "source" {
				t.Errorf("X-Cache = %q, want source", got)
			}
			if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3600" {
				t.Errorf("Cache-Control = %q, want public, max-age=3600", got)
			}
		})
	}

	if len(ts.index.variants) != 0 {
		t.Errorf("indexed %d variants, want 0", len(ts.index.variants))
	}
}

func TestGetImage_RenderAndCache(t *testing.T) {
	ts := newTestServer(t, Options{MaxAge: time.Hour}, true)
	src := encodePNG(t, 8, 4)
	ts.putSource(t, "photos/a.png", src)

	rec := ts.get("/images/photos/a.png?width=4&height=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := rec.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("X-Cache = %q, want miss", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got)
	}
	if got := decodeSize(t, rec.Body.Bytes()); got != image.Pt(4, 2) {
		t.Errorf("size = %v, want (4,2)", got)
	}

	key := cache.Key("photos/a.png", etagOf(src), commands.ParseQuery("width=4&height=2"), commands.InvariantCulture)
	if _, ok := ts.cache.entries[key]; !ok {
		t.Error("rendered variant should be cached")
	}
	if _, ok := ts.store.objects["cache/"+key[:2]+"/"+key]; !ok {
		t.Error("rendered variant should be stored")
	}
	if len(ts.index.variants) != 1 {
		t.Fatalf("indexed %d variants, want 1", len(ts.index.variants))
	}
	v := ts.index.variants[0]
	if v.Width != 4 || v.Height != 2 || v.SourceKey != "originals/photos/a.png" {
		t.Errorf("indexed variant = %+v", v)
	}
	if got := v.ExpiresAt.Sub(v.CreatedAt); got != time.Hour {
		t.Errorf("variant lifetime = %v, want 1h", got)
	}

	// reordered, differently cased parameters hit the same entry
	rec = ts.get("/images/photos/a.png?HEIGHT=2&width=4", nil)
	if got := rec.Header().Get("X-Cache"); got != "redis" {
		t.Errorf("second request X-Cache = %q, want redis", got)
	}
}

func TestGetImage_StorageTier(t *testing.T) {
	ts := newTestServer(t, Options{}, false)
	ts.putSource(t, "photos/a.png", encodePNG(t, 8, 4))

	first := ts.get("/images/photos/a.png?width=2", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", first.Code, http.StatusOK)
	}

	rec := ts.get("/images/photos/a.png?width=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("X-Cache"); got != "storage" {
		t.Errorf("X-Cache = %q, want storage", got)
	}
	if got := ts.store.readCount("originals/photos/a.png"); got != 1 {
		t.Errorf("source downloaded %d times, want 1", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), first.Body.Bytes()) {
		t.Error("stored variant differs from the rendered one")
	}
	if got := rec.Header().Get("Cache-Control"); got != "" {
		t.Errorf("Cache-Control = %q, want none when MaxAge is zero", got)
	}
}

func TestGetImage_CultureChangesKey(t *testing.T) {
	ts := newTestServer(t, Options{}, true)
	ts.putSource(t, "photos/a.png", encodePNG(t, 8, 8))

	en := ts.get("/images/photos/a.png?width=4&xy=0.5,0.5", http.Header{"Accept-Language": {"en-US"}})
	de := ts.get("/images/photos/a.png?width=4&xy=0.5,0.5", http.Header{"Accept-Language": {"de-DE"}})

	if en.Header().Get("ETag") == de.Header().Get("ETag") {
		t.Error("requests parsed in different cultures should not share a cache key")
	}
	if len(ts.cache.entries) != 2 {
		t.Errorf("cached %d entries, want 2", len(ts.cache.entries))
	}
}

func TestGetImage_NotModified(t *testing.T) {
	ts := newTestServer(t, Options{}, true)
	ts.putSource(t, "photos/a.png", encodePNG(t, 8, 4))

	first := ts.get("/images/photos/a.png?width=4", nil)
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("ETag should be set")
	}

	rec := ts.get("/images/photos/a.png?width=4", http.Header{"If-None-Match": {etag}})
	if rec.Code != http.StatusNotModified {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusNotModified)
	}
}

func TestGetImage_SourceReplaced(t *testing.T) {
	ts := newTestServer(t, Options{}, true)
	ts.putSource(t, "photos/a.png", encodePNG(t, 8, 4))

	first := ts.get("/images/photos/a.png?width=4", nil)
	if got := decodeSize(t, first.Body.Bytes()); got != image.Pt(4, 2) {
		t.Fatalf("size = %v, want (4,2)", got)
	}

	ts.putSource(t, "photos/a.png", encodePNG(t, 8, 8))

	rec := ts.get("/images/photos/a.png?width=4", http.Header{"If-None-Match": {first.Header().Get("ETag")}})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("X-Cache = %q, want miss", got)
	}
	if rec.Header().Get("ETag") == first.Header().Get("ETag") {
		t.Error("ETag should change with the source")
	}
	if got := decodeSize(t, rec.Body.Bytes()); got != image.Pt(4, 4) {
		t.Errorf("size = %v, want (4,4)", got)
	}
}

func TestGetImage_SourceDeleted(t *testing.T) {
	ts := newTestServer(t, Options{}, true)
	ts.putSource(t, "photos/a.png", encodePNG(t, 8, 4))

	first := ts.get("/images/photos/a.png?width=4", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", first.Code, http.StatusOK)
	}
	if err := ts.store.Delete(context.Background(), "originals/photos/a.png"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	tests := []struct {
		name   string
		header http.Header
	}{
		{"cached variant", nil},
		{"conditional", http.Header{"If-None-Match": {first.Header().Get("ETag")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.get("/images/photos/a.png?width=4", tt.header)
			if rec.Code != http.StatusNotFound {
				t.Errorf("Status = %d, want %d", rec.Code, http.StatusNotFound)
			}
		})
	}
}

func TestGetImage_Errors(t *testing.T) {
	ts := newTestServer(t, Options{MaxSourceSize: 1 << 20}, true)
	ts.putSource(t, "photos/a.png", encodePNG(t, 8, 4))
	ts.putSource(t, "photos/broken.png", []byte("not an image"))
	ts.putSource(t, "photos/huge.png", make([]byte, 2<<20))
	ts.putSource(t, "private/a.png", encodePNG(t, 8, 4))

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing", "/images/photos/missing.png?width=4", http.StatusNotFound},
		{"missing source", "/images/photos/missing.png", http.StatusNotFound},
		{"not allowed", "/images/private/a.png?width=4", http.StatusNotFound},
		{"escape attempt", "/images/photos/../private/a.png", http.StatusNotFound},
		{"corrupt", "/images/photos/broken.png?width=4", http.StatusUnsupportedMediaType},
		{"source too large", "/images/photos/huge.png?width=4", http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.get(tt.target, nil)
			if rec.Code != tt.want {
				t.Errorf("Status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestGetVariant(t *testing.T) {
	ts := newTestServer(t, Options{MaxAge: time.Hour}, false)
	src := encodePNG(t, 8, 4)
	ts.putSource(t, "photos/a.png", src)
	if rec := ts.get("/images/photos/a.png?width=4", nil); rec.Code != http.StatusOK {
		t.Fatalf("render Status = %d, want %d", rec.Code, http.StatusOK)
	}
	key := cache.Key("photos/a.png", etagOf(src), commands.ParseQuery("width=4"), commands.InvariantCulture)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"indexed", key, http.StatusOK},
		{"unknown", strings.Repeat("0", 64), http.StatusNotFound},
		{"malformed", "not-a-key", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.get("/api/v1/variants/"+tt.key, nil)
			if rec.Code != tt.want {
				t.Fatalf("Status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			var v models.Variant
			if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if v.CacheKey != key || v.Width != 4 || v.Height != 2 {
				t.Errorf("variant = %+v", v)
			}
		})
	}
}

func TestFailureStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("wrapped: %w", storage.ErrNotFound), http.StatusNotFound},
		{"not allowed", storage.ErrNotAllowed, http.StatusNotFound},
		{"too large", fmt.Errorf("failed to resize image: %w", resize.ErrImageTooLarge), http.StatusRequestEntityTooLarge},
		{"decode", processor.ErrDecode, http.StatusUnsupportedMediaType},
		{"invalid size", resize.ErrInvalidSize, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := failureStatus(tt.err); got != tt.want {
				t.Errorf("failureStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestListCommands(t *testing.T) {
	ts := newTestServer(t, Options{}, false)

	rec := ts.get("/api/v1/commands", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Commands []string            `json:"commands"`
		Enums    map[string][]string `json:"enums"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	want := map[string]bool{"width": false, "height": false, "rmode": false, "format": false}
	for _, c := range body.Commands {
		if _, ok := want[c]; ok {
			want[c] = true
		}
	}
	for c, seen := range want {
		if !seen {
			t.Errorf("commands should include %q", c)
		}
	}
	if len(body.Enums["ResizeMode"]) != len(resize.Modes()) {
		t.Errorf("ResizeMode members = %v", body.Enums["ResizeMode"])
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"healthy", nil, http.StatusOK},
		{"unhealthy", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, Options{}, false)
			ts.h.AddHealthCheck("redis", checkerFunc(func(context.Context) error { return nil }))
			ts.h.AddHealthCheck("storage", checkerFunc(func(context.Context) error { return tt.err }))

			rec := ts.get("/api/v1/health", nil)
			if rec.Code != tt.want {
				t.Errorf("Status = %d, want %d", rec.Code, tt.want)
			}

			var body map[string]interface{}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if _, ok := body["checks"].(map[string]interface{})["storage"]; !ok {
				t.Error("checks should include storage")
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, Options{}, false)

	req := httptest.NewRequest(http.MethodOptions, "/images/photos/a.png", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
