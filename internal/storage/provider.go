package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// ErrNotAllowed is returned for source paths outside the allowed patterns
var ErrNotAllowed = errors.New("source path not allowed")

// ObjectStore is the object storage the provider reads and writes
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (*Object, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Provider resolves request paths to source images and stores rendered
// variants next to them under a separate prefix.
type Provider struct {
	store        ObjectStore
	sourcePrefix string
	cachePrefix  string
	allowed      []glob.Glob
}

// NewProvider creates a provider. Patterns use '/' as separator: '*' matches
// within one path segment and '**' across segments.
func NewProvider(store ObjectStore, sourcePrefix, cachePrefix string, patterns []string) (*Provider, error) {
	p := &Provider{store: store, sourcePrefix: sourcePrefix, cachePrefix: cachePrefix}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("failed to compile source pattern %q: %w", pattern, err)
		}
		p.allowed = append(p.allowed, g)
	}
	return p, nil
}

// Clean normalizes a request path into a relative object path
func Clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// Allowed reports whether a cleaned path matches one of the allowed patterns
func (p *Provider) Allowed(name string) bool {
	if name == "" {
		return false
	}
	for _, g := range p.allowed {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// SourceKey returns the object key of a source image
func (p *Provider) SourceKey(name string) string {
	return p.sourcePrefix + Clean(name)
}

// VariantKey returns the object key of a rendered variant
func (p *Provider) VariantKey(cacheKey string) string {
	if len(cacheKey) > 2 {
		// fan out so no single prefix collects every variant
		return p.cachePrefix + cacheKey[:2] + "/" + cacheKey
	}
	return p.cachePrefix + cacheKey
}

// Source opens the source image for a request path
func (p *Provider) Source(ctx context.Context, name string) (*Object, error) {
	name = Clean(name)
	if !p.Allowed(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotAllowed, name)
	}
	return p.store.Download(ctx, p.SourceKey(name))
}

// SourceInfo returns the metadata of the source image for a request path.
// Its ETag changes whenever the source is replaced.
func (p *Provider) SourceInfo(ctx context.Context, name string) (*ObjectInfo, error) {
	name = Clean(name)
	if !p.Allowed(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotAllowed, name)
	}
	return p.store.Stat(ctx, p.SourceKey(name))
}

// Variant opens a previously rendered variant
func (p *Provider) Variant(ctx context.Context, cacheKey string) (*Object, error) {
	return p.store.Download(ctx, p.VariantKey(cacheKey))
}

// PutVariant stores a rendered variant and returns its object key
func (p *Provider) PutVariant(ctx context.Context, cacheKey string, data []byte, contentType string) (string, error) {
	key := p.VariantKey(cacheKey)
	if err := p.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return key, nil
}

// DeleteObject removes a stored object by key
func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	return p.store.Delete(ctx, key)
}
