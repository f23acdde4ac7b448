package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timkrebs/imageweb/internal/models"
)

// ErrNotFound is returned when a variant is not indexed
var ErrNotFound = errors.New("variant not found")

const schema = `
CREATE TABLE IF NOT EXISTS variants (
	id           UUID PRIMARY KEY,
	cache_key    TEXT NOT NULL UNIQUE,
	source_key   TEXT NOT NULL,
	object_key   TEXT NOT NULL,
	commands     TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL,
	width        INTEGER NOT NULL DEFAULT 0,
	height       INTEGER NOT NULL DEFAULT 0,
	size         BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS variants_expires_at_idx ON variants (expires_at);
`

const variantColumns = `id, cache_key, source_key, object_key, commands, content_type,
	width, height, size, created_at, expires_at`

// VariantRepository handles variant database operations
type VariantRepository struct {
	db *DB
}

// NewVariantRepository creates a new variant repository
func NewVariantRepository(db *DB) *VariantRepository {
	return &VariantRepository{db: db}
}

// EnsureSchema creates the variants table if it doesn't exist
func (r *VariantRepository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create variants schema: %w", err)
	}
	return nil
}

// Upsert indexes a variant. Re-rendering the same cache key refreshes the
// object location and the expiry time.
func (r *VariantRepository) Upsert(ctx context.Context, v *models.Variant) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	defer func(start time.Time) { r.db.observe("upsert_variant", start, err) }(time.Now())

	query := `
		INSERT INTO variants (` + variantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (cache_key) DO UPDATE SET
			object_key = EXCLUDED.object_key,
			content_type = EXCLUDED.content_type,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			size = EXCLUDED.size,
			expires_at = EXCLUDED.expires_at
	`

	_, err = r.db.ExecContext(ctx, query,
		v.ID,
		v.CacheKey,
		v.SourceKey,
		v.ObjectKey,
		v.Commands,
		v.ContentType,
		v.Width,
		v.Height,
		v.Size,
		v.CreatedAt,
		v.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert variant: %w", err)
	}
	return nil
}

// GetByCacheKey retrieves a variant by its cache key
func (r *VariantRepository) GetByCacheKey(ctx context.Context, cacheKey string) (v *models.Variant, err error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	defer func(start time.Time) { r.db.observe("get_variant", start, err) }(time.Now())

	query := `SELECT ` + variantColumns + ` FROM variants WHERE cache_key = $1`

	v, err = scanVariant(r.db.QueryRowContext(ctx, query, cacheKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return v, nil
}

// GetExpired returns up to limit variants whose expiry time has passed,
// oldest first
func (r *VariantRepository) GetExpired(ctx context.Context, limit int) (variants []*models.Variant, err error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	defer func(start time.Time) { r.db.observe("get_expired_variants", start, err) }(time.Now())

	query := `
		SELECT ` + variantColumns + `
		FROM variants
		WHERE expires_at < NOW()
		ORDER BY expires_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variants: %w", err)
	}

	return variants, nil
}

// Delete permanently removes a variant from the index
func (r *VariantRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	defer func(start time.Time) { r.db.observe("delete_variant", start, err) }(time.Now())

	result, err := r.db.ExecContext(ctx, `DELETE FROM variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVariant(s scanner) (*models.Variant, error) {
	v := &models.Variant{}
	err := s.Scan(
		&v.ID,
		&v.CacheKey,
		&v.SourceKey,
		&v.ObjectKey,
		&v.Commands,
		&v.ContentType,
		&v.Width,
		&v.Height,
		&v.Size,
		&v.CreatedAt,
		&v.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}
