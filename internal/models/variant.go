package models

import (
	"time"

	"github.com/google/uuid"
)

// Variant is a rendered image stored in the object store and indexed for expiry
type Variant struct {
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
	CacheKey    string    `json:"cache_key" db:"cache_key"`
	SourceKey   string    `json:"source_key" db:"source_key"`
	ObjectKey   string    `json:"object_key" db:"object_key"`
	Commands    string    `json:"commands" db:"commands"`
	ContentType string    `json:"content_type" db:"content_type"`
	ID          uuid.UUID `json:"id" db:"id"`
	Size        int64     `json:"size" db:"size"`
	Width       int       `json:"width" db:"width"`
	Height      int       `json:"height" db:"height"`
}

// NewVariant creates a variant record that expires after maxAge
func NewVariant(cacheKey, sourceKey, objectKey, commands, contentType string, maxAge time.Duration) *Variant {
	now := time.Now().UTC()
	return &Variant{
		ID:          uuid.New(),
		CacheKey:    cacheKey,
		SourceKey:   sourceKey,
		ObjectKey:   objectKey,
		Commands:    commands,
		ContentType: contentType,
		CreatedAt:   now,
		ExpiresAt:   now.Add(maxAge),
	}
}

// Expired reports whether the variant is past its expiry time
func (v *Variant) Expired(now time.Time) bool {
	return !v.ExpiresAt.After(now)
}
