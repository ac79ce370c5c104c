// Package cache keeps short URL entries close to the redirect path. Entries
// are immutable, so a cached copy never goes stale; only its TTL bounds it.
package cache

import (
	"context"
	"errors"

	"url-shortener/internal/db"
)

// ErrMiss is returned by Get when the code is not cached.
var ErrMiss = errors.New("cache miss")

// Cache stores short URL entries by short code.
type Cache interface {
	Get(ctx context.Context, shortCode string) (*db.ShortURL, error)
	Set(ctx context.Context, entry *db.ShortURL) error
	Close() error
}
