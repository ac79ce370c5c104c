// Package registry owns the authoritative mapping from short codes to URLs.
//
// Uniqueness is enforced by the storage UNIQUE index alone: an insert that
// collides is either retried with a fresh generated code or reported as a
// conflict for a requested code. There is no check-then-insert window.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"url-shortener/internal/apperrs"
	"url-shortener/internal/cache"
	"url-shortener/internal/db"
)

// DefaultValidity applies when Create is given a non-positive validity.
const DefaultValidity = 30 * time.Minute

// DefaultMaxAttempts bounds generated-code allocation.
const DefaultMaxAttempts = 10

var errCollision = errors.New("generated short code already taken")

// CodeGenerator produces candidate short codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// Registry creates and resolves short URL entries.
type Registry struct {
	conn        *gorm.DB
	gen         CodeGenerator
	cache       cache.Cache
	log         *zap.Logger
	now         func() time.Time
	maxAttempts int
}

// Option configures a Registry.
type Option func(*Registry)

// WithCache puts a read-through cache in front of lookups.
func WithCache(c cache.Cache) Option {
	return func(r *Registry) { r.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithMaxAttempts sets how many generated codes Create tries before giving up.
func WithMaxAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func New(conn *gorm.DB, gen CodeGenerator, opts ...Option) *Registry {
	r := &Registry{
		conn:        conn,
		gen:         gen,
		log:         zap.NewNop(),
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores a new entry for originalURL valid for validity. A non-empty
// requestedCode is used verbatim and fails with apperrs.ErrConflict when
// taken; otherwise codes are generated until one inserts cleanly.
func (r *Registry) Create(ctx context.Context, originalURL string, validity time.Duration, requestedCode string) (*db.ShortURL, error) {
	const op = "registry.Create"

	if validity <= 0 {
		validity = DefaultValidity
	}

	if requestedCode != "" {
		if err := ctx.Err(); err != nil {
			return nil, apperrs.Storage(op, err)
		}
		entry, err := r.insert(originalURL, requestedCode, validity)
		if db.IsUniqueViolation(err) {
			r.log.Info("custom short code already in use", zap.String("short_code", requestedCode))
			return nil, apperrs.Wrap(apperrs.ErrConflict, op, err)
		}
		if err != nil {
			r.log.Error("failed to create short URL",
				zap.String("short_code", requestedCode), zap.String("url", originalURL), zap.Error(err))
			return nil, apperrs.Storage(op, err)
		}
		r.remember(ctx, entry)
		return entry, nil
	}

	var entry *db.ShortURL
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(r.maxAttempts-1), retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		code, err := r.gen.Generate()
		if err != nil {
			return apperrs.Wrap(apperrs.ErrCodeGeneration, op, err)
		}

		created, err := r.insert(originalURL, code, validity)
		if db.IsUniqueViolation(err) {
			r.log.Debug("short code collision, retrying", zap.String("short_code", code), zap.Int("attempt", attempt))
			return retry.RetryableError(errCollision)
		}
		if err != nil {
			return apperrs.Storage(op, err)
		}
		entry = created
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errCollision):
		r.log.Error("short code allocation exhausted", zap.String("url", originalURL), zap.Int("attempts", attempt))
		return nil, apperrs.Wrap(apperrs.ErrAllocationExhausted, op, err)
	default:
		r.log.Error("failed to create short URL", zap.String("url", originalURL), zap.Error(err))
		var appErr *apperrs.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrs.Storage(op, err)
	}

	r.remember(ctx, entry)
	return entry, nil
}

// Lookup returns the entry for shortCode or apperrs.ErrNotFound.
func (r *Registry) Lookup(ctx context.Context, shortCode string) (*db.ShortURL, error) {
	const op = "registry.Lookup"

	if r.cache != nil {
		entry, err := r.cache.Get(ctx, shortCode)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			r.log.Warn("cache read failed, falling back to database", zap.String("short_code", shortCode), zap.Error(err))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrs.Storage(op, err)
	}

	var entry db.ShortURL
	err := r.conn.Where("short_code = ?", shortCode).First(&entry).Error
	if db.IsNotFound(err) {
		return nil, apperrs.Wrap(apperrs.ErrNotFound, op, nil)
	}
	if err != nil {
		r.log.Error("failed to look up short URL", zap.String("short_code", shortCode), zap.Error(err))
		return nil, apperrs.Storage(op, err)
	}

	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.ExpiresAt = entry.ExpiresAt.UTC()

	r.remember(ctx, &entry)
	return &entry, nil
}

func (r *Registry) insert(originalURL, code string, validity time.Duration) (*db.ShortURL, error) {
	created := r.now().UTC().Truncate(time.Microsecond)
	entry := &db.ShortURL{
		OriginalURL: originalURL,
		ShortCode:   code,
		CreatedAt:   created,
		ExpiresAt:   created.Add(validity),
	}
	if err := r.conn.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *Registry) remember(ctx context.Context, entry *db.ShortURL) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, entry); err != nil {
		r.log.Warn("cache write failed", zap.String("short_code", entry.ShortCode), zap.Error(err))
	}
}
