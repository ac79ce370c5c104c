package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"url-shortener/internal/db"
)

const keyPrefix = "shorturl:"

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redisURL and verifies the connection. redisURL is a
// redis:// URL or a bare host:port.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, shortCode string) (*db.ShortURL, error) {
	data, err := r.client.Get(ctx, keyPrefix+shortCode).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var entry db.ShortURL
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cached entry %s: %w", shortCode, err)
	}
	return &entry, nil
}

func (r *Redis) Set(ctx context.Context, entry *db.ShortURL) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", entry.ShortCode, err)
	}
	return r.client.Set(ctx, keyPrefix+entry.ShortCode, data, r.ttl).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
