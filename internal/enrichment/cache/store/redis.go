package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"salgsmotor/internal/enrichment/cache"
)

const redisKeyPrefix = "salgsmotor:cache:"

// Redis stores entries as JSON strings under salgsmotor:cache:{orgnr}.
type Redis struct {
	client    *redis.Client
	retention time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithRetention expires keys after d. Zero keeps them forever.
func WithRetention(d time.Duration) RedisOption {
	return func(s *Redis) { s.retention = d }
}

// NewRedis creates the store. A retention shorter than the freshness window
// is rejected: stale entries must outlive freshness to back up failed fetches.
func NewRedis(client *redis.Client, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	s := &Redis{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.retention < 0 || (s.retention > 0 && s.retention <= cache.DefaultFreshness) {
		return nil, fmt.Errorf("retention %s must exceed the freshness window %s", s.retention, cache.DefaultFreshness)
	}
	return s, nil
}

func (s *Redis) Load(ctx context.Context, orgnr string) (*cache.Entry, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+orgnr).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache key: %w", err)
	}
	var e cache.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache key %s: %w", orgnr, err)
	}
	return &e, nil
}

func (s *Redis) Save(ctx context.Context, entry cache.Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+entry.OrgNumber, raw, s.retention).Err(); err != nil {
		return fmt.Errorf("set cache key: %w", err)
	}
	return nil
}
