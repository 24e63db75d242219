package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	telemetry "gridwatch/internal/telemetry/domain"
)

const defaultCacheTTL = 5 * time.Minute

// NewClient connects a Redis client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("reading cache: redis addr required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// ReadingCache keeps the most recent reading per asset with a TTL so a
// batch pass can skip the Postgres latest-reading query for assets that
// reported recently.
type ReadingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// CacheOption configures the cache.
type CacheOption func(*ReadingCache)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *ReadingCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewReadingCache constructs a cache over an existing client.
func NewReadingCache(client *redis.Client, opts ...CacheOption) (*ReadingCache, error) {
	if client == nil {
		return nil, errors.New("reading cache: nil client")
	}
	cache := &ReadingCache{client: client, ttl: defaultCacheTTL}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

func cacheKey(assetID string) string {
	return fmt.Sprintf("gridwatch:reading:%s:latest", assetID)
}

// SetLatest stores the latest reading for an asset.
func (c *ReadingCache) SetLatest(ctx context.Context, reading *telemetry.Reading) error {
	if c == nil || c.client == nil {
		return errors.New("reading cache: nil client")
	}
	if reading == nil || reading.AssetID == "" {
		return errors.New("reading cache: invalid reading")
	}
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	return c.client.Set(ctx, cacheKey(reading.AssetID), payload, c.ttl).Err()
}

// Latest returns the cached reading for an asset, or nil on a miss.
func (c *ReadingCache) Latest(ctx context.Context, assetID string) (*telemetry.Reading, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("reading cache: nil client")
	}
	if assetID == "" {
		return nil, errors.New("reading cache: asset id required")
	}
	payload, err := c.client.Get(ctx, cacheKey(assetID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get reading failed: %w", err)
	}
	var reading telemetry.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return nil, err
	}
	return &reading, nil
}
