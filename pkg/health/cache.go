package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss signals no cached latest report for the tenant.
var ErrCacheMiss = errors.New("health: latest report not cached")

// LatestCache stores the most recent report per tenant with a TTL, so
// dashboards and the read API can serve without recomputing.
type LatestCache interface {
	GetLatest(ctx context.Context, tenantID uuid.UUID) (*Report, error)
	SetLatest(ctx context.Context, tenantID uuid.UUID, report *Report, ttl time.Duration) error
}

// RedisCache implements LatestCache over Redis with JSON payloads.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache creates a Redis-backed latest-report cache.
// Panics on a nil client to fail fast during initialization.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	if client == nil {
		panic("health: redis client is required")
	}
	return &RedisCache{client: client}
}

func cacheKey(tenantID uuid.UUID) string {
	if tenantID == uuid.Nil {
		return "revenuekit:health:latest:platform"
	}
	return "revenuekit:health:latest:" + tenantID.String()
}

func (c *RedisCache) GetLatest(ctx context.Context, tenantID uuid.UUID) (*Report, error) {
	data, err := c.client.Get(ctx, cacheKey(tenantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("health: cache read: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		// A corrupt entry behaves like a miss so the caller recomputes.
		return nil, ErrCacheMiss
	}
	return &report, nil
}

func (c *RedisCache) SetLatest(ctx context.Context, tenantID uuid.UUID, report *Report, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("health: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(tenantID), data, ttl).Err(); err != nil {
		return fmt.Errorf("health: cache write: %w", err)
	}
	return nil
}
