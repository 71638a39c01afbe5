// Package statscache caches the /stats aggregates in Redis. The queries
// behind /stats scan both tables; dashboards poll the endpoint often
// enough that a short TTL cache pays for itself.
package statscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/contact-webhook/internal/pkg/logger"
	"github.com/ignite/contact-webhook/internal/service/contact"
)

const statsKey = "contact-webhook:stats"

// Cache is a TTL cache for the stats projection. Redis being down is never
// an error surfaced to the caller; the endpoint just recomputes.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a stats cache with the given TTL. TTL defaults to 60s.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached stats, or (nil, false) on miss or Redis error.
func (c *Cache) Get(ctx context.Context) (*contact.Stats, bool) {
	data, err := c.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Warn("stats cache read failed", "error", err)
		return nil, false
	}
	var s contact.Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Set stores the stats snapshot for the configured TTL.
func (c *Cache) Set(ctx context.Context, s *contact.Stats) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey, data, c.ttl).Err(); err != nil {
		logger.Warn("stats cache write failed", "error", err)
	}
}

// Invalidate drops the cached snapshot. Called after /clear.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		logger.Warn("stats cache invalidate failed", "error", err)
	}
}
