package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Bind it to a specific view type T; pass ttl 0 for keys that should not
// expire. Cache failures are logged, never surfaced: the database stays the
// source of truth and a miss simply falls through to it.
type ViewCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

func NewViewCache[T any](client *goredis.Client, ttl time.Duration, log *logrus.Logger) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl, log: log}
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("view cache: dropping undecodable entry")
		c.client.Del(ctx, key)
		return nil, false
	}
	return &v, true
}

// Set marshals value and stores it in Redis under key.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("view cache: marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("view cache: write failed")
	}
}

// Delete removes a key from Redis.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("view cache: delete failed")
	}
}
