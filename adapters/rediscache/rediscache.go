// Package rediscache provides a Redis-backed schema snapshot cache for
// multi-instance deployments. Single-node setups can use the in-memory
// cache instead.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldforge/fieldforge/ports"
)

// Cache is a Redis implementation of ports.SchemaCache. Snapshots are
// stored as JSON under one key per tenant. Correctness does not depend
// on the TTL; the generation counter is the real invalidation signal.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a cache over the given Redis client. A zero ttl means
// entries live until invalidated.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func key(tenantID string) string {
	return "fieldforge:schema:" + tenantID
}

// Get returns the cached snapshot for the tenant, if any.
func (c *Cache) Get(ctx context.Context, tenantID string) (ports.SchemaSnapshot, bool, error) {
	raw, err := c.client.Get(ctx, key(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.SchemaSnapshot{}, false, nil
	}
	if err != nil {
		return ports.SchemaSnapshot{}, false, fmt.Errorf("redis get: %w", err)
	}

	var snap ports.SchemaSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt entry behaves like a miss; the loader rebuilds it.
		return ports.SchemaSnapshot{}, false, nil
	}
	return snap, true, nil
}

// Put stores a snapshot for the tenant.
func (c *Cache) Put(ctx context.Context, tenantID string, snap ports.SchemaSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, key(tenantID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the tenant's cached snapshot.
func (c *Cache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.client.Del(ctx, key(tenantID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.SchemaCache = (*Cache)(nil)
