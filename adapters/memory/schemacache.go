package memory

import (
	"context"
	"sync"

	"github.com/fieldforge/fieldforge/ports"
)

// SchemaCache is a process-local implementation of ports.SchemaCache.
type SchemaCache struct {
	mu        sync.RWMutex
	snapshots map[string]ports.SchemaSnapshot // by tenant ID

	hits, misses int64
}

// NewSchemaCache creates a new in-memory schema cache.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{snapshots: make(map[string]ports.SchemaSnapshot)}
}

// Get returns the cached snapshot for the tenant, if any.
func (c *SchemaCache) Get(ctx context.Context, tenantID string) (ports.SchemaSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.snapshots[tenantID]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return snap, ok, nil
}

// Put stores a snapshot for the tenant.
func (c *SchemaCache) Put(ctx context.Context, tenantID string, snap ports.SchemaSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[tenantID] = snap
	return nil
}

// Invalidate drops the tenant's cached snapshot.
func (c *SchemaCache) Invalidate(ctx context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, tenantID)
	return nil
}

// Stats returns hit/miss counters (for testing).
func (c *SchemaCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Ensure interface compliance.
var _ ports.SchemaCache = (*SchemaCache)(nil)
