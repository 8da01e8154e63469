package memory

import (
	"context"
	"sync"

	"github.com/fieldforge/fieldforge/ports"
)

// NativeCatalog is a fixed-list implementation of ports.NativeCatalog.
// Real deployments resolve native records against the CRM core; this
// adapter serves development mode and tests with a seedable record set.
type NativeCatalog struct {
	mu      sync.RWMutex
	slugs   map[string]bool
	records map[string]bool // slug + "/" + id
}

// NewNativeCatalog creates a catalog over the given native module slugs.
func NewNativeCatalog(slugs []string) *NativeCatalog {
	c := &NativeCatalog{
		slugs:   make(map[string]bool, len(slugs)),
		records: make(map[string]bool),
	}
	for _, s := range slugs {
		c.slugs[s] = true
	}
	return c
}

// Has reports whether slug names a native module.
func (c *NativeCatalog) Has(slug string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slugs[slug]
}

// Modules lists the native module slugs.
func (c *NativeCatalog) Modules() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.slugs))
	for s := range c.slugs {
		out = append(out, s)
	}
	return out
}

// RecordExists checks whether a seeded native record exists.
func (c *NativeCatalog) RecordExists(ctx context.Context, slug, recordID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records[slug+"/"+recordID], nil
}

// Seed registers a native record (for testing and development).
func (c *NativeCatalog) Seed(slug, recordID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[slug+"/"+recordID] = true
}

// Ensure interface compliance.
var _ ports.NativeCatalog = (*NativeCatalog)(nil)
