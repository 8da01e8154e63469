package remote

import (
	"context"
	"net/url"

	"github.com/fieldforge/fieldforge/ports"
)

// NativeCatalog resolves native module records against the CRM core.
// The slug list is fixed at construction; only record existence goes
// over the wire.
//
// API contract:
//
//	GET /internal/{slug}/records/{id}
//	200 when the record exists, 404 when it does not.
type NativeCatalog struct {
	client *Client
	slugs  map[string]bool
	order  []string
}

// NewNativeCatalog creates a catalog over the given native module slugs.
func NewNativeCatalog(client *Client, slugs []string) *NativeCatalog {
	c := &NativeCatalog{
		client: client,
		slugs:  make(map[string]bool, len(slugs)),
		order:  append([]string(nil), slugs...),
	}
	for _, s := range slugs {
		c.slugs[s] = true
	}
	return c
}

// Has reports whether slug names a native module.
func (c *NativeCatalog) Has(slug string) bool {
	return c.slugs[slug]
}

// Modules lists the native module slugs.
func (c *NativeCatalog) Modules() []string {
	return append([]string(nil), c.order...)
}

// RecordExists checks the record against the CRM core. Transport
// failures surface as errors so callers can report the reference check
// as unavailable rather than guessing.
func (c *NativeCatalog) RecordExists(ctx context.Context, slug, recordID string) (bool, error) {
	path := "/internal/" + url.PathEscape(slug) + "/records/" + url.PathEscape(recordID)
	err := c.client.Request(ctx, "GET", path, nil, nil)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// Ensure interface compliance.
var _ ports.NativeCatalog = (*NativeCatalog)(nil)
