// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/fieldforge/fieldforge/ports"
	"github.com/google/uuid"
)

// Entity ID prefixes. Prefixed IDs make log lines and audit entries
// self-describing.
const (
	PrefixModule = "mod_"
	PrefixField  = "fld_"
	PrefixRecord = "rec_"
	PrefixAudit  = "aud_"
)

// UUID generates plain UUIDv4 identifiers.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// Prefixed generates UUID identifiers with a fixed entity prefix.
type Prefixed struct {
	prefix string
}

// NewPrefixed creates a generator producing prefix + UUIDv4.
func NewPrefixed(prefix string) Prefixed {
	return Prefixed{prefix: prefix}
}

// New generates the next identifier.
func (p Prefixed) New() string {
	return p.prefix + uuid.New().String()
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Reset resets the counter (for testing).
func (s *Sequential) Reset() {
	atomic.StoreUint64(&s.counter, 0)
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = Prefixed{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
