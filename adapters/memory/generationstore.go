package memory

import (
	"context"
	"sync"

	"github.com/fieldforge/fieldforge/ports"
)

// GenerationStore is an in-memory implementation of ports.GenerationStore.
type GenerationStore struct {
	mu          sync.Mutex
	generations map[string]int64 // by tenant ID
}

// NewGenerationStore creates a new in-memory generation store.
func NewGenerationStore() *GenerationStore {
	return &GenerationStore{generations: make(map[string]int64)}
}

// Current returns the tenant's schema generation.
func (s *GenerationStore) Current(ctx context.Context, tenantID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[tenantID], nil
}

// Bump atomically increments and returns the tenant's generation.
func (s *GenerationStore) Bump(ctx context.Context, tenantID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[tenantID]++
	return s.generations[tenantID], nil
}

// Ensure interface compliance.
var _ ports.GenerationStore = (*GenerationStore)(nil)
