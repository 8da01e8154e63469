// Package memory provides in-memory implementations of storage ports.
// They back tests and single-process development mode.
package memory

import (
	"context"
	"sync"

	"github.com/fieldforge/fieldforge/domain/module"
	"github.com/fieldforge/fieldforge/ports"
)

// ModuleStore is an in-memory implementation of ports.ModuleStore.
type ModuleStore struct {
	mu      sync.RWMutex
	modules map[string]module.Module // by ID
	order   []string                 // creation order of IDs
}

// NewModuleStore creates a new in-memory module store.
func NewModuleStore() *ModuleStore {
	return &ModuleStore{modules: make(map[string]module.Module)}
}

// Create stores a new module.
func (s *ModuleStore) Create(ctx context.Context, m module.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.modules {
		if existing.TenantID == m.TenantID && existing.Slug == m.Slug {
			return ports.ErrDuplicate
		}
	}

	s.modules[m.ID] = m
	s.order = append(s.order, m.ID)
	return nil
}

// Get retrieves a module by ID.
func (s *ModuleStore) Get(ctx context.Context, id string) (module.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.modules[id]
	if !ok {
		return module.Module{}, ports.ErrNotFound
	}
	return m, nil
}

// GetBySlug retrieves a tenant's module by slug.
func (s *ModuleStore) GetBySlug(ctx context.Context, tenantID, slug string) (module.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.modules {
		if m.TenantID == tenantID && m.Slug == slug {
			return m, nil
		}
	}
	return module.Module{}, ports.ErrNotFound
}

// Update modifies an existing module.
func (s *ModuleStore) Update(ctx context.Context, m module.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.modules[m.ID]; !ok {
		return ports.ErrNotFound
	}
	s.modules[m.ID] = m
	return nil
}

// Delete removes a module row.
func (s *ModuleStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.modules[id]; !ok {
		return ports.ErrNotFound
	}
	delete(s.modules, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns a tenant's modules in creation order.
func (s *ModuleStore) List(ctx context.Context, tenantID string, limit, offset int) ([]module.Module, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []module.Module
	for _, id := range s.order {
		if m, ok := s.modules[id]; ok && m.TenantID == tenantID {
			all = append(all, m)
		}
	}

	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

// Ensure interface compliance.
var _ ports.ModuleStore = (*ModuleStore)(nil)
