package memory

import (
	"context"
	"sync"

	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/ports"
)

// FieldStore is an in-memory implementation of ports.FieldStore.
type FieldStore struct {
	mu     sync.RWMutex
	fields map[string]field.Definition // by ID
}

// NewFieldStore creates a new in-memory field store.
func NewFieldStore() *FieldStore {
	return &FieldStore{fields: make(map[string]field.Definition)}
}

// Create stores a new definition.
func (s *FieldStore) Create(ctx context.Context, d field.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.fields {
		if existing.TenantID == d.TenantID &&
			existing.ModuleTarget == d.ModuleTarget &&
			existing.Name == d.Name {
			return ports.ErrDuplicate
		}
	}

	s.fields[d.ID] = d
	return nil
}

// Get retrieves a definition by ID.
func (s *FieldStore) Get(ctx context.Context, id string) (field.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.fields[id]
	if !ok {
		return field.Definition{}, ports.ErrNotFound
	}
	return d, nil
}

// GetByName retrieves a definition by module target and field name.
func (s *FieldStore) GetByName(ctx context.Context, tenantID, moduleTarget, name string) (field.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.fields {
		if d.TenantID == tenantID && d.ModuleTarget == moduleTarget && d.Name == name {
			return d, nil
		}
	}
	return field.Definition{}, ports.ErrNotFound
}

// Update modifies an existing definition.
func (s *FieldStore) Update(ctx context.Context, d field.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fields[d.ID]; !ok {
		return ports.ErrNotFound
	}
	s.fields[d.ID] = d
	return nil
}

// Delete removes a definition.
func (s *FieldStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fields[id]; !ok {
		return ports.ErrNotFound
	}
	delete(s.fields, id)
	return nil
}

// ListByModule returns a module target's definitions in display order.
func (s *FieldStore) ListByModule(ctx context.Context, tenantID, moduleTarget string) ([]field.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var defs []field.Definition
	for _, d := range s.fields {
		if d.TenantID == tenantID && d.ModuleTarget == moduleTarget {
			defs = append(defs, d)
		}
	}
	return field.Sort(defs), nil
}

// DeleteByModule removes every definition of a module target.
func (s *FieldStore) DeleteByModule(ctx context.Context, tenantID, moduleTarget string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, d := range s.fields {
		if d.TenantID == tenantID && d.ModuleTarget == moduleTarget {
			delete(s.fields, id)
			n++
		}
	}
	return n, nil
}

// ListRelationshipFields returns relationship definitions pointing at a target.
func (s *FieldStore) ListRelationshipFields(ctx context.Context, tenantID, relationshipTarget string) ([]field.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var defs []field.Definition
	for _, d := range s.fields {
		if d.TenantID == tenantID && d.Type == field.TypeRelationship && d.RelationshipTarget == relationshipTarget {
			defs = append(defs, d)
		}
	}
	return field.Sort(defs), nil
}

// Ensure interface compliance.
var _ ports.FieldStore = (*FieldStore)(nil)
