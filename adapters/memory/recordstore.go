package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fieldforge/fieldforge/domain/record"
	"github.com/fieldforge/fieldforge/ports"
)

// RecordStore is an in-memory implementation of ports.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]record.Record // by ID

	// failDelete marks ids whose deletion should fail, for exercising
	// partial cascade batches in tests.
	failDelete map[string]bool
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records:    make(map[string]record.Record),
		failDelete: make(map[string]bool),
	}
}

// Create inserts a new record.
func (s *RecordStore) Create(ctx context.Context, r record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ID]; exists {
		return ports.ErrDuplicate
	}
	s.records[r.ID] = r.WithValues(r.CloneValues())
	return nil
}

// Get retrieves a record by ID.
func (s *RecordStore) Get(ctx context.Context, id string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return record.Record{}, ports.ErrNotFound
	}
	return r.WithValues(r.CloneValues()), nil
}

// Update commits r iff the stored version equals expectedVersion.
func (s *RecordStore) Update(ctx context.Context, r record.Record, expectedVersion int64) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[r.ID]
	if !ok {
		return record.Record{}, ports.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return record.Record{}, ports.ErrVersionConflict
	}

	r.Version = stored.Version + 1
	r.CreatedAt = stored.CreatedAt
	r.CreatedByID = stored.CreatedByID
	s.records[r.ID] = r.WithValues(r.CloneValues())
	return r, nil
}

// Delete removes a record.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ports.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// List returns matching records, newest first.
func (s *RecordStore) List(ctx context.Context, q ports.RecordQuery) ([]record.Record, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []record.Record
	for _, r := range s.records {
		if r.TenantID != q.TenantID || r.ModuleTarget != q.ModuleTarget {
			continue
		}
		if !matchesFilter(r, q.Filter) {
			continue
		}
		all = append(all, r.WithValues(r.CloneValues()))
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	if q.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[q.Offset:]
	if q.Limit > 0 && q.Limit < len(all) {
		all = all[:q.Limit]
	}
	return all, total, nil
}

func matchesFilter(r record.Record, filter map[string]string) bool {
	for name, substr := range filter {
		v, ok := r.Values[name]
		if !ok {
			return false
		}
		if !strings.Contains(strings.ToLower(v.String()), strings.ToLower(substr)) {
			return false
		}
	}
	return true
}

// ListIDs returns up to limit record IDs of a module target, oldest first.
func (s *RecordStore) ListIDs(ctx context.Context, tenantID, moduleTarget string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []record.Record
	for _, r := range s.records {
		if r.TenantID == tenantID && r.ModuleTarget == moduleTarget {
			matching = append(matching, r)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].CreatedAt.Before(matching[j].CreatedAt)
		}
		return matching[i].ID < matching[j].ID
	})

	ids := make([]string, 0, len(matching))
	for _, r := range matching {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// DeleteBatch removes the given records, reporting ids that failed.
func (s *RecordStore) DeleteBatch(ctx context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []string
	for _, id := range ids {
		if s.failDelete[id] {
			failed = append(failed, id)
			continue
		}
		delete(s.records, id)
	}
	return failed, nil
}

// CountWithValue counts records holding a non-null value for the field.
func (s *RecordStore) CountWithValue(ctx context.Context, tenantID, moduleTarget, fieldName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.records {
		if r.TenantID != tenantID || r.ModuleTarget != moduleTarget {
			continue
		}
		if _, ok := r.Values[fieldName]; ok {
			n++
		}
	}
	return n, nil
}

// StripFieldBatch removes the field key from up to limit records.
func (s *RecordStore) StripFieldBatch(ctx context.Context, tenantID, moduleTarget, fieldName string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, r := range s.records {
		if limit > 0 && n >= limit {
			break
		}
		if r.TenantID != tenantID || r.ModuleTarget != moduleTarget {
			continue
		}
		if _, ok := r.Values[fieldName]; !ok {
			continue
		}
		values := r.CloneValues()
		delete(values, fieldName)
		s.records[id] = r.WithValues(values)
		n++
	}
	return n, nil
}

// FindReferencing returns records whose relationship field holds targetID.
func (s *RecordStore) FindReferencing(ctx context.Context, tenantID, referencingModule, fieldName, targetID string, limit, offset int) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []record.Record
	for _, r := range s.records {
		if r.TenantID != tenantID || r.ModuleTarget != referencingModule {
			continue
		}
		if v, ok := r.Values[fieldName]; ok && v.Kind == record.KindReference && v.Str == targetID {
			all = append(all, r.WithValues(r.CloneValues()))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// FailDeletes marks ids whose deletion fails (for testing).
func (s *RecordStore) FailDeletes(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.failDelete[id] = true
	}
}

// Len returns the number of stored records (for testing).
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Ensure interface compliance.
var _ ports.RecordStore = (*RecordStore)(nil)
