// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/module"
	"github.com/fieldforge/fieldforge/domain/record"
)

// Sentinel errors shared by all store implementations. The application
// layer translates them into the engine's coded error taxonomy.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("already exists")

	// ErrVersionConflict is returned when an optimistic-concurrency
	// update lost the race.
	ErrVersionConflict = errors.New("version conflict")
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Schema Ports
// -----------------------------------------------------------------------------

// ModuleStore persists custom module definitions.
type ModuleStore interface {
	// Create stores a new module. Fails ErrDuplicate when the slug is
	// already taken within the tenant.
	Create(ctx context.Context, m module.Module) error

	// Get retrieves a module by ID, regardless of tenant. The caller is
	// responsible for tenant checks (a mismatch is Forbidden, not NotFound).
	Get(ctx context.Context, id string) (module.Module, error)

	// GetBySlug retrieves a tenant's module by slug.
	GetBySlug(ctx context.Context, tenantID, slug string) (module.Module, error)

	// Update modifies an existing module.
	Update(ctx context.Context, m module.Module) error

	// Delete removes a module row. Cascading is orchestrated above.
	Delete(ctx context.Context, id string) error

	// List returns a tenant's modules in creation order, plus the total.
	List(ctx context.Context, tenantID string, limit, offset int) ([]module.Module, int, error)
}

// FieldStore persists field definitions.
type FieldStore interface {
	// Create stores a new definition. Fails ErrDuplicate when the field
	// name is already taken within the module target.
	Create(ctx context.Context, d field.Definition) error

	// Get retrieves a definition by ID.
	Get(ctx context.Context, id string) (field.Definition, error)

	// GetByName retrieves a definition by module target and field name.
	GetByName(ctx context.Context, tenantID, moduleTarget, name string) (field.Definition, error)

	// Update modifies an existing definition.
	Update(ctx context.Context, d field.Definition) error

	// Delete removes a definition.
	Delete(ctx context.Context, id string) error

	// ListByModule returns a module target's definitions ordered by
	// display order, ID as tiebreak.
	ListByModule(ctx context.Context, tenantID, moduleTarget string) ([]field.Definition, error)

	// DeleteByModule removes every definition of a module target and
	// returns how many were removed.
	DeleteByModule(ctx context.Context, tenantID, moduleTarget string) (int, error)

	// ListRelationshipFields returns every relationship definition in the
	// tenant pointing at the given target module.
	ListRelationshipFields(ctx context.Context, tenantID, relationshipTarget string) ([]field.Definition, error)
}

// -----------------------------------------------------------------------------
// Record Ports
// -----------------------------------------------------------------------------

// RecordQuery selects records for listing.
type RecordQuery struct {
	TenantID     string
	ModuleTarget string

	// Filter maps field names to case-insensitive substrings the
	// rendered value must contain.
	Filter map[string]string

	Limit  int
	Offset int
}

// RecordStore persists generic records.
type RecordStore interface {
	// Create inserts a new record.
	Create(ctx context.Context, r record.Record) error

	// Get retrieves a record by ID, regardless of tenant.
	Get(ctx context.Context, id string) (record.Record, error)

	// Update replaces a record's values iff the stored version still
	// equals expectedVersion, bumping the version; fails
	// ErrVersionConflict otherwise.
	Update(ctx context.Context, r record.Record, expectedVersion int64) (record.Record, error)

	// Delete removes a record.
	Delete(ctx context.Context, id string) error

	// List returns matching records, newest first, plus the total count.
	List(ctx context.Context, q RecordQuery) ([]record.Record, int, error)

	// ListIDs returns up to limit record IDs of a module target, oldest
	// first, for bounded cascade batches.
	ListIDs(ctx context.Context, tenantID, moduleTarget string, limit int) ([]string, error)

	// DeleteBatch removes the given records, reporting ids that failed.
	DeleteBatch(ctx context.Context, ids []string) (failed []string, err error)

	// CountWithValue counts records holding a non-null value for the field.
	CountWithValue(ctx context.Context, tenantID, moduleTarget, fieldName string) (int, error)

	// StripFieldBatch removes the field key from up to limit records that
	// still carry it, returning how many were touched. Repeated calls
	// drain the module in bounded steps.
	StripFieldBatch(ctx context.Context, tenantID, moduleTarget, fieldName string, limit int) (int, error)

	// FindReferencing returns records of referencingModule whose named
	// relationship field holds targetID.
	FindReferencing(ctx context.Context, tenantID, referencingModule, fieldName, targetID string, limit, offset int) ([]record.Record, error)
}

// -----------------------------------------------------------------------------
// Generation & Cache Ports
// -----------------------------------------------------------------------------

// GenerationStore tracks the per-tenant schema generation counter.
// Every schema mutation bumps it; reads pin to one observed value.
type GenerationStore interface {
	// Current returns the tenant's schema generation (0 before any mutation).
	Current(ctx context.Context, tenantID string) (int64, error)

	// Bump atomically increments and returns the tenant's generation.
	Bump(ctx context.Context, tenantID string) (int64, error)
}

// SchemaSnapshot is one consistent view of a tenant's schema, pinned to
// a generation.
type SchemaSnapshot struct {
	Generation int64
	Modules    []module.Module
	// Fields is keyed by module target and ordered for evaluation.
	Fields map[string][]field.Definition
}

// Module returns the snapshot's module with the given slug.
func (s SchemaSnapshot) Module(slug string) (module.Module, bool) {
	for _, m := range s.Modules {
		if m.Slug == slug {
			return m, true
		}
	}
	return module.Module{}, false
}

// SchemaCache caches schema snapshots per tenant, invalidated by the
// generation counter.
type SchemaCache interface {
	// Get returns the cached snapshot for the tenant, if any.
	Get(ctx context.Context, tenantID string) (SchemaSnapshot, bool, error)

	// Put stores a snapshot for the tenant.
	Put(ctx context.Context, tenantID string, snap SchemaSnapshot) error

	// Invalidate drops the tenant's cached snapshot.
	Invalidate(ctx context.Context, tenantID string) error
}

// -----------------------------------------------------------------------------
// Collaborator Ports
// -----------------------------------------------------------------------------

// AuditEntry describes one administrative schema mutation.
type AuditEntry struct {
	ID       string
	TenantID string
	ActorID  string
	Action   string // e.g. "module.create", "field.remove"
	Entity   string // "module" or "field"
	EntityID string
	Before   json.RawMessage
	After    json.RawMessage
	At       time.Time
}

// AuditLog records schema mutations. Record-level validation failures
// are not audited; they are not state changes.
type AuditLog interface {
	Record(ctx context.Context, e AuditEntry) error

	// List returns the tenant's entries newest first, plus the total.
	List(ctx context.Context, tenantID string, limit, offset int) ([]AuditEntry, int, error)
}

// NativeCatalog exposes the fixed built-in CRM entities (leads,
// accounts, ...) whose storage lives outside this engine. Field
// definitions may target them as module_target or relationship_target.
type NativeCatalog interface {
	// Has reports whether slug names a native module.
	Has(slug string) bool

	// Modules lists the native module slugs.
	Modules() []string

	// RecordExists checks whether a native record exists. The call may
	// reach a remote system; implementations must honor ctx deadlines.
	RecordExists(ctx context.Context, slug, recordID string) (bool, error)
}

// Formatter renders numbers and dates for tabular export. Locale-aware
// formatting is a collaborator concern; the default adapter is plain.
type Formatter interface {
	FormatNumber(f float64) string
	FormatDate(t time.Time) string
}
