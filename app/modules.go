package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/adapters/metrics"
	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/module"
	"github.com/fieldforge/fieldforge/ports"
)

// CreateModuleInput carries the caller-supplied attributes of a new
// module. Slug is optional; when empty it is derived from Name.
type CreateModuleInput struct {
	Name        string
	Slug        string
	Description string
	Icon        string
}

// CascadeResult reports what a module delete removed. FailedIDs is
// non-empty only when the cascade aborted partway.
type CascadeResult struct {
	FieldsRemoved  int
	RecordsDeleted int
	Batches        int
	FailedIDs      []string
}

// ModuleService manages the tenant's custom module registry.
type ModuleService struct {
	modules   ports.ModuleStore
	fields    ports.FieldStore
	records   ports.RecordStore
	mutator   *SchemaMutator
	catalog   ports.NativeCatalog
	ids       ports.IDGenerator
	clock     ports.Clock
	metrics   *metrics.Collector
	batchSize func() int
	logger    zerolog.Logger
}

// NewModuleService creates a module service. batchSize is read per
// cascade so config reloads take effect without a restart.
func NewModuleService(
	modules ports.ModuleStore,
	fields ports.FieldStore,
	records ports.RecordStore,
	mutator *SchemaMutator,
	catalog ports.NativeCatalog,
	ids ports.IDGenerator,
	clock ports.Clock,
	collector *metrics.Collector,
	batchSize func() int,
	logger zerolog.Logger,
) *ModuleService {
	return &ModuleService{
		modules:   modules,
		fields:    fields,
		records:   records,
		mutator:   mutator,
		catalog:   catalog,
		ids:       ids,
		clock:     clock,
		metrics:   collector,
		batchSize: batchSize,
		logger:    logger.With().Str("service", "modules").Logger(),
	}
}

// Create registers a new module for the tenant. The slug is fixed for
// the module's lifetime.
func (s *ModuleService) Create(ctx context.Context, in CreateModuleInput) (module.Module, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return module.Module{}, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return module.Module{}, fault.OnField(fault.CodeInvalidFormat, "name", "module name is required")
	}

	slug := in.Slug
	if slug == "" {
		slug = module.Slugify(name)
		if slug == "" {
			return module.Module{}, fault.OnField(fault.CodeInvalidFormat, "name", "no slug can be derived from %q", name)
		}
	} else if !module.ValidSlug(slug) {
		return module.Module{}, fault.OnField(fault.CodeInvalidFormat, "slug", "slug %q is not lowercase snake_case", slug)
	}

	// Native entities own the slug space too; a custom "leads" module
	// would shadow the built-in one.
	if s.catalog.Has(slug) {
		return module.Module{}, fault.New(fault.CodeDuplicateSlug, "slug %q is reserved by a native module", slug)
	}

	now := s.clock.Now()
	m := module.Module{
		ID:          s.ids.New(),
		TenantID:    tctx.TenantID,
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		Icon:        in.Icon,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.modules.Create(ctx, m); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return module.Module{}, fault.New(fault.CodeDuplicateSlug, "slug %q is already taken", slug)
		}
		return module.Module{}, fmt.Errorf("create module: %w", err)
	}

	s.mutator.Committed(ctx, tctx, "module.create", "module", m.ID, nil, m)
	s.logger.Info().Str("tenant_id", tctx.TenantID).Str("module_id", m.ID).Str("slug", slug).Msg("module created")
	return m, nil
}

// Get retrieves one of the tenant's modules by ID.
func (s *ModuleService) Get(ctx context.Context, id string) (module.Module, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return module.Module{}, err
	}
	return s.owned(ctx, tctx.TenantID, id)
}

// GetBySlug retrieves one of the tenant's modules by slug.
func (s *ModuleService) GetBySlug(ctx context.Context, slug string) (module.Module, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return module.Module{}, err
	}
	m, err := s.modules.GetBySlug(ctx, tctx.TenantID, slug)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return module.Module{}, fault.New(fault.CodeNotFound, "module %q not found", slug)
		}
		return module.Module{}, fmt.Errorf("get module by slug: %w", err)
	}
	return m, nil
}

// Update applies a partial update. The slug is not patchable; the HTTP
// layer rejects attempts with an immutable_field fault before reaching
// here.
func (s *ModuleService) Update(ctx context.Context, id string, patch module.Patch) (module.Module, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return module.Module{}, err
	}
	before, err := s.owned(ctx, tctx.TenantID, id)
	if err != nil {
		return module.Module{}, err
	}

	updated := patch.Apply(before)
	if updated.Name == "" {
		return module.Module{}, fault.OnField(fault.CodeInvalidFormat, "name", "module name cannot be empty")
	}
	updated.UpdatedAt = s.clock.Now()

	if err := s.modules.Update(ctx, updated); err != nil {
		return module.Module{}, fmt.Errorf("update module: %w", err)
	}

	s.mutator.Committed(ctx, tctx, "module.update", "module", id, before, updated)
	return updated, nil
}

// Deactivate soft-disables a module. Records and fields stay intact and
// the module can be reactivated through Update.
func (s *ModuleService) Deactivate(ctx context.Context, id string) (module.Module, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return module.Module{}, err
	}
	before, err := s.owned(ctx, tctx.TenantID, id)
	if err != nil {
		return module.Module{}, err
	}
	if !before.IsActive {
		return before, nil
	}

	updated := before
	updated.IsActive = false
	updated.UpdatedAt = s.clock.Now()
	if err := s.modules.Update(ctx, updated); err != nil {
		return module.Module{}, fmt.Errorf("deactivate module: %w", err)
	}

	s.mutator.Committed(ctx, tctx, "module.deactivate", "module", id, before, updated)
	return updated, nil
}

// Delete removes a module, its field definitions and all its records.
// Records are deleted oldest first in bounded batches so one huge
// module cannot monopolize the store; cancellation is honored between
// batches. When a batch partially fails the cascade stops and the
// module row is kept, so the operation can be retried.
func (s *ModuleService) Delete(ctx context.Context, id string) (CascadeResult, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return CascadeResult{}, err
	}
	m, err := s.owned(ctx, tctx.TenantID, id)
	if err != nil {
		return CascadeResult{}, err
	}

	var result CascadeResult

	removed, err := s.fields.DeleteByModule(ctx, tctx.TenantID, m.Slug)
	if err != nil {
		return result, fmt.Errorf("delete fields of %s: %w", m.Slug, err)
	}
	result.FieldsRemoved = removed

	batch := s.batchSize()
	if batch < 1 {
		batch = 1
	}
	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("cascade delete of %s interrupted: %w", m.Slug, err)
		}

		ids, err := s.records.ListIDs(ctx, tctx.TenantID, m.Slug, batch)
		if err != nil {
			return result, fmt.Errorf("list records of %s: %w", m.Slug, err)
		}
		if len(ids) == 0 {
			break
		}

		result.Batches++
		s.metrics.CascadeBatches.Inc()

		failed, err := s.records.DeleteBatch(ctx, ids)
		deleted := len(ids) - len(failed)
		result.RecordsDeleted += deleted
		s.metrics.CascadeDeletes.Add(float64(deleted))
		if err != nil {
			return result, fmt.Errorf("delete record batch of %s: %w", m.Slug, err)
		}
		if len(failed) > 0 {
			result.FailedIDs = failed
			s.metrics.CascadeFailures.Add(float64(len(failed)))
			s.logger.Error().
				Str("tenant_id", tctx.TenantID).
				Str("slug", m.Slug).
				Int("failed", len(failed)).
				Msg("cascade delete aborted on failing records")
			return result, fmt.Errorf("cascade delete of %s aborted: %d records failed", m.Slug, len(failed))
		}
	}

	if err := s.modules.Delete(ctx, id); err != nil {
		return result, fmt.Errorf("delete module row: %w", err)
	}

	s.mutator.Committed(ctx, tctx, "module.delete", "module", id, m, nil)
	s.logger.Info().
		Str("tenant_id", tctx.TenantID).
		Str("slug", m.Slug).
		Int("fields_removed", result.FieldsRemoved).
		Int("records_deleted", result.RecordsDeleted).
		Msg("module deleted")
	return result, nil
}

// List returns the tenant's modules in creation order plus the total.
func (s *ModuleService) List(ctx context.Context, limit, offset int) ([]module.Module, int, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return nil, 0, err
	}
	mods, total, err := s.modules.List(ctx, tctx.TenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list modules: %w", err)
	}
	return mods, total, nil
}

// owned loads a module and enforces tenant ownership. A foreign module
// is Forbidden, not NotFound: the ID is valid, the caller is not.
func (s *ModuleService) owned(ctx context.Context, tenantID, id string) (module.Module, error) {
	m, err := s.modules.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return module.Module{}, fault.New(fault.CodeNotFound, "module %s not found", id)
		}
		return module.Module{}, fmt.Errorf("get module: %w", err)
	}
	if m.TenantID != tenantID {
		return module.Module{}, fault.New(fault.CodeForbidden, "module %s belongs to another tenant", id)
	}
	return m, nil
}
