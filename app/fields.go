package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/adapters/metrics"
	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/module"
	"github.com/fieldforge/fieldforge/ports"
)

// AddFieldInput carries the caller-supplied attributes of a new field
// definition. Name is optional; when empty it is derived from Label.
type AddFieldInput struct {
	ModuleTarget       string
	Label              string
	Name               string
	Type               field.Type
	Options            []string
	Required           bool
	Default            any
	Order              int
	RelationshipTarget string
}

// FieldService manages field definitions attached to custom or native
// modules.
type FieldService struct {
	fields    ports.FieldStore
	records   ports.RecordStore
	modules   ports.ModuleStore
	mutator   *SchemaMutator
	catalog   ports.NativeCatalog
	ids       ports.IDGenerator
	clock     ports.Clock
	metrics   *metrics.Collector
	batchSize func() int
	logger    zerolog.Logger
}

// NewFieldService creates a field service. batchSize bounds the strip
// batches of a forced removal.
func NewFieldService(
	fields ports.FieldStore,
	records ports.RecordStore,
	modules ports.ModuleStore,
	mutator *SchemaMutator,
	catalog ports.NativeCatalog,
	ids ports.IDGenerator,
	clock ports.Clock,
	collector *metrics.Collector,
	batchSize func() int,
	logger zerolog.Logger,
) *FieldService {
	return &FieldService{
		fields:    fields,
		records:   records,
		modules:   modules,
		mutator:   mutator,
		catalog:   catalog,
		ids:       ids,
		clock:     clock,
		metrics:   collector,
		batchSize: batchSize,
		logger:    logger.With().Str("service", "fields").Logger(),
	}
}

// Add attaches a new field definition to a module target. The field
// name is fixed for the definition's lifetime.
func (s *FieldService) Add(ctx context.Context, in AddFieldInput) (field.Definition, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return field.Definition{}, err
	}

	if err := s.targetExists(ctx, tctx.TenantID, in.ModuleTarget); err != nil {
		return field.Definition{}, err
	}

	label := strings.TrimSpace(in.Label)
	if label == "" {
		return field.Definition{}, fault.OnField(fault.CodeInvalidFormat, "label", "field label is required")
	}

	name := in.Name
	if name == "" {
		name = module.Slugify(label)
		if name == "" {
			return field.Definition{}, fault.OnField(fault.CodeInvalidFormat, "label", "no field name can be derived from %q", label)
		}
	} else if !module.ValidSlug(name) {
		return field.Definition{}, fault.OnField(fault.CodeInvalidFormat, "field_name", "field name %q is not lowercase snake_case", name)
	}

	d := field.Definition{
		ID:                 s.ids.New(),
		TenantID:           tctx.TenantID,
		ModuleTarget:       in.ModuleTarget,
		Label:              label,
		Name:               name,
		Type:               in.Type,
		Options:            in.Options,
		Required:           in.Required,
		Default:            in.Default,
		Order:              in.Order,
		RelationshipTarget: in.RelationshipTarget,
	}
	if err := s.checkShape(ctx, tctx.TenantID, d); err != nil {
		return field.Definition{}, err
	}
	if d.Type != field.TypeSelect {
		d.Options = nil
	}
	if d.Type != field.TypeRelationship {
		d.RelationshipTarget = ""
	}

	if d.Order == 0 {
		existing, err := s.fields.ListByModule(ctx, tctx.TenantID, in.ModuleTarget)
		if err != nil {
			return field.Definition{}, fmt.Errorf("list fields of %s: %w", in.ModuleTarget, err)
		}
		d.Order = field.NextOrder(existing)
	}

	now := s.clock.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	if err := s.fields.Create(ctx, d); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return field.Definition{}, fault.OnField(fault.CodeDuplicateFieldName, name, "field %q already exists on %s", name, in.ModuleTarget)
		}
		return field.Definition{}, fmt.Errorf("create field: %w", err)
	}

	s.mutator.Committed(ctx, tctx, "field.create", "field", d.ID, nil, d)
	s.logger.Info().
		Str("tenant_id", tctx.TenantID).
		Str("module_target", in.ModuleTarget).
		Str("field_name", name).
		Str("field_type", string(d.Type)).
		Msg("field added")
	return d, nil
}

// Update applies a partial update. The field name is immutable; a type
// change is allowed only while no record holds a value for the field.
func (s *FieldService) Update(ctx context.Context, id string, patch field.Patch) (field.Definition, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return field.Definition{}, err
	}
	before, err := s.owned(ctx, tctx.TenantID, id)
	if err != nil {
		return field.Definition{}, err
	}

	if patch.Type != nil && *patch.Type != before.Type {
		populated, err := s.records.CountWithValue(ctx, tctx.TenantID, before.ModuleTarget, before.Name)
		if err != nil {
			return field.Definition{}, fmt.Errorf("count populated records: %w", err)
		}
		if populated > 0 {
			return field.Definition{}, fault.OnField(fault.CodeFieldTypeLocked, before.Name,
				"type of %q cannot change while %d records hold a value", before.Name, populated)
		}
	}

	updated := patch.Apply(before)
	if strings.TrimSpace(updated.Label) == "" {
		return field.Definition{}, fault.OnField(fault.CodeInvalidFormat, "label", "field label cannot be empty")
	}
	if err := s.checkShape(ctx, tctx.TenantID, updated); err != nil {
		return field.Definition{}, err
	}
	if updated.Type != field.TypeSelect {
		updated.Options = nil
	}
	if updated.Type != field.TypeRelationship {
		updated.RelationshipTarget = ""
	}
	updated.UpdatedAt = s.clock.Now()

	if err := s.fields.Update(ctx, updated); err != nil {
		return field.Definition{}, fmt.Errorf("update field: %w", err)
	}

	s.mutator.Committed(ctx, tctx, "field.update", "field", id, before, updated)
	return updated, nil
}

// Remove deletes a field definition. A field with populated records is
// refused unless force is set, in which case the key is stripped from
// every record in bounded batches before the definition goes.
func (s *FieldService) Remove(ctx context.Context, id string, force bool) error {
	tctx, err := scope(ctx)
	if err != nil {
		return err
	}
	d, err := s.owned(ctx, tctx.TenantID, id)
	if err != nil {
		return err
	}

	populated, err := s.records.CountWithValue(ctx, tctx.TenantID, d.ModuleTarget, d.Name)
	if err != nil {
		return fmt.Errorf("count populated records: %w", err)
	}
	if populated > 0 {
		if !force {
			return fault.OnField(fault.CodeFieldInUse, d.Name,
				"%d records hold a value for %q; pass force to strip it", populated, d.Name)
		}
		if err := s.stripAll(ctx, tctx.TenantID, d); err != nil {
			return err
		}
	}

	if err := s.fields.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete field: %w", err)
	}

	s.mutator.Committed(ctx, tctx, "field.remove", "field", id, d, nil)
	s.logger.Info().
		Str("tenant_id", tctx.TenantID).
		Str("module_target", d.ModuleTarget).
		Str("field_name", d.Name).
		Bool("force", force).
		Msg("field removed")
	return nil
}

// Get retrieves one of the tenant's field definitions by ID.
func (s *FieldService) Get(ctx context.Context, id string) (field.Definition, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return field.Definition{}, err
	}
	return s.owned(ctx, tctx.TenantID, id)
}

// GetByName retrieves a definition by module target and field name.
func (s *FieldService) GetByName(ctx context.Context, moduleTarget, name string) (field.Definition, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return field.Definition{}, err
	}
	d, err := s.fields.GetByName(ctx, tctx.TenantID, moduleTarget, name)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return field.Definition{}, fault.New(fault.CodeNotFound, "field %q not found on %s", name, moduleTarget)
		}
		return field.Definition{}, fmt.Errorf("get field by name: %w", err)
	}
	return d, nil
}

// List returns a module target's definitions in display order.
func (s *FieldService) List(ctx context.Context, moduleTarget string) ([]field.Definition, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.targetExists(ctx, tctx.TenantID, moduleTarget); err != nil {
		return nil, err
	}
	defs, err := s.fields.ListByModule(ctx, tctx.TenantID, moduleTarget)
	if err != nil {
		return nil, fmt.Errorf("list fields of %s: %w", moduleTarget, err)
	}
	return defs, nil
}

// checkShape enforces the per-type structural rules of a definition.
func (s *FieldService) checkShape(ctx context.Context, tenantID string, d field.Definition) error {
	if !d.Type.IsValid() {
		return fault.OnField(fault.CodeInvalidFieldType, d.Name, "unknown field type %q", d.Type)
	}
	if d.Type == field.TypeSelect && len(d.Options) == 0 {
		return fault.OnField(fault.CodeMissingOptions, d.Name, "select field %q needs at least one option", d.Name)
	}
	if d.Type == field.TypeRelationship {
		if d.RelationshipTarget == "" {
			return fault.OnField(fault.CodeUnknownRelationshipTarget, d.Name, "relationship field %q needs a target module", d.Name)
		}
		known, err := s.knownModule(ctx, tenantID, d.RelationshipTarget)
		if err != nil {
			return err
		}
		if !known {
			return fault.OnField(fault.CodeUnknownRelationshipTarget, d.Name,
				"relationship target %q is neither a custom nor a native module", d.RelationshipTarget)
		}
	}
	return nil
}

// stripAll drains the field key from every record in bounded batches.
func (s *FieldService) stripAll(ctx context.Context, tenantID string, d field.Definition) error {
	batch := s.batchSize()
	if batch < 1 {
		batch = 1
	}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("strip of %q interrupted: %w", d.Name, err)
		}
		n, err := s.records.StripFieldBatch(ctx, tenantID, d.ModuleTarget, d.Name, batch)
		if err != nil {
			return fmt.Errorf("strip field %q: %w", d.Name, err)
		}
		if n == 0 {
			return nil
		}
	}
}

func (s *FieldService) targetExists(ctx context.Context, tenantID, slug string) error {
	known, err := s.knownModule(ctx, tenantID, slug)
	if err != nil {
		return err
	}
	if !known {
		return fault.New(fault.CodeNotFound, "module %q not found", slug)
	}
	return nil
}

func (s *FieldService) knownModule(ctx context.Context, tenantID, slug string) (bool, error) {
	if s.catalog.Has(slug) {
		return true, nil
	}
	_, err := s.modules.GetBySlug(ctx, tenantID, slug)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("resolve module %s: %w", slug, err)
}

func (s *FieldService) owned(ctx context.Context, tenantID, id string) (field.Definition, error) {
	d, err := s.fields.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return field.Definition{}, fault.New(fault.CodeNotFound, "field %s not found", id)
		}
		return field.Definition{}, fmt.Errorf("get field: %w", err)
	}
	if d.TenantID != tenantID {
		return field.Definition{}, fault.New(fault.CodeForbidden, "field %s belongs to another tenant", id)
	}
	return d, nil
}
