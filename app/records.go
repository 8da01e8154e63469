package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/adapters/metrics"
	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/record"
	"github.com/fieldforge/fieldforge/domain/validate"
	"github.com/fieldforge/fieldforge/ports"
)

// RecordService stores generic records under the live schema. Every
// write validates the full payload against one pinned schema snapshot.
type RecordService struct {
	records   ports.RecordStore
	snapshots *SnapshotLoader
	refs      validate.ReferenceChecker
	ids       ports.IDGenerator
	clock     ports.Clock
	metrics   *metrics.Collector
	logger    zerolog.Logger
}

// NewRecordService creates a record service.
func NewRecordService(
	records ports.RecordStore,
	snapshots *SnapshotLoader,
	refs validate.ReferenceChecker,
	ids ports.IDGenerator,
	clock ports.Clock,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *RecordService {
	return &RecordService{
		records:   records,
		snapshots: snapshots,
		refs:      refs,
		ids:       ids,
		clock:     clock,
		metrics:   collector,
		logger:    logger.With().Str("service", "records").Logger(),
	}
}

// CreateRecordInput carries a new record's payload. OwnerID defaults to
// the acting user when empty.
type CreateRecordInput struct {
	ModuleSlug string
	Values     map[string]any
	OwnerID    string
}

// Create validates and persists a new record. Nothing is persisted when
// the payload has violations; all of them are returned at once.
func (s *RecordService) Create(ctx context.Context, in CreateRecordInput) (record.Record, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return record.Record{}, err
	}

	snap, defs, err := s.schemaFor(ctx, tctx.TenantID, in.ModuleSlug)
	if err != nil {
		return record.Record{}, err
	}

	result, err := validate.Record(ctx, defs, in.Values, s.refs, validate.Options{ApplyDefaults: true})
	if err != nil {
		return record.Record{}, err
	}
	if !result.OK() {
		s.countViolations(result.Violations)
		return record.Record{}, &ValidationFailed{Violations: result.Violations}
	}

	owner := in.OwnerID
	if owner == "" {
		owner = tctx.ActorID
	}

	now := s.clock.Now()
	rec := record.Record{
		ID:           s.ids.New(),
		ModuleTarget: in.ModuleSlug,
		TenantID:     tctx.TenantID,
		OwnerID:      owner,
		CreatedByID:  tctx.ActorID,
		Version:      1,
		Values:       result.Values,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.records.Create(ctx, rec); err != nil {
		return record.Record{}, fmt.Errorf("create record: %w", err)
	}

	s.metrics.RecordWrites.WithLabelValues("create").Inc()
	s.logger.Debug().
		Str("tenant_id", tctx.TenantID).
		Str("module_target", in.ModuleSlug).
		Str("record_id", rec.ID).
		Int64("schema_generation", snap.Generation).
		Msg("record created")
	return rec, nil
}

// Update merges a partial payload over the stored values, revalidates
// the whole record, and commits only if the stored version still equals
// expectedVersion. A nil value in the patch clears the field.
func (s *RecordService) Update(ctx context.Context, moduleSlug, id string, patch map[string]any, expectedVersion int64) (record.Record, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return record.Record{}, err
	}

	stored, err := s.owned(ctx, tctx.TenantID, moduleSlug, id)
	if err != nil {
		return record.Record{}, err
	}

	_, defs, err := s.schemaFor(ctx, tctx.TenantID, moduleSlug)
	if err != nil {
		return record.Record{}, err
	}

	merged := stored.Primitives()
	for name, value := range patch {
		if value == nil {
			delete(merged, name)
			continue
		}
		merged[name] = value
	}

	result, err := validate.Record(ctx, defs, merged, s.refs, validate.Options{ApplyDefaults: false})
	if err != nil {
		return record.Record{}, err
	}
	if !result.OK() {
		s.countViolations(result.Violations)
		return record.Record{}, &ValidationFailed{Violations: result.Violations}
	}

	next := stored.WithValues(result.Values)
	next.UpdatedAt = s.clock.Now()

	updated, err := s.records.Update(ctx, next, expectedVersion)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrVersionConflict):
			s.metrics.VersionConflicts.Inc()
			return record.Record{}, fault.New(fault.CodeConcurrentModification,
				"record %s changed since version %d was read", id, expectedVersion)
		case errors.Is(err, ports.ErrNotFound):
			return record.Record{}, fault.New(fault.CodeNotFound, "record %s not found", id)
		}
		return record.Record{}, fmt.Errorf("update record: %w", err)
	}

	s.metrics.RecordWrites.WithLabelValues("update").Inc()
	return updated, nil
}

// Delete removes a record permanently.
func (s *RecordService) Delete(ctx context.Context, moduleSlug, id string) error {
	tctx, err := scope(ctx)
	if err != nil {
		return err
	}
	if _, err := s.owned(ctx, tctx.TenantID, moduleSlug, id); err != nil {
		return err
	}
	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.metrics.RecordWrites.WithLabelValues("delete").Inc()
	return nil
}

// Get retrieves one record.
func (s *RecordService) Get(ctx context.Context, moduleSlug, id string) (record.Record, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return record.Record{}, err
	}
	return s.owned(ctx, tctx.TenantID, moduleSlug, id)
}

// List returns the module's records, newest first, plus the total.
// Filter values are case-insensitive substrings matched against the
// stored field values.
func (s *RecordService) List(ctx context.Context, moduleSlug string, filter map[string]string, limit, offset int) ([]record.Record, int, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return nil, 0, err
	}
	if _, _, err := s.schemaFor(ctx, tctx.TenantID, moduleSlug); err != nil {
		return nil, 0, err
	}

	recs, total, err := s.records.List(ctx, ports.RecordQuery{
		TenantID:     tctx.TenantID,
		ModuleTarget: moduleSlug,
		Filter:       filter,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	return recs, total, nil
}

// schemaFor loads the tenant's snapshot and resolves the module's field
// definitions. Records live only under custom modules; natives are
// stored by an external system.
func (s *RecordService) schemaFor(ctx context.Context, tenantID, moduleSlug string) (ports.SchemaSnapshot, []field.Definition, error) {
	snap, err := s.snapshots.Load(ctx, tenantID)
	if err != nil {
		return ports.SchemaSnapshot{}, nil, fmt.Errorf("load schema: %w", err)
	}
	if _, ok := snap.Module(moduleSlug); !ok {
		return ports.SchemaSnapshot{}, nil, fault.New(fault.CodeNotFound, "module %q not found", moduleSlug)
	}
	return snap, snap.Fields[moduleSlug], nil
}

func (s *RecordService) owned(ctx context.Context, tenantID, moduleSlug, id string) (record.Record, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return record.Record{}, fault.New(fault.CodeNotFound, "record %s not found", id)
		}
		return record.Record{}, fmt.Errorf("get record: %w", err)
	}
	if rec.TenantID != tenantID {
		return record.Record{}, fault.New(fault.CodeForbidden, "record %s belongs to another tenant", id)
	}
	if rec.ModuleTarget != moduleSlug {
		return record.Record{}, fault.New(fault.CodeNotFound, "record %s not found in %s", id, moduleSlug)
	}
	return rec, nil
}

func (s *RecordService) countViolations(violations []validate.Violation) {
	for _, v := range violations {
		s.metrics.ValidationFailures.WithLabelValues(string(v.Code)).Inc()
	}
}
