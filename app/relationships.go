package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/adapters/metrics"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/record"
	"github.com/fieldforge/fieldforge/domain/validate"
	"github.com/fieldforge/fieldforge/ports"
)

// ErrStopScan halts a FindReferencing scan early when returned by the
// visitor. It is not reported to the caller.
var ErrStopScan = errors.New("stop scan")

// referencingPageSize bounds one store read during a referencing scan.
const referencingPageSize = 200

// Reference is one record found pointing at a target, together with the
// relationship field that holds the link.
type Reference struct {
	Field  field.Definition
	Record record.Record
}

// Resolver answers relationship questions: does a referenced record
// exist, and which records point at a given one. It implements
// validate.ReferenceChecker.
type Resolver struct {
	records ports.RecordStore
	fields  ports.FieldStore
	catalog ports.NativeCatalog
	metrics *metrics.Collector
	timeout func() time.Duration
	logger  zerolog.Logger
}

// NewResolver creates a relationship resolver. timeout is read per
// check so config reloads take effect without a restart.
func NewResolver(
	records ports.RecordStore,
	fields ports.FieldStore,
	catalog ports.NativeCatalog,
	collector *metrics.Collector,
	timeout func() time.Duration,
	logger zerolog.Logger,
) *Resolver {
	return &Resolver{
		records: records,
		fields:  fields,
		catalog: catalog,
		metrics: collector,
		timeout: timeout,
		logger:  logger.With().Str("service", "relationships").Logger(),
	}
}

// Exists confirms that recordID exists in moduleTarget, which may be a
// custom module or a native entity. The check runs under the configured
// timeout; an expired or failing check is an error, never a negative.
func (r *Resolver) Exists(ctx context.Context, moduleTarget, recordID string) (bool, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return false, err
	}

	if d := r.timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	exists, err := r.lookup(ctx, tctx.TenantID, moduleTarget, recordID)
	r.metrics.ReferenceDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		r.metrics.ReferenceChecks.WithLabelValues("error").Inc()
		return false, fmt.Errorf("reference check in %s: %w", moduleTarget, err)
	case exists:
		r.metrics.ReferenceChecks.WithLabelValues("exists").Inc()
	default:
		r.metrics.ReferenceChecks.WithLabelValues("missing").Inc()
	}
	return exists, nil
}

func (r *Resolver) lookup(ctx context.Context, tenantID, moduleTarget, recordID string) (bool, error) {
	if r.catalog.Has(moduleTarget) {
		return r.catalog.RecordExists(ctx, moduleTarget, recordID)
	}

	rec, err := r.records.Get(ctx, recordID)
	if errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.TenantID == tenantID && rec.ModuleTarget == moduleTarget, nil
}

// FindReferencing streams every record holding a relationship value
// pointing at recordID in moduleTarget to the visitor, paging through
// the store lazily. The visitor may return ErrStopScan to stop early.
func (r *Resolver) FindReferencing(ctx context.Context, moduleTarget, recordID string, visit func(Reference) error) error {
	tctx, err := scope(ctx)
	if err != nil {
		return err
	}
	return r.findReferencing(ctx, tctx.TenantID, moduleTarget, recordID, visit)
}

func (r *Resolver) findReferencing(ctx context.Context, tenantID, moduleTarget, recordID string, visit func(Reference) error) error {
	defs, err := r.fields.ListRelationshipFields(ctx, tenantID, moduleTarget)
	if err != nil {
		return fmt.Errorf("list relationship fields onto %s: %w", moduleTarget, err)
	}

	for _, def := range defs {
		for offset := 0; ; offset += referencingPageSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			page, err := r.records.FindReferencing(ctx, tenantID, def.ModuleTarget, def.Name, recordID, referencingPageSize, offset)
			if err != nil {
				return fmt.Errorf("scan %s.%s: %w", def.ModuleTarget, def.Name, err)
			}
			for _, rec := range page {
				if err := visit(Reference{Field: def, Record: rec}); err != nil {
					if errors.Is(err, ErrStopScan) {
						return nil
					}
					return err
				}
			}
			if len(page) < referencingPageSize {
				break
			}
		}
	}
	return nil
}

// ReferencingClosure walks the reference graph backwards from one
// record: everything referencing it, everything referencing those, and
// so on. The module graph may be cyclic, so visited records are tracked;
// limit caps how many references are collected before the walk stops.
func (r *Resolver) ReferencingClosure(ctx context.Context, moduleTarget, recordID string, limit int) ([]Reference, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return nil, err
	}

	type node struct {
		moduleTarget string
		recordID     string
	}

	visited := map[string]bool{recordID: true}
	queue := []node{{moduleTarget: moduleTarget, recordID: recordID}}
	var closure []Reference

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		err := r.findReferencing(ctx, tctx.TenantID, current.moduleTarget, current.recordID, func(ref Reference) error {
			if visited[ref.Record.ID] {
				return nil
			}
			visited[ref.Record.ID] = true
			closure = append(closure, ref)
			if limit > 0 && len(closure) >= limit {
				return ErrStopScan
			}
			queue = append(queue, node{moduleTarget: ref.Record.ModuleTarget, recordID: ref.Record.ID})
			return nil
		})
		if err != nil {
			return closure, err
		}
		if limit > 0 && len(closure) >= limit {
			break
		}
	}
	return closure, nil
}

var _ validate.ReferenceChecker = (*Resolver)(nil)
