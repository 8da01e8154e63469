// Package app contains the application services orchestrating domain
// logic and ports: module registry, field schema store, record store,
// relationship resolution, export and schema snapshot loading.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/adapters/metrics"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/ports"
)

// snapshotRetries bounds how often a load races a concurrent schema
// mutation before giving up.
const snapshotRetries = 3

// SnapshotLoader produces consistent per-tenant schema snapshots pinned
// to the generation counter. Every validation and read path goes
// through one snapshot, so a field removed mid-flight cannot produce a
// half-validated record.
type SnapshotLoader struct {
	modules ports.ModuleStore
	fields  ports.FieldStore
	gens    ports.GenerationStore
	cache   ports.SchemaCache
	catalog ports.NativeCatalog
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// NewSnapshotLoader creates a snapshot loader.
func NewSnapshotLoader(
	modules ports.ModuleStore,
	fields ports.FieldStore,
	gens ports.GenerationStore,
	cache ports.SchemaCache,
	catalog ports.NativeCatalog,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *SnapshotLoader {
	return &SnapshotLoader{
		modules: modules,
		fields:  fields,
		gens:    gens,
		cache:   cache,
		catalog: catalog,
		metrics: collector,
		logger:  logger.With().Str("service", "snapshot").Logger(),
	}
}

// Load returns the tenant's current schema snapshot. A generation that
// moves while the snapshot is being assembled triggers a bounded retry.
func (l *SnapshotLoader) Load(ctx context.Context, tenantID string) (ports.SchemaSnapshot, error) {
	for attempt := 0; attempt < snapshotRetries; attempt++ {
		gen, err := l.gens.Current(ctx, tenantID)
		if err != nil {
			return ports.SchemaSnapshot{}, fmt.Errorf("read schema generation: %w", err)
		}

		if snap, ok, err := l.cache.Get(ctx, tenantID); err != nil {
			l.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("schema cache read failed")
		} else if ok && snap.Generation == gen {
			l.metrics.CacheHits.Inc()
			return snap, nil
		}
		l.metrics.CacheMisses.Inc()

		snap, err := l.build(ctx, tenantID, gen)
		if err != nil {
			return ports.SchemaSnapshot{}, err
		}

		// The snapshot is only valid if the generation did not move
		// underneath the build.
		current, err := l.gens.Current(ctx, tenantID)
		if err != nil {
			return ports.SchemaSnapshot{}, fmt.Errorf("recheck schema generation: %w", err)
		}
		if current != gen {
			l.logger.Debug().
				Str("tenant_id", tenantID).
				Int64("started_at", gen).
				Int64("now", current).
				Msg("schema generation moved during snapshot build, retrying")
			continue
		}

		if err := l.cache.Put(ctx, tenantID, snap); err != nil {
			l.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("schema cache write failed")
		}
		return snap, nil
	}

	return ports.SchemaSnapshot{}, fmt.Errorf("schema for tenant %s changed %d times during load", tenantID, snapshotRetries)
}

// Invalidate drops the tenant's cached snapshot.
func (l *SnapshotLoader) Invalidate(ctx context.Context, tenantID string) {
	if err := l.cache.Invalidate(ctx, tenantID); err != nil {
		l.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("schema cache invalidation failed")
	}
}

func (l *SnapshotLoader) build(ctx context.Context, tenantID string, gen int64) (ports.SchemaSnapshot, error) {
	mods, _, err := l.modules.List(ctx, tenantID, 0, 0)
	if err != nil {
		return ports.SchemaSnapshot{}, fmt.Errorf("list modules: %w", err)
	}

	// Field definitions may also hang off native modules, which have no
	// module row of their own.
	targets := make([]string, 0, len(mods)+len(l.catalog.Modules()))
	for _, m := range mods {
		targets = append(targets, m.Slug)
	}
	targets = append(targets, l.catalog.Modules()...)

	fieldsByTarget := make(map[string][]field.Definition, len(targets))
	for _, target := range targets {
		defs, err := l.fields.ListByModule(ctx, tenantID, target)
		if err != nil {
			return ports.SchemaSnapshot{}, fmt.Errorf("list fields of %s: %w", target, err)
		}
		if len(defs) > 0 {
			fieldsByTarget[target] = defs
		}
	}

	return ports.SchemaSnapshot{
		Generation: gen,
		Modules:    mods,
		Fields:     fieldsByTarget,
	}, nil
}
