package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/adapters/metrics"
	"github.com/fieldforge/fieldforge/domain/tenant"
	"github.com/fieldforge/fieldforge/ports"
)

// SchemaMutator performs the bookkeeping every schema mutation shares:
// audit entry, generation bump, cache invalidation, metrics. Record
// writes do not go through it; they are data, not schema.
type SchemaMutator struct {
	gens      ports.GenerationStore
	snapshots *SnapshotLoader
	audit     ports.AuditLog
	ids       ports.IDGenerator
	clock     ports.Clock
	metrics   *metrics.Collector
	logger    zerolog.Logger
}

// NewSchemaMutator creates the shared mutation bookkeeper. ids must
// generate audit entry identifiers.
func NewSchemaMutator(
	gens ports.GenerationStore,
	snapshots *SnapshotLoader,
	audit ports.AuditLog,
	ids ports.IDGenerator,
	clock ports.Clock,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *SchemaMutator {
	return &SchemaMutator{
		gens:      gens,
		snapshots: snapshots,
		audit:     audit,
		ids:       ids,
		clock:     clock,
		metrics:   collector,
		logger:    logger.With().Str("service", "schema_mutator").Logger(),
	}
}

// Committed records a schema mutation that already succeeded. Audit or
// cache failures are logged, never propagated: the mutation itself is
// durable at this point.
func (m *SchemaMutator) Committed(ctx context.Context, tctx tenant.Context, action, entity, entityID string, before, after any) {
	entry := ports.AuditEntry{
		ID:       m.ids.New(),
		TenantID: tctx.TenantID,
		ActorID:  tctx.ActorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Before:   marshalState(before),
		After:    marshalState(after),
		At:       m.clock.Now(),
	}
	if err := m.audit.Record(ctx, entry); err != nil {
		m.logger.Error().Err(err).Str("action", action).Str("entity_id", entityID).Msg("audit write failed")
	}

	gen, err := m.gens.Bump(ctx, tctx.TenantID)
	if err != nil {
		m.logger.Error().Err(err).Str("tenant_id", tctx.TenantID).Msg("schema generation bump failed")
	} else {
		m.metrics.SchemaGeneration.WithLabelValues(tctx.TenantID).Set(float64(gen))
	}

	m.snapshots.Invalidate(ctx, tctx.TenantID)
	m.metrics.SchemaMutations.WithLabelValues(action).Inc()
}

func marshalState(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
