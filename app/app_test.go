package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/adapters/clock"
	"github.com/fieldforge/fieldforge/adapters/format"
	"github.com/fieldforge/fieldforge/adapters/idgen"
	"github.com/fieldforge/fieldforge/adapters/memory"
	"github.com/fieldforge/fieldforge/adapters/metrics"
	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/domain/tenant"
)

const testBatchSize = 2

// env wires every service over memory adapters with a fake clock and
// sequential IDs for deterministic tests.
type env struct {
	modules *memory.ModuleStore
	fields  *memory.FieldStore
	records *memory.RecordStore
	gens    *memory.GenerationStore
	cache   *memory.SchemaCache
	audit   *memory.AuditLog
	catalog *memory.NativeCatalog
	clock   *clock.Fake

	snapshots *app.SnapshotLoader
	moduleSvc *app.ModuleService
	fieldSvc  *app.FieldService
	recordSvc *app.RecordService
	resolver  *app.Resolver
	exporter  *app.Exporter
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		modules: memory.NewModuleStore(),
		fields:  memory.NewFieldStore(),
		records: memory.NewRecordStore(),
		gens:    memory.NewGenerationStore(),
		cache:   memory.NewSchemaCache(),
		audit:   memory.NewAuditLog(),
		catalog: memory.NewNativeCatalog([]string{"leads", "contacts", "accounts", "deals"}),
		clock:   clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}

	collector := metrics.NewWithRegistry(prometheus.NewRegistry())
	logger := zerolog.Nop()
	batch := func() int { return testBatchSize }
	timeout := func() time.Duration { return time.Second }

	e.snapshots = app.NewSnapshotLoader(e.modules, e.fields, e.gens, e.cache, e.catalog, collector, logger)
	mutator := app.NewSchemaMutator(e.gens, e.snapshots, e.audit, idgen.NewSequential("aud_"), e.clock, collector, logger)
	e.moduleSvc = app.NewModuleService(e.modules, e.fields, e.records, mutator, e.catalog,
		idgen.NewSequential("mod_"), e.clock, collector, batch, logger)
	e.fieldSvc = app.NewFieldService(e.fields, e.records, e.modules, mutator, e.catalog,
		idgen.NewSequential("fld_"), e.clock, collector, batch, logger)
	e.resolver = app.NewResolver(e.records, e.fields, e.catalog, collector, timeout, logger)
	e.recordSvc = app.NewRecordService(e.records, e.snapshots, e.resolver,
		idgen.NewSequential("rec_"), e.clock, collector, logger)
	e.exporter = app.NewExporter(e.records, e.snapshots, format.NewPlain(), logger)
	return e
}

func testCtx(tenantID, actorID string) context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{TenantID: tenantID, ActorID: actorID})
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
