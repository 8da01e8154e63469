package app_test

import (
	"context"
	"testing"

	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/ports"
)

func TestSnapshotLoader_PinsGeneration(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")
	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Title", Type: field.TypeText})

	snap, err := e.snapshots.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	gen, err := e.gens.Current(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if snap.Generation != gen {
		t.Errorf("snapshot generation = %d, store = %d", snap.Generation, gen)
	}
	if _, ok := snap.Module("projects"); !ok {
		t.Error("module missing from snapshot")
	}
	if len(snap.Fields["projects"]) != 1 {
		t.Errorf("fields = %d, want 1", len(snap.Fields["projects"]))
	}
}

func TestSnapshotLoader_InvalidatedByMutation(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")

	first, err := e.snapshots.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	// A schema mutation bumps the generation and drops the cache.
	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Title", Type: field.TypeText})

	second, err := e.snapshots.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if second.Generation <= first.Generation {
		t.Errorf("generation did not advance: %d -> %d", first.Generation, second.Generation)
	}
	if len(second.Fields["projects"]) != 1 {
		t.Error("snapshot does not reflect the new field")
	}
}

func TestSnapshotLoader_ServesFromCache(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")

	if _, err := e.snapshots.Load(context.Background(), "t1"); err != nil {
		t.Fatalf("first Load error: %v", err)
	}

	cached, ok, err := e.cache.Get(context.Background(), "t1")
	if err != nil || !ok {
		t.Fatalf("snapshot not cached: ok=%v err=%v", ok, err)
	}

	again, err := e.snapshots.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("second Load error: %v", err)
	}
	if again.Generation != cached.Generation {
		t.Errorf("cached generation = %d, served = %d", cached.Generation, again.Generation)
	}
}

func TestSnapshotLoader_IgnoresStaleCache(t *testing.T) {
	e := newEnv(t)
	mustCreateModule(t, e, testCtx("t1", "u1"), "Projects")

	// Poison the cache with an old generation.
	stale := ports.SchemaSnapshot{Generation: 0}
	if err := e.cache.Put(context.Background(), "t1", stale); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	snap, err := e.snapshots.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if snap.Generation == 0 {
		t.Error("stale cached snapshot served")
	}
	if _, ok := snap.Module("projects"); !ok {
		t.Error("rebuilt snapshot misses the module")
	}
}

func TestSnapshotLoader_IncludesNativeModuleFields(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "leads", Label: "Score", Type: field.TypeNumber})

	snap, err := e.snapshots.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(snap.Fields["leads"]) != 1 {
		t.Errorf("native module fields = %d, want 1", len(snap.Fields["leads"]))
	}
	if _, ok := snap.Module("leads"); ok {
		t.Error("native module must not appear as a module row")
	}
}

func TestSnapshotLoader_TenantsAreIsolated(t *testing.T) {
	e := newEnv(t)
	mustCreateModule(t, e, testCtx("t1", "u1"), "Projects")
	mustCreateModule(t, e, testCtx("t2", "u9"), "Invoices")

	snap, err := e.snapshots.Load(context.Background(), "t2")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if _, ok := snap.Module("projects"); ok {
		t.Error("foreign module leaked into snapshot")
	}
	if _, ok := snap.Module("invoices"); !ok {
		t.Error("own module missing from snapshot")
	}
}
