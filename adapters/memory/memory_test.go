package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldforge/fieldforge/adapters/memory"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/module"
	"github.com/fieldforge/fieldforge/domain/record"
	"github.com/fieldforge/fieldforge/ports"
)

func TestModuleStore_DuplicateSlugScopedByTenant(t *testing.T) {
	ctx := context.Background()
	s := memory.NewModuleStore()

	if err := s.Create(ctx, module.Module{ID: "m1", TenantID: "t1", Slug: "contracts"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := s.Create(ctx, module.Module{ID: "m2", TenantID: "t1", Slug: "contracts"}); !errors.Is(err, ports.ErrDuplicate) {
		t.Errorf("same tenant duplicate = %v, want ErrDuplicate", err)
	}
	if err := s.Create(ctx, module.Module{ID: "m3", TenantID: "t2", Slug: "contracts"}); err != nil {
		t.Errorf("other tenant should be allowed: %v", err)
	}
}

func TestModuleStore_ListCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := memory.NewModuleStore()

	for _, id := range []string{"m1", "m2", "m3"} {
		if err := s.Create(ctx, module.Module{ID: id, TenantID: "t1", Slug: id}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	mods, total, err := s.List(ctx, "t1", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(mods) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", total, len(mods))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if mods[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, mods[i].ID, want)
		}
	}
}

func TestFieldStore_DuplicateNameWithinModule(t *testing.T) {
	ctx := context.Background()
	s := memory.NewFieldStore()

	d := field.Definition{ID: "f1", TenantID: "t1", ModuleTarget: "contracts", Name: "valor", Type: field.TypeNumber}
	if err := s.Create(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := d
	dup.ID = "f2"
	if err := s.Create(ctx, dup); !errors.Is(err, ports.ErrDuplicate) {
		t.Errorf("duplicate name = %v, want ErrDuplicate", err)
	}

	other := d
	other.ID = "f3"
	other.ModuleTarget = "deals"
	if err := s.Create(ctx, other); err != nil {
		t.Errorf("same name on another module should be allowed: %v", err)
	}
}

func TestRecordStore_OptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	s := memory.NewRecordStore()

	r := record.Record{ID: "r1", TenantID: "t1", ModuleTarget: "contracts", Version: 1,
		Values: map[string]record.Value{"valor": record.Number(10)}}
	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	r.Values["valor"] = record.Number(20)
	updated, err := s.Update(ctx, r, 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}

	// Second writer still holding version 1 must lose.
	if _, err := s.Update(ctx, r, 1); !errors.Is(err, ports.ErrVersionConflict) {
		t.Errorf("stale update = %v, want ErrVersionConflict", err)
	}
}

func TestRecordStore_ListFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := memory.NewRecordStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []struct {
		id    string
		title string
		at    time.Time
	}{
		{"r1", "Acme renewal", base},
		{"r2", "Globex onboarding", base.Add(time.Hour)},
		{"r3", "ACME upsell", base.Add(2 * time.Hour)},
	}
	for _, row := range rows {
		err := s.Create(ctx, record.Record{
			ID: row.id, TenantID: "t1", ModuleTarget: "deals", Version: 1, CreatedAt: row.at,
			Values: map[string]record.Value{"title": record.Text(row.title)},
		})
		if err != nil {
			t.Fatalf("create %s: %v", row.id, err)
		}
	}

	got, total, err := s.List(ctx, ports.RecordQuery{
		TenantID: "t1", ModuleTarget: "deals",
		Filter: map[string]string{"title": "acme"},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2 (filter is case-insensitive substring)", total)
	}
	if got[0].ID != "r3" || got[1].ID != "r1" {
		t.Errorf("order = [%s %s], want newest first [r3 r1]", got[0].ID, got[1].ID)
	}
}

func TestRecordStore_StripFieldBatch(t *testing.T) {
	ctx := context.Background()
	s := memory.NewRecordStore()

	for _, id := range []string{"r1", "r2", "r3"} {
		err := s.Create(ctx, record.Record{
			ID: id, TenantID: "t1", ModuleTarget: "contracts", Version: 1,
			Values: map[string]record.Value{"legacy": record.Text("x"), "keep": record.Text("y")},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	total := 0
	for {
		n, err := s.StripFieldBatch(ctx, "t1", "contracts", "legacy", 2)
		if err != nil {
			t.Fatalf("strip: %v", err)
		}
		if n == 0 {
			break
		}
		total += n
	}
	if total != 3 {
		t.Errorf("stripped %d, want 3", total)
	}

	count, _ := s.CountWithValue(ctx, "t1", "contracts", "legacy")
	if count != 0 {
		t.Errorf("records still holding legacy = %d, want 0", count)
	}
	count, _ = s.CountWithValue(ctx, "t1", "contracts", "keep")
	if count != 3 {
		t.Errorf("keep field disturbed, count = %d, want 3", count)
	}
}

func TestRecordStore_FindReferencing(t *testing.T) {
	ctx := context.Background()
	s := memory.NewRecordStore()

	err := s.Create(ctx, record.Record{
		ID: "d1", TenantID: "t1", ModuleTarget: "deals", Version: 1,
		Values: map[string]record.Value{"account": record.Reference("acc_1")},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.FindReferencing(ctx, "t1", "deals", "account", "acc_1", 0, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d1" {
		t.Errorf("got %v, want [d1]", got)
	}

	none, _ := s.FindReferencing(ctx, "t1", "deals", "account", "acc_2", 0, 0)
	if len(none) != 0 {
		t.Errorf("expected no matches for acc_2")
	}
}
