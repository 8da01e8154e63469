package sqlite

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/module"
	"github.com/fieldforge/fieldforge/domain/record"
	"github.com/fieldforge/fieldforge/ports"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "fieldforge-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()

	db, err := Open(f.Name())
	if err != nil {
		os.Remove(f.Name())
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		os.Remove(f.Name())
		t.Fatalf("migrate: %v", err)
	}

	return db, func() {
		db.Close()
		os.Remove(f.Name())
	}
}

func TestModuleStore_CreateGetUpdateDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewModuleStore(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m := module.Module{
		ID: "mod_1", TenantID: "t1", Name: "Contratos", Slug: "contratos",
		Description: "Contract tracking", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetBySlug(ctx, "t1", "contratos")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got.Name != "Contratos" || !got.IsActive {
		t.Errorf("got %+v", got)
	}

	got.Name = "Contracts"
	got.IsActive = false
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = s.Get(ctx, "mod_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Contracts" || got.IsActive {
		t.Errorf("update not persisted: %+v", got)
	}
	if got.Slug != "contratos" {
		t.Errorf("slug changed to %q", got.Slug)
	}

	if err := s.Delete(ctx, "mod_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "mod_1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestModuleStore_DuplicateSlugScopedByTenant(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewModuleStore(db)
	now := time.Now().UTC()

	base := module.Module{TenantID: "t1", Slug: "deals", CreatedAt: now, UpdatedAt: now}

	m := base
	m.ID = "mod_1"
	if err := s.Create(ctx, m); err != nil {
		t.Fatalf("first create: %v", err)
	}

	dup := base
	dup.ID = "mod_2"
	if err := s.Create(ctx, dup); !errors.Is(err, ports.ErrDuplicate) {
		t.Errorf("same tenant duplicate = %v, want ErrDuplicate", err)
	}

	other := base
	other.ID = "mod_3"
	other.TenantID = "t2"
	if err := s.Create(ctx, other); err != nil {
		t.Errorf("other tenant should be allowed: %v", err)
	}
}

func TestModuleStore_ListPagination(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewModuleStore(db)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"mod_1", "mod_2", "mod_3"} {
		at := base.Add(time.Duration(i) * time.Minute)
		err := s.Create(ctx, module.Module{
			ID: id, TenantID: "t1", Slug: id, CreatedAt: at, UpdatedAt: at,
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	mods, total, err := s.List(ctx, "t1", 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(mods) != 2 || mods[0].ID != "mod_2" || mods[1].ID != "mod_3" {
		t.Errorf("page = %+v, want [mod_2 mod_3]", mods)
	}
}

func TestFieldStore_RoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewFieldStore(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d := field.Definition{
		ID: "fld_1", TenantID: "t1", ModuleTarget: "contratos",
		Label: "Status", Name: "status", Type: field.TypeSelect,
		Options: []string{"draft", "active", "expired"},
		Required: true, Default: "draft", Order: 3,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.Create(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetByName(ctx, "t1", "contratos", "status")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got.Type != field.TypeSelect || len(got.Options) != 3 || got.Options[1] != "active" {
		t.Errorf("options lost: %+v", got)
	}
	if got.Default != "draft" || !got.Required || got.Order != 3 {
		t.Errorf("attributes lost: %+v", got)
	}

	dup := d
	dup.ID = "fld_2"
	if err := s.Create(ctx, dup); !errors.Is(err, ports.ErrDuplicate) {
		t.Errorf("duplicate name = %v, want ErrDuplicate", err)
	}
}

func TestFieldStore_ListAndDeleteByModule(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewFieldStore(db)
	now := time.Now().UTC()

	defs := []field.Definition{
		{ID: "fld_b", TenantID: "t1", ModuleTarget: "deals", Name: "second", Type: field.TypeText, Order: 2},
		{ID: "fld_a", TenantID: "t1", ModuleTarget: "deals", Name: "first", Type: field.TypeText, Order: 1},
		{ID: "fld_c", TenantID: "t1", ModuleTarget: "other", Name: "elsewhere", Type: field.TypeText, Order: 1},
	}
	for _, d := range defs {
		d.CreatedAt, d.UpdatedAt = now, now
		if err := s.Create(ctx, d); err != nil {
			t.Fatalf("create %s: %v", d.ID, err)
		}
	}

	got, err := s.ListByModule(ctx, "t1", "deals")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Name != "first" || got[1].Name != "second" {
		t.Errorf("order wrong: %+v", got)
	}

	n, err := s.DeleteByModule(ctx, "t1", "deals")
	if err != nil {
		t.Fatalf("delete by module: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if _, err := s.Get(ctx, "fld_c"); err != nil {
		t.Errorf("other module disturbed: %v", err)
	}
}

func TestFieldStore_ListRelationshipFields(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewFieldStore(db)
	now := time.Now().UTC()

	defs := []field.Definition{
		{ID: "fld_1", TenantID: "t1", ModuleTarget: "deals", Name: "account", Type: field.TypeRelationship, RelationshipTarget: "accounts"},
		{ID: "fld_2", TenantID: "t1", ModuleTarget: "tickets", Name: "account", Type: field.TypeRelationship, RelationshipTarget: "accounts"},
		{ID: "fld_3", TenantID: "t1", ModuleTarget: "deals", Name: "contact", Type: field.TypeRelationship, RelationshipTarget: "contacts"},
		{ID: "fld_4", TenantID: "t2", ModuleTarget: "deals", Name: "account", Type: field.TypeRelationship, RelationshipTarget: "accounts"},
	}
	for _, d := range defs {
		d.CreatedAt, d.UpdatedAt = now, now
		if err := s.Create(ctx, d); err != nil {
			t.Fatalf("create %s: %v", d.ID, err)
		}
	}

	got, err := s.ListRelationshipFields(ctx, "t1", "accounts")
	if err != nil {
		t.Fatalf("list relationship fields: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d fields, want 2", len(got))
	}
	for _, d := range got {
		if d.TenantID != "t1" || d.RelationshipTarget != "accounts" {
			t.Errorf("unexpected field %+v", d)
		}
	}
}

func TestRecordStore_OptimisticUpdate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewRecordStore(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r := record.Record{
		ID: "rec_1", TenantID: "t1", ModuleTarget: "contratos", Version: 1,
		Values:    map[string]record.Value{"valor": record.Number(1500.50)},
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	r.Values["valor"] = record.Number(1800)
	updated, err := s.Update(ctx, r, 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}
	if v := updated.Values["valor"]; v.Num != 1800 {
		t.Errorf("value = %v, want 1800", v)
	}

	if _, err := s.Update(ctx, r, 1); !errors.Is(err, ports.ErrVersionConflict) {
		t.Errorf("stale update = %v, want ErrVersionConflict", err)
	}

	missing := r
	missing.ID = "rec_missing"
	if _, err := s.Update(ctx, missing, 1); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("missing update = %v, want ErrNotFound", err)
	}
}

func TestRecordStore_ListFilter(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewRecordStore(db)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []struct {
		id    string
		title string
	}{
		{"rec_1", "Acme renewal"},
		{"rec_2", "Globex onboarding"},
		{"rec_3", "ACME upsell"},
	}
	for i, row := range rows {
		at := base.Add(time.Duration(i) * time.Hour)
		err := s.Create(ctx, record.Record{
			ID: row.id, TenantID: "t1", ModuleTarget: "deals", Version: 1,
			Values:    map[string]record.Value{"title": record.Text(row.title)},
			CreatedAt: at, UpdatedAt: at,
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
		t.Fatalf("total = %d, want 2", total)
	}
	if got[0].ID != "rec_3" || got[1].ID != "rec_1" {
		t.Errorf("order = [%s %s], want newest first [rec_3 rec_1]", got[0].ID, got[1].ID)
	}
}

func TestRecordStore_StripFieldBatch(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewRecordStore(db)
	now := time.Now().UTC()

	for _, id := range []string{"rec_1", "rec_2", "rec_3"} {
		err := s.Create(ctx, record.Record{
			ID: id, TenantID: "t1", ModuleTarget: "contratos", Version: 1,
			Values: map[string]record.Value{
				"legacy": record.Text("x"),
				"keep":   record.Boolean(true),
			},
			CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	total := 0
	for {
		n, err := s.StripFieldBatch(ctx, "t1", "contratos", "legacy", 2)
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

	count, err := s.CountWithValue(ctx, "t1", "contratos", "legacy")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("records still holding legacy = %d, want 0", count)
	}
	count, _ = s.CountWithValue(ctx, "t1", "contratos", "keep")
	if count != 3 {
		t.Errorf("keep field disturbed, count = %d, want 3", count)
	}

	r, err := s.Get(ctx, "rec_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v, ok := r.Values["keep"]; !ok || v.Kind != record.KindBool || !v.Bool {
		t.Errorf("surviving value corrupted: %+v", r.Values)
	}
}

func TestRecordStore_FindReferencing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewRecordStore(db)
	now := time.Now().UTC()

	err := s.Create(ctx, record.Record{
		ID: "rec_d1", TenantID: "t1", ModuleTarget: "deals", Version: 1,
		Values:    map[string]record.Value{"account": record.Reference("acc_1")},
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Same string in a plain text field must not count as a reference.
	err = s.Create(ctx, record.Record{
		ID: "rec_d2", TenantID: "t1", ModuleTarget: "deals", Version: 1,
		Values:    map[string]record.Value{"account": record.Text("acc_1")},
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.FindReferencing(ctx, "t1", "deals", "account", "acc_1", 0, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].ID != "rec_d1" {
		t.Errorf("got %d records, want exactly rec_d1", len(got))
	}
}

func TestGenerationStore_Bump(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewGenerationStore(db)

	gen, err := s.Current(ctx, "t1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if gen != 0 {
		t.Errorf("initial generation = %d, want 0", gen)
	}

	for want := int64(1); want <= 3; want++ {
		gen, err = s.Bump(ctx, "t1")
		if err != nil {
			t.Fatalf("bump: %v", err)
		}
		if gen != want {
			t.Errorf("bump = %d, want %d", gen, want)
		}
	}

	gen, _ = s.Current(ctx, "t2")
	if gen != 0 {
		t.Errorf("other tenant generation = %d, want 0", gen)
	}
}

func TestAuditLog_Record(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	l := NewAuditLog(db)

	err := l.Record(ctx, ports.AuditEntry{
		ID: "aud_1", TenantID: "t1", ActorID: "u1",
		Action: "module.create", Entity: "module", EntityID: "mod_1",
		After: []byte(`{"slug":"contratos"}`),
		At:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var action, after string
	err = db.QueryRowContext(ctx,
		"SELECT action, after_state FROM audit_log WHERE id = ?", "aud_1").Scan(&action, &after)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if action != "module.create" || after != `{"slug":"contratos"}` {
		t.Errorf("stored action=%q after=%q", action, after)
	}
}
