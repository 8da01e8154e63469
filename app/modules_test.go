package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/module"
)

func TestModuleService_CreateDerivesSlug(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	m, err := e.moduleSvc.Create(ctx, app.CreateModuleInput{Name: "Área de Projetos"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if m.Slug != "area_de_projetos" {
		t.Errorf("Slug = %q, want area_de_projetos", m.Slug)
	}
	if !m.IsActive {
		t.Error("new module should start active")
	}
	if m.ID == "" {
		t.Error("module ID not assigned")
	}
}

func TestModuleService_CreateExplicitSlug(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	m, err := e.moduleSvc.Create(ctx, app.CreateModuleInput{Name: "Projects", Slug: "projects_v2"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if m.Slug != "projects_v2" {
		t.Errorf("Slug = %q, want projects_v2", m.Slug)
	}

	_, err = e.moduleSvc.Create(ctx, app.CreateModuleInput{Name: "Bad", Slug: "Not A Slug"})
	if !fault.Is(err, fault.CodeInvalidFormat) {
		t.Errorf("invalid explicit slug: got %v, want invalid_format", err)
	}
}

func TestModuleService_DuplicateSlug(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	if _, err := e.moduleSvc.Create(ctx, app.CreateModuleInput{Name: "Projects"}); err != nil {
		t.Fatalf("first Create error: %v", err)
	}
	_, err := e.moduleSvc.Create(ctx, app.CreateModuleInput{Name: "Projects"})
	if !fault.Is(err, fault.CodeDuplicateSlug) {
		t.Errorf("second Create: got %v, want duplicate_slug", err)
	}

	// Same slug under another tenant is fine.
	if _, err := e.moduleSvc.Create(testCtx("t2", "u9"), app.CreateModuleInput{Name: "Projects"}); err != nil {
		t.Errorf("cross-tenant Create error: %v", err)
	}
}

func TestModuleService_NativeSlugReserved(t *testing.T) {
	e := newEnv(t)

	_, err := e.moduleSvc.Create(testCtx("t1", "u1"), app.CreateModuleInput{Name: "Leads"})
	if !fault.Is(err, fault.CodeDuplicateSlug) {
		t.Errorf("got %v, want duplicate_slug for native slug", err)
	}
}

func TestModuleService_Update(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	m, err := e.moduleSvc.Create(ctx, app.CreateModuleInput{Name: "Projects"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	e.clock.Advance(time.Hour)
	updated, err := e.moduleSvc.Update(ctx, m.ID, module.Patch{
		Name:        strPtr("Projects 2.0"),
		Description: strPtr("renamed"),
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Name != "Projects 2.0" || updated.Description != "renamed" {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Slug != "projects" {
		t.Errorf("slug changed on update: %q", updated.Slug)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Error("UpdatedAt not advanced")
	}
}

func TestModuleService_Deactivate(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	m, err := e.moduleSvc.Create(ctx, app.CreateModuleInput{Name: "Projects"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	off, err := e.moduleSvc.Deactivate(ctx, m.ID)
	if err != nil {
		t.Fatalf("Deactivate error: %v", err)
	}
	if off.IsActive {
		t.Error("module still active")
	}

	// Reactivation goes through Update.
	on, err := e.moduleSvc.Update(ctx, m.ID, module.Patch{IsActive: boolPtr(true)})
	if err != nil {
		t.Fatalf("reactivate error: %v", err)
	}
	if !on.IsActive {
		t.Error("module not reactivated")
	}
}

func TestModuleService_CrossTenantAccess(t *testing.T) {
	e := newEnv(t)

	m, err := e.moduleSvc.Create(testCtx("t1", "u1"), app.CreateModuleInput{Name: "Projects"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	_, err = e.moduleSvc.Get(testCtx("t2", "u9"), m.ID)
	if !fault.Is(err, fault.CodeForbidden) {
		t.Errorf("foreign Get: got %v, want forbidden", err)
	}
	if _, err := e.moduleSvc.Delete(testCtx("t2", "u9"), m.ID); !fault.Is(err, fault.CodeForbidden) {
		t.Errorf("foreign Delete: got %v, want forbidden", err)
	}
}

func TestModuleService_DeleteCascades(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	m := mustCreateModule(t, e, ctx, "Projects")
	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Title", Type: field.TypeText})
	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Budget", Type: field.TypeNumber})

	for i := 0; i < 5; i++ {
		mustCreateRecord(t, e, ctx, "projects", map[string]any{"title": fmt.Sprintf("p%d", i)})
	}

	result, err := e.moduleSvc.Delete(ctx, m.ID)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if result.FieldsRemoved != 2 {
		t.Errorf("FieldsRemoved = %d, want 2", result.FieldsRemoved)
	}
	if result.RecordsDeleted != 5 {
		t.Errorf("RecordsDeleted = %d, want 5", result.RecordsDeleted)
	}
	// Batch size is 2, so 5 records need 3 batches.
	if result.Batches != 3 {
		t.Errorf("Batches = %d, want 3", result.Batches)
	}
	if e.records.Len() != 0 {
		t.Errorf("%d records left after cascade", e.records.Len())
	}
	if _, err := e.moduleSvc.Get(ctx, m.ID); !fault.Is(err, fault.CodeNotFound) {
		t.Errorf("module still resolvable after delete: %v", err)
	}
}

func TestModuleService_DeletePartialFailure(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	m := mustCreateModule(t, e, ctx, "Projects")
	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Title", Type: field.TypeText})

	var recIDs []string
	for i := 0; i < 4; i++ {
		rec := mustCreateRecord(t, e, ctx, "projects", map[string]any{"title": fmt.Sprintf("p%d", i)})
		recIDs = append(recIDs, rec.ID)
	}
	e.records.FailDeletes(recIDs[1])

	result, err := e.moduleSvc.Delete(ctx, m.ID)
	if err == nil {
		t.Fatal("Delete should fail when a batch partially fails")
	}
	if len(result.FailedIDs) != 1 || result.FailedIDs[0] != recIDs[1] {
		t.Errorf("FailedIDs = %v, want [%s]", result.FailedIDs, recIDs[1])
	}
	if result.RecordsDeleted != 1 {
		t.Errorf("RecordsDeleted = %d, want 1 from the aborted batch", result.RecordsDeleted)
	}

	// The module row survives so the cascade can be retried.
	if _, err := e.moduleSvc.Get(ctx, m.ID); err != nil {
		t.Errorf("module gone after aborted cascade: %v", err)
	}
}

func TestModuleService_DeleteHonorsCancellation(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	m := mustCreateModule(t, e, ctx, "Projects")
	mustCreateRecord(t, e, ctx, "projects", nil)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	if _, err := e.moduleSvc.Delete(cancelled, m.ID); err == nil {
		t.Error("Delete should stop on a cancelled context")
	}
}

func TestModuleService_ListPagination(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	for i := 0; i < 4; i++ {
		mustCreateModule(t, e, ctx, fmt.Sprintf("Module %d", i))
		e.clock.Advance(time.Minute)
	}
	mustCreateModule(t, e, testCtx("t2", "u9"), "Other Tenant")

	mods, total, err := e.moduleSvc.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if len(mods) != 2 || mods[0].Name != "Module 1" || mods[1].Name != "Module 2" {
		t.Errorf("page = %v, want modules 1 and 2 in creation order", mods)
	}
}

func TestModuleService_MutationsAreAudited(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	m := mustCreateModule(t, e, ctx, "Projects")
	if _, err := e.moduleSvc.Update(ctx, m.ID, module.Patch{Name: strPtr("Renamed")}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if _, err := e.moduleSvc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	entries := e.audit.Entries()
	if len(entries) != 3 {
		t.Fatalf("audit entries = %d, want 3", len(entries))
	}
	wantActions := []string{"module.create", "module.update", "module.delete"}
	for i, want := range wantActions {
		if entries[i].Action != want {
			t.Errorf("entry %d action = %q, want %q", i, entries[i].Action, want)
		}
		if entries[i].ActorID != "u1" || entries[i].TenantID != "t1" {
			t.Errorf("entry %d scope = %s/%s", i, entries[i].TenantID, entries[i].ActorID)
		}
	}
	if entries[0].Before != nil {
		t.Error("create entry should have no before state")
	}
	if entries[2].After != nil {
		t.Error("delete entry should have no after state")
	}

	gen, err := e.gens.Current(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if gen != 3 {
		t.Errorf("schema generation = %d, want 3 after three mutations", gen)
	}
}

// Helpers shared by the app tests.

func mustCreateModule(t *testing.T, e *env, ctx context.Context, name string) module.Module {
	t.Helper()
	m, err := e.moduleSvc.Create(ctx, app.CreateModuleInput{Name: name})
	if err != nil {
		t.Fatalf("create module %q: %v", name, err)
	}
	return m
}

func mustAddField(t *testing.T, e *env, ctx context.Context, in app.AddFieldInput) field.Definition {
	t.Helper()
	d, err := e.fieldSvc.Add(ctx, in)
	if err != nil {
		t.Fatalf("add field %q: %v", in.Label, err)
	}
	return d
}
