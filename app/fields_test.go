package app_test

import (
	"fmt"
	"testing"

	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/field"
)

func TestFieldService_AddDerivesNameAndOrder(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")

	first, err := e.fieldSvc.Add(ctx, app.AddFieldInput{
		ModuleTarget: "projects",
		Label:        "Project Title",
		Type:         field.TypeText,
		Required:     true,
	})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if first.Name != "project_title" {
		t.Errorf("Name = %q, want project_title", first.Name)
	}
	if first.Order != 1 {
		t.Errorf("Order = %d, want 1", first.Order)
	}

	second, err := e.fieldSvc.Add(ctx, app.AddFieldInput{
		ModuleTarget: "projects",
		Label:        "Budget",
		Type:         field.TypeNumber,
	})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if second.Order != 2 {
		t.Errorf("Order = %d, want 2 (appended after existing fields)", second.Order)
	}
}

func TestFieldService_AddRejectsBadShapes(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")

	tests := []struct {
		name string
		in   app.AddFieldInput
		want fault.Code
	}{
		{
			name: "unknown type",
			in:   app.AddFieldInput{ModuleTarget: "projects", Label: "X", Type: "geopoint"},
			want: fault.CodeInvalidFieldType,
		},
		{
			name: "select without options",
			in:   app.AddFieldInput{ModuleTarget: "projects", Label: "Status", Type: field.TypeSelect},
			want: fault.CodeMissingOptions,
		},
		{
			name: "relationship without target",
			in:   app.AddFieldInput{ModuleTarget: "projects", Label: "Owner", Type: field.TypeRelationship},
			want: fault.CodeUnknownRelationshipTarget,
		},
		{
			name: "relationship to unknown module",
			in: app.AddFieldInput{
				ModuleTarget: "projects", Label: "Owner",
				Type: field.TypeRelationship, RelationshipTarget: "ghosts",
			},
			want: fault.CodeUnknownRelationshipTarget,
		},
		{
			name: "unknown module target",
			in:   app.AddFieldInput{ModuleTarget: "nope", Label: "X", Type: field.TypeText},
			want: fault.CodeNotFound,
		},
		{
			name: "empty label",
			in:   app.AddFieldInput{ModuleTarget: "projects", Label: "   ", Type: field.TypeText},
			want: fault.CodeInvalidFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.fieldSvc.Add(ctx, tt.in)
			if !fault.Is(err, tt.want) {
				t.Errorf("got %v, want %s", err, tt.want)
			}
		})
	}
}

func TestFieldService_RelationshipTargets(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")
	mustCreateModule(t, e, ctx, "Tasks")

	// Both custom modules and native entities are valid targets.
	for _, target := range []string{"projects", "accounts"} {
		_, err := e.fieldSvc.Add(ctx, app.AddFieldInput{
			ModuleTarget:       "tasks",
			Label:              "Link to " + target,
			Type:               field.TypeRelationship,
			RelationshipTarget: target,
		})
		if err != nil {
			t.Errorf("relationship to %s: %v", target, err)
		}
	}
}

func TestFieldService_NativeModulesOwnFields(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")

	d, err := e.fieldSvc.Add(ctx, app.AddFieldInput{
		ModuleTarget: "leads",
		Label:        "Lead Score",
		Type:         field.TypeNumber,
	})
	if err != nil {
		t.Fatalf("Add on native module error: %v", err)
	}
	if d.ModuleTarget != "leads" {
		t.Errorf("ModuleTarget = %q", d.ModuleTarget)
	}

	defs, err := e.fieldSvc.List(ctx, "leads")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(defs) != 1 {
		t.Errorf("len(defs) = %d, want 1", len(defs))
	}
}

func TestFieldService_DuplicateName(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")
	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Title", Type: field.TypeText})

	_, err := e.fieldSvc.Add(ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Title", Type: field.TypeTextarea})
	if !fault.Is(err, fault.CodeDuplicateFieldName) {
		t.Errorf("got %v, want duplicate_field_name", err)
	}

	// Same name under another module of the tenant is fine.
	mustCreateModule(t, e, ctx, "Tasks")
	if _, err := e.fieldSvc.Add(ctx, app.AddFieldInput{ModuleTarget: "tasks", Label: "Title", Type: field.TypeText}); err != nil {
		t.Errorf("same name on another module: %v", err)
	}
}

func TestFieldService_TypeChangeLock(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")
	d := mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Budget", Type: field.TypeText})

	// No record holds a value yet, so the type may still change.
	numberType := field.TypeNumber
	updated, err := e.fieldSvc.Update(ctx, d.ID, field.Patch{Type: &numberType})
	if err != nil {
		t.Fatalf("Update on unpopulated field error: %v", err)
	}
	if updated.Type != field.TypeNumber {
		t.Errorf("Type = %s, want number", updated.Type)
	}

	mustCreateRecord(t, e, ctx, "projects", map[string]any{"budget": 1200.50})

	textType := field.TypeText
	_, err = e.fieldSvc.Update(ctx, d.ID, field.Patch{Type: &textType})
	if !fault.Is(err, fault.CodeFieldTypeLocked) {
		t.Errorf("got %v, want field_type_locked", err)
	}

	// Other attributes stay patchable.
	if _, err := e.fieldSvc.Update(ctx, d.ID, field.Patch{Label: strPtr("Total Budget")}); err != nil {
		t.Errorf("label patch on populated field: %v", err)
	}
}

func TestFieldService_RemoveInUse(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")
	d := mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Title", Type: field.TypeText})
	keep := mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Notes", Type: field.TypeTextarea})

	var ids []string
	for i := 0; i < 5; i++ {
		rec := mustCreateRecord(t, e, ctx, "projects", map[string]any{
			"title": fmt.Sprintf("p%d", i),
			"notes": "keep me",
		})
		ids = append(ids, rec.ID)
	}

	if err := e.fieldSvc.Remove(ctx, d.ID, false); !fault.Is(err, fault.CodeFieldInUse) {
		t.Fatalf("Remove without force: got %v, want field_in_use", err)
	}

	// Force strips the key from every record, batch size 2 over 5 records.
	if err := e.fieldSvc.Remove(ctx, d.ID, true); err != nil {
		t.Fatalf("forced Remove error: %v", err)
	}

	for _, id := range ids {
		rec, err := e.recordSvc.Get(ctx, "projects", id)
		if err != nil {
			t.Fatalf("Get after strip: %v", err)
		}
		if _, ok := rec.Value("title"); ok {
			t.Errorf("record %s still holds stripped field", id)
		}
		if v, ok := rec.Value("notes"); !ok || v.Str != "keep me" {
			t.Errorf("record %s lost unrelated field", id)
		}
	}

	if _, err := e.fieldSvc.Get(ctx, d.ID); !fault.Is(err, fault.CodeNotFound) {
		t.Errorf("definition still resolvable after remove: %v", err)
	}
	if _, err := e.fieldSvc.Get(ctx, keep.ID); err != nil {
		t.Errorf("unrelated definition gone: %v", err)
	}
}

func TestFieldService_ListOrder(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")

	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Third", Type: field.TypeText, Order: 30})
	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "First", Type: field.TypeText, Order: 10})
	mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Second", Type: field.TypeText, Order: 20})

	defs, err := e.fieldSvc.List(ctx, "projects")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	var labels []string
	for _, d := range defs {
		labels = append(labels, d.Label)
	}
	want := []string{"First", "Second", "Third"}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("order = %v, want %v", labels, want)
		}
	}
}

func TestFieldService_MutationsAreAudited(t *testing.T) {
	e := newEnv(t)
	ctx := testCtx("t1", "u1")
	mustCreateModule(t, e, ctx, "Projects")
	d := mustAddField(t, e, ctx, app.AddFieldInput{ModuleTarget: "projects", Label: "Title", Type: field.TypeText})

	if _, err := e.fieldSvc.Update(ctx, d.ID, field.Patch{Label: strPtr("Name")}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := e.fieldSvc.Remove(ctx, d.ID, false); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	var actions []string
	for _, entry := range e.audit.Entries() {
		if entry.Entity == "field" {
			actions = append(actions, entry.Action)
		}
	}
	want := []string{"field.create", "field.update", "field.remove"}
	if len(actions) != len(want) {
		t.Fatalf("field audit actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("action %d = %q, want %q", i, actions[i], want[i])
		}
	}
}
