package validate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/record"
	"github.com/fieldforge/fieldforge/domain/validate"
)

// stubChecker resolves references from a fixed set.
type stubChecker struct {
	existing map[string]bool
	err      error
}

func (s stubChecker) Exists(_ context.Context, moduleTarget, recordID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.existing[moduleTarget+"/"+recordID], nil
}

func contractFields() []field.Definition {
	return []field.Definition{
		{ID: "f1", Name: "valor", Label: "Valor", Type: field.TypeNumber, Required: true, Order: 1},
		{ID: "f2", Name: "status", Label: "Status", Type: field.TypeSelect, Options: []string{"draft", "signed"}, Required: true, Order: 2},
	}
}

func TestRecord_ValidPayload(t *testing.T) {
	res, err := validate.Record(context.Background(), contractFields(),
		map[string]any{"valor": 1000, "status": "signed"}, stubChecker{}, validate.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected success, got violations: %s", res.Error())
	}
	if !res.Values["valor"].Equal(record.Number(1000)) {
		t.Errorf("valor = %+v, want number 1000", res.Values["valor"])
	}
	if !res.Values["status"].Equal(record.Option("signed")) {
		t.Errorf("status = %+v, want option signed", res.Values["status"])
	}
}

func TestRecord_CollectsEveryViolation(t *testing.T) {
	res, err := validate.Record(context.Background(), contractFields(),
		map[string]any{"valor": "abc", "status": "pending"}, stubChecker{}, validate.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Violations) != 2 {
		t.Fatalf("violations = %d, want 2 (%s)", len(res.Violations), res.Error())
	}
	byField := map[string]fault.Code{}
	for _, v := range res.Violations {
		byField[v.Field] = v.Code
	}
	if byField["valor"] != fault.CodeInvalidType {
		t.Errorf("valor code = %s, want invalid_type", byField["valor"])
	}
	if byField["status"] != fault.CodeInvalidOption {
		t.Errorf("status code = %s, want invalid_option", byField["status"])
	}
	if res.Values != nil {
		t.Error("Values must be nil when violations exist")
	}
}

func TestRecord_MissingRequired(t *testing.T) {
	res, _ := validate.Record(context.Background(), contractFields(),
		map[string]any{}, stubChecker{}, validate.Options{})

	if len(res.Violations) != 2 {
		t.Fatalf("violations = %d, want 2", len(res.Violations))
	}
	for _, v := range res.Violations {
		if v.Code != fault.CodeMissingRequiredField {
			t.Errorf("%s code = %s, want missing_required_field", v.Field, v.Code)
		}
	}
}

func TestRecord_UnknownKeysDroppedSilently(t *testing.T) {
	res, _ := validate.Record(context.Background(), contractFields(),
		map[string]any{"valor": 10, "status": "draft", "ghost": "x"}, stubChecker{}, validate.Options{})

	if !res.OK() {
		t.Fatalf("unexpected violations: %s", res.Error())
	}
	if _, ok := res.Values["ghost"]; ok {
		t.Error("unknown key must not appear in clean values")
	}
}

func TestRecord_DefaultsAppliedOnCreate(t *testing.T) {
	defs := []field.Definition{
		{ID: "f1", Name: "status", Type: field.TypeSelect, Options: []string{"draft", "signed"}, Required: true, Default: "draft"},
	}

	res, _ := validate.Record(context.Background(), defs, map[string]any{}, stubChecker{}, validate.Options{ApplyDefaults: true})
	if !res.OK() {
		t.Fatalf("default should satisfy required field: %s", res.Error())
	}
	if !res.Values["status"].Equal(record.Option("draft")) {
		t.Errorf("status = %+v, want default draft", res.Values["status"])
	}

	res, _ = validate.Record(context.Background(), defs, map[string]any{}, stubChecker{}, validate.Options{})
	if res.OK() {
		t.Error("without ApplyDefaults the required field must be reported missing")
	}
}

func TestRecord_Relationship(t *testing.T) {
	defs := []field.Definition{
		{ID: "f1", Name: "account", Type: field.TypeRelationship, RelationshipTarget: "accounts"},
	}
	refs := stubChecker{existing: map[string]bool{"accounts/acc_1": true}}

	t.Run("existing id passes", func(t *testing.T) {
		res, err := validate.Record(context.Background(), defs, map[string]any{"account": "acc_1"}, refs, validate.Options{})
		if err != nil || !res.OK() {
			t.Fatalf("err=%v violations=%s", err, res.Error())
		}
		if !res.Values["account"].Equal(record.Reference("acc_1")) {
			t.Errorf("account = %+v", res.Values["account"])
		}
	})

	t.Run("dangling id is a violation", func(t *testing.T) {
		res, err := validate.Record(context.Background(), defs, map[string]any{"account": "nonexistent-id"}, refs, validate.Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Violations) != 1 || res.Violations[0].Code != fault.CodeDanglingReference {
			t.Fatalf("violations = %+v, want one dangling_reference", res.Violations)
		}
	})

	t.Run("null short-circuits for optional field", func(t *testing.T) {
		res, err := validate.Record(context.Background(), defs, map[string]any{"account": nil}, refs, validate.Options{})
		if err != nil || !res.OK() {
			t.Fatalf("err=%v violations=%s", err, res.Error())
		}
		if _, ok := res.Values["account"]; ok {
			t.Error("null value must clear the field, not store it")
		}
	})

	t.Run("checker failure aborts with relationship_unavailable", func(t *testing.T) {
		down := stubChecker{err: errors.New("dial tcp: timeout")}
		_, err := validate.Record(context.Background(), defs, map[string]any{"account": "acc_1"}, down, validate.Options{})
		if !fault.Is(err, fault.CodeRelationshipUnavailable) {
			t.Fatalf("err = %v, want relationship_unavailable", err)
		}
	})
}

func TestRecord_Coercions(t *testing.T) {
	defs := []field.Definition{
		{Name: "title", Type: field.TypeText},
		{Name: "notes", Type: field.TypeTextarea},
		{Name: "email", Type: field.TypeEmail},
		{Name: "site", Type: field.TypeURL},
		{Name: "amount", Type: field.TypeNumber},
		{Name: "open", Type: field.TypeBoolean},
		{Name: "due", Type: field.TypeDate},
		{Name: "doc", Type: field.TypeFile},
	}

	raw := map[string]any{
		"title":  "Deal",
		"notes":  42,
		"email":  "ana@example.com",
		"site":   "https://example.com/x",
		"amount": "1500.50",
		"open":   "1",
		"due":    "2026-04-01",
		"doc":    "uploads/contract.pdf",
	}

	res, err := validate.Record(context.Background(), defs, raw, stubChecker{}, validate.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("unexpected violations: %s", res.Error())
	}

	if res.Values["notes"].Str != "42" {
		t.Errorf("notes = %q, want coerced string 42", res.Values["notes"].Str)
	}
	if res.Values["amount"].Num != 1500.50 {
		t.Errorf("amount = %v, want 1500.50", res.Values["amount"].Num)
	}
	if !res.Values["open"].Bool {
		t.Error("open should coerce to true")
	}
	if res.Values["due"].String() != "2026-04-01" {
		t.Errorf("due = %s, want 2026-04-01", res.Values["due"].String())
	}
}

func TestRecord_FormatViolations(t *testing.T) {
	defs := []field.Definition{
		{Name: "email", Type: field.TypeEmail},
		{Name: "site", Type: field.TypeURL},
		{Name: "due", Type: field.TypeDate},
		{Name: "open", Type: field.TypeBoolean},
	}

	raw := map[string]any{
		"email": "not-an-email",
		"site":  "nope",
		"due":   "soon",
		"open":  "maybe",
	}

	res, _ := validate.Record(context.Background(), defs, raw, stubChecker{}, validate.Options{})
	if len(res.Violations) != 4 {
		t.Fatalf("violations = %d, want 4 (%s)", len(res.Violations), res.Error())
	}

	want := map[string]fault.Code{
		"email": fault.CodeInvalidFormat,
		"site":  fault.CodeInvalidFormat,
		"due":   fault.CodeInvalidFormat,
		"open":  fault.CodeInvalidType,
	}
	for _, v := range res.Violations {
		if want[v.Field] != v.Code {
			t.Errorf("%s code = %s, want %s", v.Field, v.Code, want[v.Field])
		}
	}
}
