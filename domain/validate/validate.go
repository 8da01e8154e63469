// Package validate converts untyped record input into schema-conformant
// canonical values, or the complete list of violations. It is the sole
// authority producing record.Value; validation is total and never stops
// at the first violation.
package validate

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/record"
)

// ReferenceChecker confirms a relationship target record exists. An
// error return means the check itself could not be performed, which
// aborts validation with relationship_unavailable; it is never treated
// as a field violation.
type ReferenceChecker interface {
	Exists(ctx context.Context, moduleTarget, recordID string) (bool, error)
}

// Violation is one schema conformance failure on one field.
type Violation struct {
	Field   string     `json:"field"`
	Code    fault.Code `json:"code"`
	Message string     `json:"message"`
	Value   any        `json:"value,omitempty"`
}

// Result holds the outcome of validating one record payload. Values is
// populated only when there are no violations.
type Result struct {
	Values     map[string]record.Value
	Violations []Violation
}

// OK reports whether the payload passed with zero violations.
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Error renders every violation, "; "-separated, for logs and errors.
func (r Result) Error() string {
	if r.OK() {
		return ""
	}
	parts := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return strings.Join(parts, "; ")
}

func (r *Result) add(fieldName string, code fault.Code, value any, message string) {
	r.Violations = append(r.Violations, Violation{
		Field:   fieldName,
		Code:    code,
		Message: message,
		Value:   value,
	})
}

// Options tunes a validation pass.
type Options struct {
	// ApplyDefaults substitutes a field's default value when the payload
	// omits it. Used on create, not on update merges (the merged map
	// already carries the stored state).
	ApplyDefaults bool
}

// Record validates raw input against the field definitions and returns
// canonical values or the full violation set. Keys in raw that match no
// definition are dropped silently. The returned error is reserved for
// infrastructure failures (reference checks that cannot complete).
func Record(ctx context.Context, defs []field.Definition, raw map[string]any, refs ReferenceChecker, opts Options) (Result, error) {
	res := Result{Values: make(map[string]record.Value, len(defs))}

	for _, def := range defs {
		value, present := raw[def.Name]

		if !present && opts.ApplyDefaults && def.Default != nil {
			value, present = def.Default, true
		}

		if !present || value == nil {
			if def.Required {
				res.add(def.Name, fault.CodeMissingRequiredField, nil, "is required")
			}
			continue
		}

		cv, viol := coerce(def, value)
		if viol != nil {
			res.Violations = append(res.Violations, *viol)
			continue
		}

		if def.Type == field.TypeRelationship {
			ok, err := refs.Exists(ctx, def.RelationshipTarget, cv.Str)
			if err != nil {
				return Result{}, fault.Wrap(fault.CodeRelationshipUnavailable, err,
					"cannot verify %s reference in %s", def.Name, def.RelationshipTarget)
			}
			if !ok {
				res.add(def.Name, fault.CodeDanglingReference, value,
					fmt.Sprintf("references a record that does not exist in %s", def.RelationshipTarget))
				continue
			}
		}

		res.Values[def.Name] = cv
	}

	if !res.OK() {
		res.Values = nil
	}
	return res, nil
}

// coerce converts one raw value into its canonical representation.
func coerce(def field.Definition, value any) (record.Value, *Violation) {
	switch def.Type {
	case field.TypeText, field.TypeTextarea:
		s, ok := asString(value)
		if !ok {
			return record.Value{}, violation(def, fault.CodeInvalidType, value, "must be text")
		}
		return record.Text(s), nil

	case field.TypeEmail:
		s, ok := asString(value)
		if !ok {
			return record.Value{}, violation(def, fault.CodeInvalidType, value, "must be text")
		}
		addr, err := mail.ParseAddress(s)
		if err != nil {
			return record.Value{}, violation(def, fault.CodeInvalidFormat, value, "is not a valid email address")
		}
		return record.Text(addr.Address), nil

	case field.TypeURL:
		s, ok := asString(value)
		if !ok {
			return record.Value{}, violation(def, fault.CodeInvalidType, value, "must be text")
		}
		u, err := url.ParseRequestURI(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return record.Value{}, violation(def, fault.CodeInvalidFormat, value, "is not a valid URL")
		}
		return record.Text(s), nil

	case field.TypeNumber:
		f, ok := asNumber(value)
		if !ok {
			return record.Value{}, violation(def, fault.CodeInvalidType, value, "must be a number")
		}
		return record.Number(f), nil

	case field.TypeBoolean:
		b, ok := asBool(value)
		if !ok {
			return record.Value{}, violation(def, fault.CodeInvalidType, value, "must be true or false")
		}
		return record.Boolean(b), nil

	case field.TypeDate:
		t, ok := asDate(value)
		if !ok {
			return record.Value{}, violation(def, fault.CodeInvalidFormat, value, "is not a valid calendar date")
		}
		return record.Date(t), nil

	case field.TypeSelect:
		s, ok := asString(value)
		if !ok || !def.HasOption(s) {
			return record.Value{}, violation(def, fault.CodeInvalidOption, value,
				fmt.Sprintf("must be one of: %s", strings.Join(def.Options, ", ")))
		}
		return record.Option(s), nil

	case field.TypeRelationship:
		s, ok := asString(value)
		if !ok || strings.TrimSpace(s) == "" {
			return record.Value{}, violation(def, fault.CodeInvalidType, value, "must be a record id")
		}
		return record.Reference(s), nil

	case field.TypeFile:
		// The upload itself lives with an external collaborator; only the
		// presence of an opaque reference is checked here.
		s, ok := asString(value)
		if !ok || strings.TrimSpace(s) == "" {
			return record.Value{}, violation(def, fault.CodeInvalidType, value, "must be a file reference")
		}
		return record.FileRef(s), nil
	}

	return record.Value{}, violation(def, fault.CodeInvalidType, value,
		fmt.Sprintf("has unsupported field type %q", def.Type))
}

func violation(def field.Definition, code fault.Code, value any, message string) *Violation {
	return &Violation{Field: def.Name, Code: code, Message: message, Value: value}
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	case float64:
		if v == 1 {
			return true, true
		}
		if v == 0 {
			return false, true
		}
	case int:
		if v == 1 {
			return true, true
		}
		if v == 0 {
			return false, true
		}
	}
	return false, false
}

// dateLayouts are accepted input formats; the canonical form is
// record.DateLayout.
var dateLayouts = []string{record.DateLayout, time.RFC3339, "02/01/2006"}

func asDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
