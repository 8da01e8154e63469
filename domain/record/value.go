package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the storage representation of a canonical value.
type Kind string

const (
	KindText      Kind = "text"
	KindNumber    Kind = "number"
	KindBool      Kind = "bool"
	KindDate      Kind = "date"
	KindOption    Kind = "option"
	KindReference Kind = "reference"
	KindFile      Kind = "file"
)

// DateLayout is the canonical calendar-date representation.
const DateLayout = "2006-01-02"

// Value is the tagged variant produced by validation. Only the member
// matching Kind is meaningful. The validator is the sole authority
// converting untyped input into a Value; nothing else is stored.
type Value struct {
	Kind Kind
	Str  string // text, option, reference, file
	Num  float64
	Bool bool
	Date time.Time
}

// Text creates a text value.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Boolean creates a boolean value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Date creates a calendar-date value, truncated to the day.
func Date(t time.Time) Value {
	return Value{Kind: KindDate, Date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// Option creates a select-option value.
func Option(s string) Value { return Value{Kind: KindOption, Str: s} }

// Reference creates a relationship value holding a record id.
func Reference(id string) Value { return Value{Kind: KindReference, Str: id} }

// FileRef creates an opaque file reference value.
func FileRef(ref string) Value { return Value{Kind: KindFile, Str: ref} }

// Primitive returns the plain JSON-facing representation of the value.
func (v Value) Primitive() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindDate:
		return v.Date.Format(DateLayout)
	default:
		return v.Str
	}
}

// String returns the canonical string rendering of the value.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindDate:
		return v.Date.Format(DateLayout)
	default:
		return v.Str
	}
}

// Equal reports whether two values are identical.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	case KindDate:
		return v.Date.Equal(o.Date)
	default:
		return v.Str == o.Str
	}
}

// valueJSON is the persisted wire form of a Value.
type valueJSON struct {
	Kind  Kind `json:"k"`
	Value any  `json:"v"`
}

// MarshalJSON encodes the value as {"k": kind, "v": primitive}.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{Kind: v.Kind, Value: v.Primitive()})
}

// UnmarshalJSON decodes the persisted form back into a tagged value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind  Kind            `json:"k"`
		Value json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case KindNumber:
		var f float64
		if err := json.Unmarshal(raw.Value, &f); err != nil {
			return fmt.Errorf("decode number value: %w", err)
		}
		*v = Number(f)
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw.Value, &b); err != nil {
			return fmt.Errorf("decode bool value: %w", err)
		}
		*v = Boolean(b)
	case KindDate:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("decode date value: %w", err)
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return fmt.Errorf("decode date value: %w", err)
		}
		*v = Date(t)
	case KindText, KindOption, KindReference, KindFile:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("decode %s value: %w", raw.Kind, err)
		}
		*v = Value{Kind: raw.Kind, Str: s}
	default:
		return fmt.Errorf("unknown value kind %q", raw.Kind)
	}
	return nil
}
