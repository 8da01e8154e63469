// Package record provides record value types: one record is a data
// instance conforming to a module's field definitions at validation time.
package record

import "time"

// Record is one instance of data under a module's schema (immutable
// value type). Values holds only fields that passed validation; a field
// absent from the map is null.
type Record struct {
	ID           string
	ModuleTarget string
	TenantID     string
	OwnerID      string
	CreatedByID  string
	Version      int64 // optimistic concurrency counter, starts at 1
	Values       map[string]Value
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Value returns the value stored under the field name, if present.
func (r Record) Value(name string) (Value, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// WithValues returns a copy of r with its value map replaced.
func (r Record) WithValues(values map[string]Value) Record {
	r.Values = values
	return r
}

// CloneValues returns a shallow copy of the record's value map, never nil.
func (r Record) CloneValues() map[string]Value {
	out := make(map[string]Value, len(r.Values))
	for k, v := range r.Values {
		out[k] = v
	}
	return out
}

// Primitives returns the record's values as plain JSON-facing data,
// keyed by field name. Used when a partial update is merged over the
// stored state before full revalidation.
func (r Record) Primitives() map[string]any {
	out := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		out[k] = v.Primitive()
	}
	return out
}
