// Package field provides field definition value types and the closed
// registry of supported field types.
package field

import (
	"sort"
	"time"
)

// Type represents the type of a field definition.
type Type string

const (
	TypeText         Type = "text"
	TypeNumber       Type = "number"
	TypeEmail        Type = "email"
	TypeDate         Type = "date"
	TypeBoolean      Type = "boolean"
	TypeSelect       Type = "select"
	TypeTextarea     Type = "textarea"
	TypeFile         Type = "file"
	TypeURL          Type = "url"
	TypeRelationship Type = "relationship"
)

// Types lists every supported field type. The set is closed: schema
// definitions referencing anything else are rejected.
func Types() []Type {
	return []Type{
		TypeText, TypeNumber, TypeEmail, TypeDate, TypeBoolean,
		TypeSelect, TypeTextarea, TypeFile, TypeURL, TypeRelationship,
	}
}

// IsValid reports whether t is a member of the registry.
func (t Type) IsValid() bool {
	switch t {
	case TypeText, TypeNumber, TypeEmail, TypeDate, TypeBoolean,
		TypeSelect, TypeTextarea, TypeFile, TypeURL, TypeRelationship:
		return true
	}
	return false
}

// Definition describes one attribute of a module (immutable value type).
// ModuleTarget is the owning module's slug, which may name a native
// module the engine does not store itself.
type Definition struct {
	ID                 string
	TenantID           string
	ModuleTarget       string
	Label              string
	Name               string // slug, unique within ModuleTarget, fixed after creation
	Type               Type
	Options            []string // select only, ordered
	Required           bool
	Default            any
	Order              int
	RelationshipTarget string // relationship only
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasOption reports whether v is one of the definition's options.
func (d Definition) HasOption(v string) bool {
	for _, o := range d.Options {
		if o == v {
			return true
		}
	}
	return false
}

// Patch describes a partial field definition update. Name is immutable;
// Type changes are subject to the populated-field lock enforced by the
// field service.
type Patch struct {
	Label              *string
	Type               *Type
	Options            []string
	Required           *bool
	Default            any
	HasDefault         bool
	Order              *int
	RelationshipTarget *string
}

// Apply returns a copy of d with the patch applied.
func (p Patch) Apply(d Definition) Definition {
	if p.Label != nil {
		d.Label = *p.Label
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.Options != nil {
		d.Options = append([]string(nil), p.Options...)
	}
	if p.Required != nil {
		d.Required = *p.Required
	}
	if p.HasDefault {
		d.Default = p.Default
	}
	if p.Order != nil {
		d.Order = *p.Order
	}
	if p.RelationshipTarget != nil {
		d.RelationshipTarget = *p.RelationshipTarget
	}
	return d
}

// Sort orders definitions by Order ascending, breaking ties by ID. The
// slice is sorted in place and returned for convenience.
func Sort(defs []Definition) []Definition {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Order != defs[j].Order {
			return defs[i].Order < defs[j].Order
		}
		return defs[i].ID < defs[j].ID
	})
	return defs
}

// NextOrder returns the order value for a field appended after defs.
func NextOrder(defs []Definition) int {
	max := 0
	for _, d := range defs {
		if d.Order > max {
			max = d.Order
		}
	}
	return max + 1
}

// ByName indexes definitions by field name.
func ByName(defs []Definition) map[string]Definition {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return m
}
