// Package module provides custom module value types and pure functions.
// A module is a tenant-defined entity type, analogous to a table whose
// schema is edited at runtime.
package module

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Module represents a tenant-scoped custom entity type (immutable value type).
type Module struct {
	ID          string
	TenantID    string
	Name        string
	Slug        string // unique within tenant, fixed after creation
	Description string
	Icon        string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Patch describes a partial module update. Nil pointers leave the
// current value untouched. Slug is deliberately absent: it is immutable.
type Patch struct {
	Name        *string
	Description *string
	Icon        *string
	IsActive    *bool
}

// Apply returns a copy of m with the patch applied.
func (p Patch) Apply(m Module) Module {
	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Icon != nil {
		m.Icon = *p.Icon
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
	return m
}

// maxSlugLen caps derived slugs; explicit slugs are validated against it too.
const maxSlugLen = 60

// Slugify derives a storage identifier from a display name:
// lowercase, diacritics stripped, every run of non-alphanumeric
// characters collapsed to a single underscore, no leading or trailing
// underscore. Returns "" when nothing usable remains.
func Slugify(name string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	pendingSep := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining mark left over from NFD decomposition.
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}

	slug := b.String()
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "_")
	}
	return slug
}

// ValidSlug reports whether s is an acceptable explicit slug.
func ValidSlug(s string) bool {
	return s != "" && len(s) <= maxSlugLen && s == Slugify(s)
}
