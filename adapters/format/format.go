// Package format provides the default plain value formatter. Locale
// aware formatting belongs to an external collaborator; this adapter
// renders values without grouping or translation.
package format

import (
	"strconv"
	"time"

	"github.com/fieldforge/fieldforge/domain/record"
	"github.com/fieldforge/fieldforge/ports"
)

// Plain renders numbers with minimal digits and dates in the canonical
// calendar layout.
type Plain struct{}

// NewPlain creates the plain formatter.
func NewPlain() *Plain { return &Plain{} }

// FormatNumber renders f with the fewest digits that round-trip.
func (*Plain) FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatDate renders t as a calendar date.
func (*Plain) FormatDate(t time.Time) string {
	return t.Format(record.DateLayout)
}

var _ ports.Formatter = (*Plain)(nil)
