package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/domain/record"
	"github.com/fieldforge/fieldforge/ports"
)

// exportPageSize bounds one store read during an export.
const exportPageSize = 500

// Table is a rendered tabular view of a module's records.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Exporter renders a module's records as a table of canonical strings.
type Exporter struct {
	records   ports.RecordStore
	snapshots *SnapshotLoader
	formatter ports.Formatter
	logger    zerolog.Logger
}

// NewExporter creates an exporter.
func NewExporter(records ports.RecordStore, snapshots *SnapshotLoader, formatter ports.Formatter, logger zerolog.Logger) *Exporter {
	return &Exporter{
		records:   records,
		snapshots: snapshots,
		formatter: formatter,
		logger:    logger.With().Str("service", "export").Logger(),
	}
}

// Export renders the module's records, newest first. fieldNames selects
// and orders the columns; when empty every field is exported in display
// order. Headers carry the field labels. A null value renders as the
// empty string.
func (e *Exporter) Export(ctx context.Context, moduleSlug string, fieldNames []string) (Table, error) {
	tctx, err := scope(ctx)
	if err != nil {
		return Table{}, err
	}

	snap, err := e.snapshots.Load(ctx, tctx.TenantID)
	if err != nil {
		return Table{}, fmt.Errorf("load schema: %w", err)
	}
	if _, ok := snap.Module(moduleSlug); !ok {
		return Table{}, fault.New(fault.CodeNotFound, "module %q not found", moduleSlug)
	}

	defs := snap.Fields[moduleSlug]
	columns, err := selectColumns(defs, fieldNames)
	if err != nil {
		return Table{}, err
	}

	table := Table{Headers: make([]string, len(columns))}
	for i, def := range columns {
		table.Headers[i] = def.Label
	}

	for offset := 0; ; offset += exportPageSize {
		if err := ctx.Err(); err != nil {
			return Table{}, err
		}
		page, _, err := e.records.List(ctx, ports.RecordQuery{
			TenantID:     tctx.TenantID,
			ModuleTarget: moduleSlug,
			Limit:        exportPageSize,
			Offset:       offset,
		})
		if err != nil {
			return Table{}, fmt.Errorf("list records: %w", err)
		}
		for _, rec := range page {
			row := make([]string, len(columns))
			for i, def := range columns {
				row[i] = e.cell(rec, def)
			}
			table.Rows = append(table.Rows, row)
		}
		if len(page) < exportPageSize {
			break
		}
	}
	return table, nil
}

func selectColumns(defs []field.Definition, fieldNames []string) ([]field.Definition, error) {
	if len(fieldNames) == 0 {
		return defs, nil
	}
	byName := field.ByName(defs)
	columns := make([]field.Definition, 0, len(fieldNames))
	for _, name := range fieldNames {
		def, ok := byName[name]
		if !ok {
			return nil, fault.OnField(fault.CodeNotFound, name, "field %q not found", name)
		}
		columns = append(columns, def)
	}
	return columns, nil
}

func (e *Exporter) cell(rec record.Record, def field.Definition) string {
	v, ok := rec.Value(def.Name)
	if !ok {
		return ""
	}
	switch v.Kind {
	case record.KindNumber:
		return e.formatter.FormatNumber(v.Num)
	case record.KindDate:
		return e.formatter.FormatDate(v.Date)
	case record.KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}
