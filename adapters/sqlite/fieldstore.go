package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/ports"
)

// FieldStore is a SQLite implementation of ports.FieldStore.
// Options and default values are stored as JSON text.
type FieldStore struct {
	db *DB
}

// NewFieldStore creates a new SQLite field store.
func NewFieldStore(db *DB) *FieldStore {
	return &FieldStore{db: db}
}

const fieldColumns = `id, tenant_id, module_target, field_label, field_name, field_type,
	options, required, default_value, display_order, relationship_target, created_at, updated_at`

// Create stores a new definition.
func (s *FieldStore) Create(ctx context.Context, d field.Definition) error {
	options, defaultValue, err := encodeFieldExtras(d)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO field_definitions (`+fieldColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TenantID, d.ModuleTarget, d.Label, d.Name, string(d.Type),
		options, d.Required, defaultValue, d.Order, d.RelationshipTarget, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isConstraintErr(err) {
			return ports.ErrDuplicate
		}
		return fmt.Errorf("insert field definition: %w", err)
	}
	return nil
}

// Get retrieves a definition by ID.
func (s *FieldStore) Get(ctx context.Context, id string) (field.Definition, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+fieldColumns+" FROM field_definitions WHERE id = ?", id)
	return scanField(row)
}

// GetByName retrieves a definition by module target and field name.
func (s *FieldStore) GetByName(ctx context.Context, tenantID, moduleTarget, name string) (field.Definition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fieldColumns+` FROM field_definitions
		WHERE tenant_id = ? AND module_target = ? AND field_name = ?`,
		tenantID, moduleTarget, name)
	return scanField(row)
}

// Update modifies an existing definition. Name is immutable and not written.
func (s *FieldStore) Update(ctx context.Context, d field.Definition) error {
	options, defaultValue, err := encodeFieldExtras(d)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE field_definitions
		SET field_label = ?, field_type = ?, options = ?, required = ?,
			default_value = ?, display_order = ?, relationship_target = ?, updated_at = ?
		WHERE id = ?`,
		d.Label, string(d.Type), options, d.Required,
		defaultValue, d.Order, d.RelationshipTarget, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update field definition: %w", err)
	}
	return checkAffected(result)
}

// Delete removes a definition.
func (s *FieldStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM field_definitions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete field definition: %w", err)
	}
	return checkAffected(result)
}

// ListByModule returns a module target's definitions in display order.
func (s *FieldStore) ListByModule(ctx context.Context, tenantID, moduleTarget string) ([]field.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fieldColumns+` FROM field_definitions
		WHERE tenant_id = ? AND module_target = ?
		ORDER BY display_order, id`,
		tenantID, moduleTarget)
	if err != nil {
		return nil, fmt.Errorf("list field definitions: %w", err)
	}
	return collectFields(rows)
}

// DeleteByModule removes every definition of a module target.
func (s *FieldStore) DeleteByModule(ctx context.Context, tenantID, moduleTarget string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM field_definitions WHERE tenant_id = ? AND module_target = ?",
		tenantID, moduleTarget)
	if err != nil {
		return 0, fmt.Errorf("delete field definitions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// ListRelationshipFields returns relationship definitions pointing at the target.
func (s *FieldStore) ListRelationshipFields(ctx context.Context, tenantID, relationshipTarget string) ([]field.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fieldColumns+` FROM field_definitions
		WHERE tenant_id = ? AND field_type = ? AND relationship_target = ?
		ORDER BY module_target, display_order, id`,
		tenantID, string(field.TypeRelationship), relationshipTarget)
	if err != nil {
		return nil, fmt.Errorf("list relationship fields: %w", err)
	}
	return collectFields(rows)
}

func encodeFieldExtras(d field.Definition) (options string, defaultValue sql.NullString, err error) {
	opts := d.Options
	if opts == nil {
		opts = []string{}
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode options: %w", err)
	}
	options = string(raw)

	if d.Default != nil {
		raw, err := json.Marshal(d.Default)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("encode default value: %w", err)
		}
		defaultValue = sql.NullString{String: string(raw), Valid: true}
	}
	return options, defaultValue, nil
}

func scanField(row rowScanner) (field.Definition, error) {
	var (
		d            field.Definition
		fieldType    string
		options      string
		defaultValue sql.NullString
	)
	err := row.Scan(&d.ID, &d.TenantID, &d.ModuleTarget, &d.Label, &d.Name, &fieldType,
		&options, &d.Required, &defaultValue, &d.Order, &d.RelationshipTarget,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return field.Definition{}, ports.ErrNotFound
	}
	if err != nil {
		return field.Definition{}, fmt.Errorf("scan field definition: %w", err)
	}

	d.Type = field.Type(fieldType)
	if err := json.Unmarshal([]byte(options), &d.Options); err != nil {
		return field.Definition{}, fmt.Errorf("decode options: %w", err)
	}
	if len(d.Options) == 0 {
		d.Options = nil
	}
	if defaultValue.Valid {
		if err := json.Unmarshal([]byte(defaultValue.String), &d.Default); err != nil {
			return field.Definition{}, fmt.Errorf("decode default value: %w", err)
		}
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}

func collectFields(rows *sql.Rows) ([]field.Definition, error) {
	defer rows.Close()

	var out []field.Definition
	for rows.Next() {
		d, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Ensure interface compliance.
var _ ports.FieldStore = (*FieldStore)(nil)
