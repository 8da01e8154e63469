package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fieldforge/fieldforge/domain/record"
	"github.com/fieldforge/fieldforge/ports"
)

// RecordStore is a SQLite implementation of ports.RecordStore. Field
// values are one JSON document per row; json1 drives presence checks,
// reference lookups and key removal without decoding every row.
type RecordStore struct {
	db *DB
}

// NewRecordStore creates a new SQLite record store.
func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{db: db}
}

const recordColumns = "id, tenant_id, module_target, owner_id, created_by_id, version, field_values, created_at, updated_at"

// Create inserts a new record.
func (s *RecordStore) Create(ctx context.Context, r record.Record) error {
	values, err := encodeValues(r.Values)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.ModuleTarget, r.OwnerID, r.CreatedByID, r.Version, values, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isConstraintErr(err) {
			return ports.ErrDuplicate
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *RecordStore) Get(ctx context.Context, id string) (record.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE id = ?", id)
	return scanRecord(row)
}

// Update commits r iff the stored version still equals expectedVersion.
func (s *RecordStore) Update(ctx context.Context, r record.Record, expectedVersion int64) (record.Record, error) {
	values, err := encodeValues(r.Values)
	if err != nil {
		return record.Record{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET owner_id = ?, field_values = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		r.OwnerID, values, r.UpdatedAt, r.ID, expectedVersion,
	)
	if err != nil {
		return record.Record{}, fmt.Errorf("update record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return record.Record{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish a missing record from a lost race.
		if _, err := s.Get(ctx, r.ID); errors.Is(err, ports.ErrNotFound) {
			return record.Record{}, ports.ErrNotFound
		}
		return record.Record{}, ports.ErrVersionConflict
	}
	return s.Get(ctx, r.ID)
}

// Delete removes a record.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return checkAffected(result)
}

// List returns matching records, newest first, plus the total count.
func (s *RecordStore) List(ctx context.Context, q ports.RecordQuery) ([]record.Record, int, error) {
	where := "tenant_id = ? AND module_target = ?"
	args := []any{q.TenantID, q.ModuleTarget}

	// Filters match a case-insensitive substring of the stored primitive.
	for name, substr := range q.Filter {
		where += " AND LOWER(CAST(json_extract(field_values, ?) AS TEXT)) LIKE ?"
		args = append(args, jsonFieldPath(name)+".v", "%"+strings.ToLower(substr)+"%")
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	query := "SELECT " + recordColumns + " FROM records WHERE " + where +
		" ORDER BY created_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	} else if q.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	out, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListIDs returns up to limit record IDs of a module target, oldest first.
func (s *RecordStore) ListIDs(ctx context.Context, tenantID, moduleTarget string, limit int) ([]string, error) {
	query := `
		SELECT id FROM records
		WHERE tenant_id = ? AND module_target = ?
		ORDER BY created_at, id`
	args := []any{tenantID, moduleTarget}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list record ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteBatch removes the given records, reporting ids that failed.
func (s *RecordStore) DeleteBatch(ctx context.Context, ids []string) ([]string, error) {
	var failed []string
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id); err != nil {
			failed = append(failed, id)
		}
	}
	return failed, nil
}

// CountWithValue counts records holding a value for the field.
func (s *RecordStore) CountWithValue(ctx context.Context, tenantID, moduleTarget, fieldName string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records
		WHERE tenant_id = ? AND module_target = ? AND json_type(field_values, ?) IS NOT NULL`,
		tenantID, moduleTarget, jsonFieldPath(fieldName)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records with value: %w", err)
	}
	return n, nil
}

// StripFieldBatch removes the field key from up to limit records.
func (s *RecordStore) StripFieldBatch(ctx context.Context, tenantID, moduleTarget, fieldName string, limit int) (int, error) {
	path := jsonFieldPath(fieldName)
	query := `
		UPDATE records SET field_values = json_remove(field_values, ?)
		WHERE id IN (
			SELECT id FROM records
			WHERE tenant_id = ? AND module_target = ? AND json_type(field_values, ?) IS NOT NULL`
	args := []any{path, tenantID, moduleTarget, path}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	query += ")"

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("strip field batch: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// FindReferencing returns records whose relationship field holds targetID.
func (s *RecordStore) FindReferencing(ctx context.Context, tenantID, referencingModule, fieldName, targetID string, limit, offset int) ([]record.Record, error) {
	path := jsonFieldPath(fieldName)
	query := `
		SELECT ` + recordColumns + ` FROM records
		WHERE tenant_id = ? AND module_target = ?
			AND json_extract(field_values, ?) = 'reference'
			AND json_extract(field_values, ?) = ?
		ORDER BY id`
	args := []any{tenantID, referencingModule, path + ".k", path + ".v", targetID}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find referencing records: %w", err)
	}
	return collectRecords(rows)
}

func encodeValues(values map[string]record.Value) (string, error) {
	if values == nil {
		values = map[string]record.Value{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode field values: %w", err)
	}
	return string(raw), nil
}

func scanRecord(row rowScanner) (record.Record, error) {
	var (
		r      record.Record
		values string
	)
	err := row.Scan(&r.ID, &r.TenantID, &r.ModuleTarget, &r.OwnerID, &r.CreatedByID,
		&r.Version, &values, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, ports.ErrNotFound
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("scan record: %w", err)
	}

	if err := json.Unmarshal([]byte(values), &r.Values); err != nil {
		return record.Record{}, fmt.Errorf("decode field values: %w", err)
	}
	if r.Values == nil {
		r.Values = map[string]record.Value{}
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func collectRecords(rows *sql.Rows) ([]record.Record, error) {
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ensure interface compliance.
var _ ports.RecordStore = (*RecordStore)(nil)
