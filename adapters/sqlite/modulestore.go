package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/fieldforge/fieldforge/domain/module"
	"github.com/fieldforge/fieldforge/ports"
)

// ModuleStore is a SQLite implementation of ports.ModuleStore.
type ModuleStore struct {
	db *DB
}

// NewModuleStore creates a new SQLite module store.
func NewModuleStore(db *DB) *ModuleStore {
	return &ModuleStore{db: db}
}

const moduleColumns = "id, tenant_id, name, slug, description, icon, is_active, created_at, updated_at"

// Create stores a new module.
func (s *ModuleStore) Create(ctx context.Context, m module.Module) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO modules (`+moduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.TenantID, m.Name, m.Slug, m.Description, m.Icon, m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isConstraintErr(err) {
			return ports.ErrDuplicate
		}
		return fmt.Errorf("insert module: %w", err)
	}
	return nil
}

// Get retrieves a module by ID.
func (s *ModuleStore) Get(ctx context.Context, id string) (module.Module, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+moduleColumns+" FROM modules WHERE id = ?", id)
	return scanModule(row)
}

// GetBySlug retrieves a tenant's module by slug.
func (s *ModuleStore) GetBySlug(ctx context.Context, tenantID, slug string) (module.Module, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+moduleColumns+" FROM modules WHERE tenant_id = ? AND slug = ?", tenantID, slug)
	return scanModule(row)
}

// Update modifies an existing module.
func (s *ModuleStore) Update(ctx context.Context, m module.Module) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE modules
		SET name = ?, description = ?, icon = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, m.Description, m.Icon, m.IsActive, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return checkAffected(result)
}

// Delete removes a module row.
func (s *ModuleStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM modules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	return checkAffected(result)
}

// List returns a tenant's modules in creation order, plus the total.
func (s *ModuleStore) List(ctx context.Context, tenantID string, limit, offset int) ([]module.Module, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM modules WHERE tenant_id = ?", tenantID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count modules: %w", err)
	}

	query := "SELECT " + moduleColumns + " FROM modules WHERE tenant_id = ? ORDER BY created_at, id"
	args := []any{tenantID}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var out []module.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// rowScanner lets scan helpers work with both Row and Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanModule(row rowScanner) (module.Module, error) {
	var m module.Module
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.Slug, &m.Description, &m.Icon,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return module.Module{}, ports.ErrNotFound
	}
	if err != nil {
		return module.Module{}, fmt.Errorf("scan module: %w", err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, nil
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// Ensure interface compliance.
var _ ports.ModuleStore = (*ModuleStore)(nil)
