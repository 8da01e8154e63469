package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fieldforge/fieldforge/ports"
)

// AuditLog is a SQLite implementation of ports.AuditLog.
type AuditLog struct {
	db *DB
}

// NewAuditLog creates a new SQLite audit log.
func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db}
}

// Record appends an audit entry.
func (l *AuditLog) Record(ctx context.Context, e ports.AuditEntry) error {
	var before, after any
	if len(e.Before) > 0 {
		before = string(e.Before)
	}
	if len(e.After) > 0 {
		after = string(e.After)
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, tenant_id, actor_id, action, entity, entity_id, before_state, after_state, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.ActorID, e.Action, e.Entity, e.EntityID, before, after, e.At,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns the tenant's entries newest first.
func (l *AuditLog) List(ctx context.Context, tenantID string, limit, offset int) ([]ports.AuditEntry, int, error) {
	var total int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_log WHERE tenant_id = ?`, tenantID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, tenant_id, actor_id, action, entity, entity_id, before_state, after_state, occurred_at
		FROM audit_log WHERE tenant_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []ports.AuditEntry
	for rows.Next() {
		var e ports.AuditEntry
		var before, after sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &before, &after, &e.At); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		if before.Valid {
			e.Before = json.RawMessage(before.String)
		}
		if after.Valid {
			e.After = json.RawMessage(after.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, total, nil
}

// Ensure interface compliance.
var _ ports.AuditLog = (*AuditLog)(nil)
