package memory

import (
	"context"
	"sync"

	"github.com/fieldforge/fieldforge/ports"
)

// AuditLog is an in-memory implementation of ports.AuditLog.
type AuditLog struct {
	mu      sync.RWMutex
	entries []ports.AuditEntry
}

// NewAuditLog creates a new in-memory audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Record appends an audit entry.
func (l *AuditLog) Record(ctx context.Context, e ports.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

// List returns the tenant's entries newest first.
func (l *AuditLog) List(ctx context.Context, tenantID string, limit, offset int) ([]ports.AuditEntry, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []ports.AuditEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].TenantID == tenantID {
			matched = append(matched, l.entries[i])
		}
	}

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// Entries returns a copy of the recorded entries (for testing).
func (l *AuditLog) Entries() []ports.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]ports.AuditEntry(nil), l.entries...)
}

// Ensure interface compliance.
var _ ports.AuditLog = (*AuditLog)(nil)
