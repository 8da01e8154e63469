package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fieldforge/fieldforge/ports"
)

// GenerationStore is a SQLite implementation of ports.GenerationStore.
type GenerationStore struct {
	db *DB
}

// NewGenerationStore creates a new SQLite generation store.
func NewGenerationStore(db *DB) *GenerationStore {
	return &GenerationStore{db: db}
}

// Current returns the tenant's schema generation, 0 before any mutation.
func (s *GenerationStore) Current(ctx context.Context, tenantID string) (int64, error) {
	var gen int64
	err := s.db.QueryRowContext(ctx,
		"SELECT generation FROM schema_generations WHERE tenant_id = ?", tenantID).Scan(&gen)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query generation: %w", err)
	}
	return gen, nil
}

// Bump atomically increments and returns the tenant's generation.
func (s *GenerationStore) Bump(ctx context.Context, tenantID string) (int64, error) {
	var gen int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO schema_generations (tenant_id, generation, updated_at)
		VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(tenant_id) DO UPDATE SET
			generation = generation + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING generation`,
		tenantID).Scan(&gen)
	if err != nil {
		return 0, fmt.Errorf("bump generation: %w", err)
	}
	return gen, nil
}

// Ensure interface compliance.
var _ ports.GenerationStore = (*GenerationStore)(nil)
