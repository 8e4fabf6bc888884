package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/panotour/internal/repository"
)

// SlotRepository implements autosave.Slot for SQLite
type SlotRepository struct {
	db *DB
}

// NewSlotRepository creates a new SlotRepository
func NewSlotRepository(db *DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// Read returns the value stored under key, reporting whether it exists
func (r *SlotRepository) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot: %w", err)
	}
	return []byte(value), true, nil
}

// Write replaces the value stored under key
func (r *SlotRepository) Write(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO slots (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, key, string(value))
	if isStorageFull(err) {
		return fmt.Errorf("failed to write slot: %w", repository.ErrQuotaExceeded)
	}
	if err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}
	return nil
}
