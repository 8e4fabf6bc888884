package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/repository"
)

// BlobRepository implements blobstore.Backend for SQLite
type BlobRepository struct {
	db *DB
}

// NewBlobRepository creates a new BlobRepository
func NewBlobRepository(db *DB) *BlobRepository {
	return &BlobRepository{db: db}
}

// Opener returns a blobstore.Opener that hands out this repository.
func (r *BlobRepository) Opener() blobstore.Opener {
	return func(ctx context.Context) (blobstore.Backend, error) {
		if err := r.db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}
		return r, nil
	}
}

// Put inserts or replaces the image stored under id
func (r *BlobRepository) Put(ctx context.Context, id string, blob blobstore.Blob) error {
	query := `
		INSERT INTO images (id, data, content_type, hash, size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			content_type = excluded.content_type,
			hash = excluded.hash,
			size = excluded.size,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		blob.Data,
		blob.ContentType,
		blob.Hash,
		blob.Size,
		blob.UpdatedAt,
	)
	if isStorageFull(err) {
		return fmt.Errorf("failed to store image: %w", repository.ErrQuotaExceeded)
	}
	if err != nil {
		return fmt.Errorf("failed to store image: %w", err)
	}

	return nil
}

// Get retrieves the image stored under id
func (r *BlobRepository) Get(ctx context.Context, id string) (*blobstore.Blob, error) {
	query := `
		SELECT data, content_type, hash, size, updated_at
		FROM images
		WHERE id = ?
	`

	var blob blobstore.Blob
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&blob.Data,
		&blob.ContentType,
		&blob.Hash,
		&blob.Size,
		&blob.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return &blob, nil
}

// Delete removes the image stored under id; a missing id is not an error
func (r *BlobRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// List returns stored image metadata ordered by id
func (r *BlobRepository) List(ctx context.Context) ([]blobstore.Entry, error) {
	query := `
		SELECT id, content_type, size, updated_at
		FROM images
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	entries := []blobstore.Entry{}
	for rows.Next() {
		var entry blobstore.Entry
		if err := rows.Scan(&entry.ID, &entry.ContentType, &entry.Size, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image rows: %w", err)
	}

	return entries, nil
}
