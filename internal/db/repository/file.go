// Package repository provides data access for the content workflow.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajcricket/Free-Donuts/internal/db"
	"github.com/rajcricket/Free-Donuts/internal/db/models"
)

// FileRepository defines operations for managing stored media records.
type FileRepository interface {
	// CreateFile inserts a new unclassified file and fills in its id.
	CreateFile(ctx context.Context, file *models.File) error

	// GetFileByID retrieves a single file by its record id.
	GetFileByID(ctx context.Context, id int64) (*models.File, error)

	// ListFilesByIDs retrieves the given files in the order of ids.
	ListFilesByIDs(ctx context.Context, ids []int64) ([]*models.File, error)

	// GetRandomFile retrieves one random classified file matching the
	// (product, flavor) pair.
	GetRandomFile(ctx context.Context, product, flavor string) (*models.File, error)

	// IncrementViews bumps the view counter after a successful retrieval.
	IncrementViews(ctx context.Context, id int64) error

	// ApplyClassification sets (product, flavor) on every listed file
	// that is still unclassified and returns the ids of the rows it
	// updated, in the order of ids. Already-classified rows are left
	// untouched and absent from the result.
	ApplyClassification(ctx context.Context, ids []int64, product, flavor string) ([]int64, error)
}

type fileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository creates a new FileRepository.
func NewFileRepository(pool *pgxpool.Pool) FileRepository {
	return &fileRepository{pool: pool}
}

func (r *fileRepository) CreateFile(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (file_id, file_type, caption, thumb_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		file.FileID,
		file.FileType,
		file.Caption,
		file.ThumbID,
		file.CreatedAt,
	).Scan(&file.ID, &file.CreatedAt)

	if err != nil {
		return db.WrapError(err, "create file")
	}

	return nil
}

func (r *fileRepository) GetFileByID(ctx context.Context, id int64) (*models.File, error) {
	query := `
		SELECT id, file_id, file_type, caption, product, flavor, views, thumb_id, created_at
		FROM files
		WHERE id = $1
	`

	file := &models.File{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&file.ID,
		&file.FileID,
		&file.FileType,
		&file.Caption,
		&file.Product,
		&file.Flavor,
		&file.Views,
		&file.ThumbID,
		&file.CreatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get file by id")
	}

	return file, nil
}

func (r *fileRepository) ListFilesByIDs(ctx context.Context, ids []int64) ([]*models.File, error) {
	query := `
		SELECT id, file_id, file_type, caption, product, flavor, views, thumb_id, created_at
		FROM files
		WHERE id = ANY($1)
		ORDER BY array_position($1, id)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, db.WrapError(err, "list files by ids")
	}
	defer rows.Close()

	return scanFiles(rows)
}

func (r *fileRepository) GetRandomFile(ctx context.Context, product, flavor string) (*models.File, error) {
	query := `
		SELECT id, file_id, file_type, caption, product, flavor, views, thumb_id, created_at
		FROM files
		WHERE product = $1 AND flavor = $2
		ORDER BY random()
		LIMIT 1
	`

	file := &models.File{}
	err := r.pool.QueryRow(ctx, query, product, flavor).Scan(
		&file.ID,
		&file.FileID,
		&file.FileType,
		&file.Caption,
		&file.Product,
		&file.Flavor,
		&file.Views,
		&file.ThumbID,
		&file.CreatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get random file")
	}

	return file, nil
}

func (r *fileRepository) IncrementViews(ctx context.Context, id int64) error {
	query := `UPDATE files SET views = views + 1 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return db.WrapError(err, "increment views")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "increment views")
	}

	return nil
}

func (r *fileRepository) ApplyClassification(ctx context.Context, ids []int64, product, flavor string) ([]int64, error) {
	query := `
		WITH updated AS (
			UPDATE files
			SET product = $2, flavor = $3
			WHERE id = ANY($1) AND product IS NULL
			RETURNING id
		)
		SELECT id FROM updated ORDER BY array_position($1, id)
	`

	rows, err := r.pool.Query(ctx, query, ids, product, flavor)
	if err != nil {
		return nil, db.WrapError(err, "apply classification")
	}
	defer rows.Close()

	var updated []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan classified id: %w", err)
		}
		updated = append(updated, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classified ids: %w", err)
	}

	return updated, nil
}

// Helper function to scan multiple files from query results
func scanFiles(rows pgx.Rows) ([]*models.File, error) {
	var files []*models.File

	for rows.Next() {
		file := &models.File{}
		err := rows.Scan(
			&file.ID,
			&file.FileID,
			&file.FileType,
			&file.Caption,
			&file.Product,
			&file.Flavor,
			&file.Views,
			&file.ThumbID,
			&file.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}
