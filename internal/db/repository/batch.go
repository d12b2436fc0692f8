package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajcricket/Free-Donuts/internal/db"
	"github.com/rajcricket/Free-Donuts/internal/db/models"
)

// BatchRepository defines operations for managing pending upload batches.
type BatchRepository interface {
	// CreateBatch inserts a new empty batch and fills in its id.
	CreateBatch(ctx context.Context, batch *models.Batch) error

	// GetOpenBatch retrieves the admin's most recently created batch
	// that still has room for more items. Returns db.ErrNotFound when
	// the admin has no open batch.
	//
	// Two concurrent uploads from the same admin can both observe the
	// same open batch; single-owner usage is assumed here.
	GetOpenBatch(ctx context.Context, adminID int64) (*models.Batch, error)

	// GetBatchByID retrieves a batch by id.
	GetBatchByID(ctx context.Context, id int64) (*models.Batch, error)

	// AppendFile adds a collected file id to a batch that still has
	// room and returns the updated batch. Returns db.ErrNotFound when
	// the batch is gone or already full.
	AppendFile(ctx context.Context, batchID, fileID int64) (*models.Batch, error)

	// DeleteBatch removes a batch once it has been classified.
	DeleteBatch(ctx context.Context, id int64) error

	// DeleteOpenBatches abandons every still-open batch owned by the
	// admin and returns how many were removed. Full batches awaiting
	// classification are kept.
	DeleteOpenBatches(ctx context.Context, adminID int64) (int64, error)
}

type batchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(pool *pgxpool.Pool) BatchRepository {
	return &batchRepository{pool: pool}
}

func (r *batchRepository) CreateBatch(ctx context.Context, batch *models.Batch) error {
	query := `
		INSERT INTO batches (admin_id, expected, file_ids, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	fileIDs := batch.FileIDs
	if fileIDs == nil {
		fileIDs = []int64{}
	}

	err := r.pool.QueryRow(ctx, query,
		batch.AdminID,
		batch.Expected,
		fileIDs,
		batch.CreatedAt,
	).Scan(&batch.ID, &batch.CreatedAt)

	if err != nil {
		return db.WrapError(err, "create batch")
	}

	return nil
}

func (r *batchRepository) GetOpenBatch(ctx context.Context, adminID int64) (*models.Batch, error) {
	query := `
		SELECT id, admin_id, expected, file_ids, created_at
		FROM batches
		WHERE admin_id = $1 AND cardinality(file_ids) < expected
		ORDER BY created_at DESC
		LIMIT 1
	`

	batch, err := scanBatchRow(r.pool.QueryRow(ctx, query, adminID))
	if err != nil {
		return nil, db.WrapError(err, "get open batch")
	}

	return batch, nil
}

func (r *batchRepository) GetBatchByID(ctx context.Context, id int64) (*models.Batch, error) {
	query := `
		SELECT id, admin_id, expected, file_ids, created_at
		FROM batches
		WHERE id = $1
	`

	batch, err := scanBatchRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, db.WrapError(err, "get batch by id")
	}

	return batch, nil
}

func (r *batchRepository) AppendFile(ctx context.Context, batchID, fileID int64) (*models.Batch, error) {
	query := `
		UPDATE batches
		SET file_ids = array_append(file_ids, $2)
		WHERE id = $1 AND cardinality(file_ids) < expected
		RETURNING id, admin_id, expected, file_ids, created_at
	`

	batch, err := scanBatchRow(r.pool.QueryRow(ctx, query, batchID, fileID))
	if err != nil {
		return nil, db.WrapError(err, "append file to batch")
	}

	return batch, nil
}

func (r *batchRepository) DeleteBatch(ctx context.Context, id int64) error {
	query := `DELETE FROM batches WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return db.WrapError(err, "delete batch")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "delete batch")
	}

	return nil
}

func (r *batchRepository) DeleteOpenBatches(ctx context.Context, adminID int64) (int64, error) {
	query := `DELETE FROM batches WHERE admin_id = $1 AND cardinality(file_ids) < expected`

	tag, err := r.pool.Exec(ctx, query, adminID)
	if err != nil {
		return 0, db.WrapError(err, "delete open batches")
	}

	return tag.RowsAffected(), nil
}

func scanBatchRow(row pgx.Row) (*models.Batch, error) {
	batch := &models.Batch{}
	err := row.Scan(
		&batch.ID,
		&batch.AdminID,
		&batch.Expected,
		&batch.FileIDs,
		&batch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return batch, nil
}
