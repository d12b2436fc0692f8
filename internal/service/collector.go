package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rajcricket/Free-Donuts/internal/db"
	"github.com/rajcricket/Free-Donuts/internal/db/models"
	"github.com/rajcricket/Free-Donuts/internal/db/repository"
	"github.com/rajcricket/Free-Donuts/pkg/logger"
)

// AddOutcome describes what happened to an uploaded item: either it
// was collected into a still-open batch, or it is ready for
// classification (as the final batch item or as a single-item upload).
type AddOutcome struct {
	Ready     bool
	Ref       Ref // valid when Ready
	Collected int
	Expected  int
}

// BatchCollector accumulates a fixed number of uploads into one
// pending classification unit.
type BatchCollector struct {
	batches repository.BatchRepository
}

// NewBatchCollector creates a BatchCollector.
func NewBatchCollector(batches repository.BatchRepository) *BatchCollector {
	return &BatchCollector{batches: batches}
}

// Start opens a new batch for the admin. Any still-open batch is
// abandoned first, so there is never more than one collecting batch
// per admin; the number of abandoned batches is returned so the caller
// can tell the owner.
func (c *BatchCollector) Start(ctx context.Context, adminID int64, expected int) (abandoned int64, err error) {
	if expected <= 0 {
		return 0, fmt.Errorf("batch size must be positive, got %d", expected)
	}

	abandoned, err = c.batches.DeleteOpenBatches(ctx, adminID)
	if err != nil {
		return 0, fmt.Errorf("abandon open batches: %w", err)
	}

	batch := models.NewBatch(adminID, expected)
	if err := c.batches.CreateBatch(ctx, batch); err != nil {
		return abandoned, fmt.Errorf("create batch: %w", err)
	}

	logger.Log.Info("batch opened",
		zap.Int64("batch", batch.ID),
		zap.Int64("admin", adminID),
		zap.Int("expected", expected),
	)

	return abandoned, nil
}

// Add routes an uploaded file into the admin's open batch. With no open
// batch the item becomes a single-item unit that is immediately ready
// for classification.
//
// The open-batch lookup is by recency; two uploads from the same admin
// racing each other can append out of order. The bot is operated by a
// single owner, so this is tolerated rather than locked.
func (c *BatchCollector) Add(ctx context.Context, adminID, fileID int64) (*AddOutcome, error) {
	batch, err := c.batches.GetOpenBatch(ctx, adminID)
	if err != nil {
		if db.IsNotFound(err) {
			return &AddOutcome{Ready: true, Ref: SingleRef(fileID), Collected: 1, Expected: 1}, nil
		}
		return nil, fmt.Errorf("find open batch: %w", err)
	}

	updated, err := c.batches.AppendFile(ctx, batch.ID, fileID)
	if err != nil {
		if db.IsNotFound(err) {
			// Batch filled up or was deleted between lookup and append.
			return &AddOutcome{Ready: true, Ref: SingleRef(fileID), Collected: 1, Expected: 1}, nil
		}
		return nil, fmt.Errorf("append to batch: %w", err)
	}

	if updated.Full() {
		logger.Log.Info("batch complete",
			zap.Int64("batch", updated.ID),
			zap.Int("items", len(updated.FileIDs)),
		)
		return &AddOutcome{
			Ready:     true,
			Ref:       BatchRef(updated.ID),
			Collected: len(updated.FileIDs),
			Expected:  updated.Expected,
		}, nil
	}

	return &AddOutcome{
		Collected: len(updated.FileIDs),
		Expected:  updated.Expected,
	}, nil
}
