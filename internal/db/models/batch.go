package models

import "time"

// Batch groups a fixed number of uploads so they can be classified in
// one action. FileIDs holds the collected file record ids in arrival
// order; the batch is ready for classification exactly when
// len(FileIDs) == Expected. The row is deleted once classified.
type Batch struct {
	ID        int64     `db:"id"`
	AdminID   int64     `db:"admin_id"`
	Expected  int       `db:"expected"`
	FileIDs   []int64   `db:"file_ids"`
	CreatedAt time.Time `db:"created_at"`
}

// NewBatch creates an empty Batch owned by the given admin.
func NewBatch(adminID int64, expected int) *Batch {
	return &Batch{
		AdminID:   adminID,
		Expected:  expected,
		CreatedAt: time.Now(),
	}
}

// Full reports whether the batch has collected all expected items.
func (b *Batch) Full() bool {
	return len(b.FileIDs) >= b.Expected
}
