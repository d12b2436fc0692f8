package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajcricket/Free-Donuts/internal/db"
)

// UserRepository manages the broadcast-target user set.
type UserRepository interface {
	// AddUser records a user id; adding an existing id is a no-op.
	AddUser(ctx context.Context, id int64) error

	// RemoveUser drops a user that has become unreachable. Removing an
	// unknown id is a no-op.
	RemoveUser(ctx context.Context, id int64) error

	// ListUserIDs returns a snapshot of every known user id.
	ListUserIDs(ctx context.Context) ([]int64, error)

	// CountUsers returns the size of the user set.
	CountUsers(ctx context.Context) (int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) AddUser(ctx context.Context, id int64) error {
	query := `
		INSERT INTO users (id, created_at)
		VALUES ($1, now())
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return db.WrapError(err, "add user")
	}

	return nil
}

func (r *userRepository) RemoveUser(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return db.WrapError(err, "remove user")
	}

	return nil
}

func (r *userRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT id FROM users ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list user ids")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}

	return ids, nil
}

func (r *userRepository) CountUsers(ctx context.Context) (int64, error) {
	query := `SELECT count(*) FROM users`

	var count int64
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, db.WrapError(err, "count users")
	}

	return count, nil
}
