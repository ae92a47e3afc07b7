package postgres

import (
	"context"
	"fmt"

	"github.com/Willamette-OR/microblog/internal/model"
)

var _ model.FollowStore = (*FollowRepository)(nil)

type FollowRepository struct {
	db querier
}

func NewFollowRepository(db *Connection) *FollowRepository {
	return &FollowRepository{
		db: db,
	}
}

func (r *FollowRepository) Exists(ctx context.Context, followerID, followedID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followed_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, followerID, followedID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

// Insert adds the edge and reports whether it was new.
func (r *FollowRepository) Insert(ctx context.Context, followerID, followedID int64) (bool, error) {
	query := `INSERT INTO follows (follower_id, followed_id) VALUES ($1, $2)
			  ON CONFLICT (follower_id, followed_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query, followerID, followedID)
	if err != nil {
		if verr := asValidation(err); verr != err {
			return false, verr
		}
		return false, fmt.Errorf("failed to insert follow: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the edge and reports whether it existed.
func (r *FollowRepository) Delete(ctx context.Context, followerID, followedID int64) (bool, error) {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`

	tag, err := r.db.Exec(ctx, query, followerID, followedID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *FollowRepository) FollowersOf(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT follower_id FROM follows WHERE followed_id = $1 ORDER BY follower_id`
	return r.ids(ctx, "list followers", query, userID)
}

func (r *FollowRepository) FollowedBy(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT followed_id FROM follows WHERE follower_id = $1 ORDER BY followed_id`
	return r.ids(ctx, "list followed", query, userID)
}

func (r *FollowRepository) Counts(ctx context.Context, userID int64) (int, int, error) {
	query := `SELECT
				(SELECT count(*) FROM follows WHERE followed_id = $1),
				(SELECT count(*) FROM follows WHERE follower_id = $1)`

	var followers, followed int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&followers, &followed); err != nil {
		return 0, 0, fmt.Errorf("failed to count follows: %w", err)
	}
	return followers, followed, nil
}

func (r *FollowRepository) ids(ctx context.Context, op, query string, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return ids, nil
}
