package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

var _ repository.FollowRepository = (*DB)(nil)

// Follow inserts the edge follower → followed. The composite primary key
// makes a repeat a no-op rather than an error.
//
// Both ends are looked up first so that a missing account (for example one
// deleted while its token is still valid) is apperror.ErrNotFound instead of
// a raw foreign key failure.
func (db *DB) Follow(ctx context.Context, followerID, followedID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []string{followerID, followedID} {
			found, err := exists(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("sqlite: checking user %s: %w", id, err)
			}
			if !found {
				return apperror.NotFound("user", id)
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO follows (follower_id, followed_id, created_at) VALUES (?, ?, ?)
			 ON CONFLICT (follower_id, followed_id) DO NOTHING`,
			followerID, followedID, db.timestamp(),
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting follow %s -> %s: %w", followerID, followedID, err)
		}
		return nil
	})
}

// Unfollow removes the edge if present.
func (db *DB) Unfollow(ctx context.Context, followerID, followedID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM follows WHERE follower_id = ? AND followed_id = ?`,
			followerID, followedID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting follow %s -> %s: %w", followerID, followedID, err)
		}
		return nil
	})
}

func (db *DB) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	found, err := exists(ctx, db.conn,
		`SELECT 1 FROM follows WHERE follower_id = ? AND followed_id = ?`,
		followerID, followedID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow %s -> %s: %w", followerID, followedID, err)
	}
	return found, nil
}

// Followers lists the users following userID, in the order they followed.
func (db *DB) Followers(ctx context.Context, userID string) ([]model.User, error) {
	return db.listEdgeUsers(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.profile_picture, u.bio, u.created_at
		 FROM follows f
		 JOIN users u ON u.id = f.follower_id
		 WHERE f.followed_id = ?
		 ORDER BY f.created_at ASC, f.rowid ASC`,
		userID,
	)
}

// Following lists the users userID follows, in the order they were followed.
func (db *DB) Following(ctx context.Context, userID string) ([]model.User, error) {
	return db.listEdgeUsers(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.profile_picture, u.bio, u.created_at
		 FROM follows f
		 JOIN users u ON u.id = f.followed_id
		 WHERE f.follower_id = ?
		 ORDER BY f.created_at ASC, f.rowid ASC`,
		userID,
	)
}

func (db *DB) listEdgeUsers(ctx context.Context, query, userID string) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing follow edges of %s: %w", userID, err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating follow edges: %w", err)
	}
	return users, nil
}
