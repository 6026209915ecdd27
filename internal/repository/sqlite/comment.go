package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

var _ repository.CommentRepository = (*DB)(nil)

// CreateComment appends a comment to an existing post. Any user may comment
// on any post; only the post's existence is checked.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, `SELECT 1 FROM posts WHERE id = ?`, comment.PostID)
		if err != nil {
			return fmt.Errorf("sqlite: checking post %s: %w", comment.PostID, err)
		}
		if !found {
			return apperror.NotFound("post", comment.PostID)
		}

		err = tx.QueryRowContext(ctx,
			`SELECT username FROM users WHERE id = ?`, comment.UserID,
		).Scan(&comment.Author)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", comment.UserID)
		}
		if err != nil {
			return fmt.Errorf("sqlite: looking up comment author %s: %w", comment.UserID, err)
		}

		comment.ID = xid.New().String()
		comment.CreatedAt = db.timestamp()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO comments (id, body, user_id, post_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			comment.ID,
			comment.Body,
			comment.UserID,
			comment.PostID,
			comment.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting comment on post %s: %w", comment.PostID, err)
		}
		return nil
	})
}

// ListComments returns a post's comments, oldest first.
func (db *DB) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.body, c.user_id, c.post_id, u.username, c.created_at
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.post_id = ?
		 ORDER BY c.created_at ASC, c.rowid ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments of post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Body, &c.UserID, &c.PostID, &c.Author, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
