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

var _ repository.PostRepository = (*DB)(nil)

// postSelect joins the owner so every read carries the author's username.
const postSelect = `SELECT p.id, p.title, p.body, p.slug, p.is_published, p.user_id, u.username, p.created_at
	FROM posts p
	JOIN users u ON u.id = p.user_id`

// newestFirst orders by creation time, newest first. Posts created at the
// same instant keep their insertion order.
const newestFirst = ` ORDER BY p.created_at DESC, p.rowid ASC`

// CreatePost inserts the post, resolves its tags and links them, all in one
// transaction. On success the post carries its ID, CreatedAt, Author and Tags.
func (db *DB) CreatePost(ctx context.Context, post *model.Post, tagNames []string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT username FROM users WHERE id = ?`, post.UserID,
		).Scan(&post.Author)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", post.UserID)
		}
		if err != nil {
			return fmt.Errorf("sqlite: looking up post owner %s: %w", post.UserID, err)
		}

		taken, err := exists(ctx, tx, `SELECT 1 FROM posts WHERE title = ?`, post.Title)
		if err != nil {
			return fmt.Errorf("sqlite: checking post title: %w", err)
		}
		if taken {
			return apperror.DuplicateTitle(post.Title)
		}

		post.ID = xid.New().String()
		post.CreatedAt = db.timestamp()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO posts (id, title, body, slug, is_published, user_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			post.ID,
			post.Title,
			post.Body,
			post.Slug,
			post.Published,
			post.UserID,
			post.CreatedAt,
		)
		if isUniqueViolation(err, "posts.title") {
			return apperror.DuplicateTitle(post.Title)
		}
		if err != nil {
			return fmt.Errorf("sqlite: inserting post: %w", err)
		}

		tags, err := resolveTags(ctx, tx, tagNames)
		if err != nil {
			return err
		}
		if err := linkTags(ctx, tx, post.ID, tags); err != nil {
			return err
		}
		post.Tags = tags
		return nil
	})
}

// GetPostByID returns the post with its tags, or apperror.ErrNotFound.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	post, err := scanPost(db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	tags, err := loadTags(ctx, db.conn, []string{post.ID})
	if err != nil {
		return nil, err
	}
	if t, ok := tags[post.ID]; ok {
		post.Tags = t
	}
	return post, nil
}

// UpdatePost overwrites title, body and slug, then swaps the whole tag set:
// every existing link is deleted and the new set is linked from scratch.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post, tagNames []string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := exists(ctx, tx,
			`SELECT 1 FROM posts WHERE title = ? AND id <> ?`, post.Title, post.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: checking post title: %w", err)
		}
		if taken {
			return apperror.DuplicateTitle(post.Title)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE posts SET title = ?, body = ?, slug = ? WHERE id = ?`,
			post.Title,
			post.Body,
			post.Slug,
			post.ID,
		)
		if isUniqueViolation(err, "posts.title") {
			return apperror.DuplicateTitle(post.Title)
		}
		if err != nil {
			return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("post", post.ID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, post.ID); err != nil {
			return fmt.Errorf("sqlite: clearing tags of post %s: %w", post.ID, err)
		}

		tags, err := resolveTags(ctx, tx, tagNames)
		if err != nil {
			return err
		}
		if err := linkTags(ctx, tx, post.ID, tags); err != nil {
			return err
		}
		post.Tags = tags
		return nil
	})
}

// DeletePost removes comments, then tag links, then the post itself. Tags
// are never deleted, even when this was their last post.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting comments of post %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting tags of post %s: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("post", id)
		}
		return nil
	})
}

// ListPosts returns every post, newest first.
func (db *DB) ListPosts(ctx context.Context) ([]model.Post, error) {
	return db.listPosts(ctx, postSelect+newestFirst)
}

// ListPostsByTag returns the posts linked to tagID, newest first.
func (db *DB) ListPostsByTag(ctx context.Context, tagID string) ([]model.Post, error) {
	return db.listPosts(ctx,
		postSelect+` JOIN post_tags pt ON pt.post_id = p.id WHERE pt.tag_id = ?`+newestFirst,
		tagID,
	)
}

// ListPostsByUser returns the posts owned by userID, newest first.
func (db *DB) ListPostsByUser(ctx context.Context, userID string) ([]model.Post, error) {
	return db.listPosts(ctx, postSelect+` WHERE p.user_id = ?`+newestFirst, userID)
}

// listPosts runs a post query and attaches tags. The post rows are fully read
// and closed before the tag query runs (single-connection pool).
func (db *DB) listPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	rows.Close()

	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	tags, err := loadTags(ctx, db.conn, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if t, ok := tags[posts[i].ID]; ok {
			posts[i].Tags = t
		}
	}
	return posts, nil
}

func scanPost(row rowScanner) (*model.Post, error) {
	p := model.Post{Tags: []model.Tag{}}
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Body,
		&p.Slug,
		&p.Published,
		&p.UserID,
		&p.Author,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
