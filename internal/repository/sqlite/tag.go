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

var _ repository.TagRepository = (*DB)(nil)

// ResolveTags runs get-or-create for every name in one transaction.
func (db *DB) ResolveTags(ctx context.Context, names []string) ([]model.Tag, error) {
	var tags []model.Tag
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		tags, err = resolveTags(ctx, tx, names)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// resolveTags maps names to tags in input order, creating missing ones.
// Repeated names collapse onto their first occurrence.
func resolveTags(ctx context.Context, q querier, names []string) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		tag, err := getOrCreateTag(ctx, q, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// getOrCreateTag returns the tag with exactly this name, inserting it first
// if it does not exist yet.
func getOrCreateTag(ctx context.Context, q querier, name string) (*model.Tag, error) {
	tag := model.Tag{Name: name}

	err := q.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tag.ID)
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: looking up tag %q: %w", name, err)
	}

	tag.ID = xid.New().String()
	if _, err := q.ExecContext(ctx, `INSERT INTO tags (id, name) VALUES (?, ?)`, tag.ID, tag.Name); err != nil {
		return nil, fmt.Errorf("sqlite: creating tag %q: %w", name, err)
	}
	return &tag, nil
}

// linkTags associates tags with a post. The caller must already have removed
// any previous links when replacing a tag set.
func linkTags(ctx context.Context, q querier, postID string, tags []model.Tag) error {
	for _, tag := range tags {
		_, err := q.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)`,
			postID, tag.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: linking tag %q to post %s: %w", tag.Name, postID, err)
		}
	}
	return nil
}

// loadTags fetches the tags of several posts at once, keyed by post ID. Tags
// come back in the order they were linked.
func loadTags(ctx context.Context, q querier, postIDs []string) (map[string][]model.Tag, error) {
	byPost := make(map[string][]model.Tag, len(postIDs))
	if len(postIDs) == 0 {
		return byPost, nil
	}

	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT pt.post_id, t.id, t.name
		 FROM post_tags pt
		 JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.post_id IN (`+placeholders(len(postIDs))+`)
		 ORDER BY pt.rowid`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading post tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID string
		var tag model.Tag
		if err := rows.Scan(&postID, &tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post tag: %w", err)
		}
		byPost[postID] = append(byPost[postID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating post tags: %w", err)
	}
	return byPost, nil
}

func (db *DB) GetTagByName(ctx context.Context, name string) (*model.Tag, error) {
	tag := model.Tag{Name: name}
	err := db.conn.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tag.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tag", name)
		}
		return nil, fmt.Errorf("sqlite: getting tag %q: %w", name, err)
	}
	return &tag, nil
}

// ListTags returns every tag, orphans included, ordered by name.
func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}
