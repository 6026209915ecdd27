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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, profile_picture, bio, created_at`

// CreateUser inserts a new user, filling in ID and CreatedAt.
//
// The username and email lookups only pick the error to return; the UNIQUE
// constraints decide. If another writer slips in between the check and the
// insert, the constraint failure is mapped to the same domain error.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := exists(ctx, tx, `SELECT 1 FROM users WHERE username = ?`, user.Username)
		if err != nil {
			return fmt.Errorf("sqlite: checking username: %w", err)
		}
		if taken {
			return apperror.DuplicateUsername(user.Username)
		}

		taken, err = exists(ctx, tx, `SELECT 1 FROM users WHERE email = ?`, user.Email)
		if err != nil {
			return fmt.Errorf("sqlite: checking email: %w", err)
		}
		if taken {
			return apperror.DuplicateEmail(user.Email)
		}

		user.ID = xid.New().String()
		user.CreatedAt = db.timestamp()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.ProfilePicture,
			user.Bio,
			user.CreatedAt,
		)
		switch {
		case isUniqueViolation(err, "users.username"):
			return apperror.DuplicateUsername(user.Username)
		case isUniqueViolation(err, "users.email"):
			return apperror.DuplicateEmail(user.Email)
		case err != nil:
			return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username", username)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

// getUser looks a user up by one of its unique columns. column is always a
// literal from this file, never caller input.
func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}
	return u, nil
}

// UpdateProfile overwrites the free-text profile fields. Username, email and
// password are not editable here.
func (db *DB) UpdateProfile(ctx context.Context, user *model.User) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET bio = ?, profile_picture = ? WHERE id = ?`,
		user.Bio,
		user.ProfilePicture,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// DeleteUser removes a user and everything that depends on them, children
// first so that no foreign key is ever left dangling.
//
// WHY NOT ON DELETE CASCADE?
// The schema declares plain foreign keys and the deletes are spelled out
// here instead, so the order is visible in one place. Every step runs in the
// same transaction as the final DELETE: if one fails, withTx rolls back and
// the account is left whole.
//
// Order:
//
//  1. comments written by the user, and comments on the user's posts
//  2. tag links of the user's posts (the tags themselves stay)
//  3. the user's posts
//  4. follow edges in either direction
//  5. the user row
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		steps := []struct {
			what  string
			query string
			args  []any
		}{
			{
				"comments",
				`DELETE FROM comments
				 WHERE user_id = ? OR post_id IN (SELECT id FROM posts WHERE user_id = ?)`,
				[]any{id, id},
			},
			{
				"post tags",
				`DELETE FROM post_tags WHERE post_id IN (SELECT id FROM posts WHERE user_id = ?)`,
				[]any{id},
			},
			{
				"posts",
				`DELETE FROM posts WHERE user_id = ?`,
				[]any{id},
			},
			{
				"follows",
				`DELETE FROM follows WHERE follower_id = ? OR followed_id = ?`,
				[]any{id, id},
			},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
				return fmt.Errorf("sqlite: deleting %s of user %s: %w", step.what, id, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("user", id)
		}
		return nil
	})
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.ProfilePicture,
		&u.Bio,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
