// Package sqlite implements the repository interfaces on top of SQLite using
// database/sql and the pure-Go modernc.org/sqlite driver.
//
// The pool is capped at one connection. SQLite serializes writers anyway, and
// a single connection means every transaction sees a consistent database
// (including ":memory:" databases, which are per-connection). The catch is
// that nothing may issue a query on db.conn while a transaction or an open
// *sql.Rows holds that connection: methods always finish reading rows before
// running follow-up queries, and code inside withTx only uses the *sql.Tx.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface in the parent package.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithClock replaces time.Now for created_at stamps. Tests use it to produce
// equal timestamps and exercise the insertion-order tie break.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx, so read helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/inkwell.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database, lost on Close
func New(dbPath string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers of other processes (backups, the seed tool) proceed
	// while this one writes. In-memory databases silently keep "memory".
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := newDB(conn, opts...)
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// newDB wraps an already opened pool without touching the schema. Tests use
// it with go-sqlmock.
func newDB(conn *sql.DB, opts ...Option) *DB {
	db := &DB{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// dsn appends the per-connection pragmas. Setting them in the DSN (instead of
// a one-off Exec) means a reconnect gets them too.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// timestamp returns the current time in UTC. Stored timestamps are all UTC so
// that ORDER BY created_at on the text representation is chronological.
func (db *DB) timestamp() time.Time {
	return db.now().UTC()
}

// withTx runs fn inside a transaction. Any error from fn rolls back every
// write fn made; otherwise the transaction is committed.
//
// TRANSACTION PATTERN:
//
//	err := db.withTx(ctx, func(tx *sql.Tx) error {
//	    // every statement uses tx, never db.conn
//	    return nil // commit, or an error to roll back
//	})
//
// With one pooled connection, a db.conn query inside fn would wait for the
// connection fn is holding, forever.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// exists runs a "SELECT 1 ... LIMIT 1" style query and reports whether it
// produced a row.
func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure. column narrows the match to a "table.column" as it
// appears in SQLite's message; pass "" to match any column.
//
// The message check is a fallback for errors that did not come from the
// modernc driver (go-sqlmock in tests).
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code != sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return false
		}
	} else if !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return false
	}

	return column == "" || strings.Contains(err.Error(), column)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// Foreign keys carry no ON DELETE actions: cascades are performed explicitly
// in DeletePost and DeleteUser so their order is visible in one place.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			username        TEXT NOT NULL UNIQUE,
			email           TEXT NOT NULL UNIQUE,
			password_hash   TEXT NOT NULL,
			profile_picture TEXT NOT NULL DEFAULT '',
			bio             TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL UNIQUE,
			body         TEXT NOT NULL,
			slug         TEXT NOT NULL DEFAULT '',
			is_published BOOLEAN NOT NULL DEFAULT 0,
			user_id      TEXT NOT NULL REFERENCES users(id),
			created_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tags (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS post_tags (
			post_id TEXT NOT NULL REFERENCES posts(id),
			tag_id  TEXT NOT NULL REFERENCES tags(id),
			PRIMARY KEY (post_id, tag_id)
		);
		CREATE INDEX IF NOT EXISTS idx_post_tags_tag_id ON post_tags(tag_id);
	`)
	if err != nil {
		return fmt.Errorf("creating tag tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			user_id    TEXT NOT NULL REFERENCES users(id),
			post_id    TEXT NOT NULL REFERENCES posts(id),
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
		CREATE INDEX IF NOT EXISTS idx_comments_user_id ON comments(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS follows (
			follower_id TEXT NOT NULL REFERENCES users(id),
			followed_id TEXT NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL,
			PRIMARY KEY (follower_id, followed_id)
		);
		CREATE INDEX IF NOT EXISTS idx_follows_followed_id ON follows(followed_id);
	`)
	if err != nil {
		return fmt.Errorf("creating follows table: %w", err)
	}

	return nil
}
