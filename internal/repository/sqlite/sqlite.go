// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE NEXT TO MONGO?
// The production deployment talks to MongoDB, but SQLite is an embedded database:
// it lives inside your Go binary as a single file. No separate database server to
// install. That makes it the store for local runs (STORE_DRIVER=sqlite) and for
// the repository tests (":memory:").
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so no C compiler is needed.
//
// DOCUMENTS IN TABLES:
// A blog post is a document with a nested comment list. Here it is split into two
// tables: posts (one row per post) and comments (one row per comment, ordered by
// its autoincrement id). The repository reassembles the document on every read.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only" import.
	// The sqlite package's init() function registers itself with database/sql as a
	// driver named "sqlite". After this import, sql.Open("sqlite", ...) works.
	_ "modernc.org/sqlite"
)

// memoryPath is the special SQLite filename for a private in-memory database.
const memoryPath = ":memory:"

// DB wraps a sql.DB connection pool and provides repository methods.
//
// It implements both repository.UserRepository (user.go) and
// repository.PostRepository (post.go).
type DB struct {
	conn *sql.DB
}

// querier is the subset of *sql.DB and *sql.Tx the read helpers need, so the
// same code can run inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/blog.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (great for tests, lost on close)
//
// PER-CONNECTION PRAGMAS:
// foreign_keys and busy_timeout only apply to the connection that ran them, and
// sql.DB is a POOL. Passing them as _pragma DSN parameters makes the driver run
// them on every connection it opens.
//
// IMMEDIATE TRANSACTIONS:
// A plain BEGIN takes a read lock and upgrades it at the first write. When two
// pooled connections both read first, the one that tries to upgrade second
// gets SQLITE_BUSY at once; busy_timeout does not retry an upgrade. With
// _txlock=immediate every BeginTx takes the write lock up front, so a second
// writer waits on busy_timeout instead of failing.
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand-new, empty database.
	// Pin the pool to a single connection so all queries see the same data.
	if dbPath == memoryPath {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query, which is much harder to debug.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode lets readers proceed while a write is in progress.
	// It is stored in the database file, so running it once is enough.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping checks that the database is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent: it won't error if the table exists,
// so migrate runs safely on every start.
func (db *DB) migrate() error {
	// username is UNIQUE: the service checks for an existing account first,
	// but two concurrent signups can both pass that check. The constraint
	// turns the loser into a Conflict instead of a duplicate row.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			username   TEXT NOT NULL UNIQUE,
			password   TEXT NOT NULL,
			role       TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL DEFAULT '',
			image      TEXT,
			video      TEXT,
			likes      INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// The AUTOINCREMENT id is the append order of a post's comments.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			author     TEXT NOT NULL DEFAULT '',
			text       TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id, id);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	return nil
}
