package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrArticleExists = errors.New("article already exists")
	ErrNotFound      = errors.New("not found")
)

// resettableTables are cleared by Reset, in order.
var resettableTables = []string{"articles", "request_cache"}

type DB struct {
	*sql.DB
}

// New creates a new database connection and initializes schema
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	d := &DB{db}
	if err := d.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return d, nil
}

// dsn builds the driver URI. Timestamps are written in a lexically sortable
// layout so range filters and ORDER BY work on the stored text.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
}

// Wrap adopts an already opened connection without touching the schema.
func Wrap(db *sql.DB) *DB {
	return &DB{db}
}

// initSchema creates database tables if they don't exist
func (db *DB) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMP,
			scraped_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS request_cache (
			url_hash TEXT PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			body TEXT NOT NULL,
			fetched_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);
		CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at);
		CREATE INDEX IF NOT EXISTS idx_request_cache_fetched_at ON request_cache(fetched_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

// Reset empties every table. The autoincrement sequence is kept so ids are never reused.
func (db *DB) Reset(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range resettableTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset: %w", err)
	}
	return nil
}

// Remove deletes the database file along with its WAL and shared-memory companions.
func Remove(dbPath string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("database file %s: %w", dbPath, err)
	}

	if err := os.Remove(dbPath); err != nil {
		return fmt.Errorf("removing database file: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", dbPath+suffix, err)
		}
	}
	return nil
}

// nullTime converts an optional time into a driver value, normalized to UTC.
func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}
