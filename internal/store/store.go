// Package store encapsulates the embedded SQLite database and the typed
// registries built on top of it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a lookup for a record that does not exist.
var ErrNotFound = errors.New("record not found")

// dbtx captures the subset of *sql.DB behavior the registries rely on,
// keeping them testable against any database/sql handle.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// openSQLite is overridable for tests.
var openSQLite = func(dsn string) (*sql.DB, error) {
	return sql.Open("sqlite", dsn)
}

// Manager owns the SQLite handle shared by all registries.
type Manager struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and verifies
// connectivity with a ping. WAL mode keeps concurrent readers unblocked
// while writes are serialized by the engine.
func Open(ctx context.Context, path string) (*Manager, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := openSQLite(dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	return &Manager{db: db}, nil
}

// DB returns the underlying database handle.
func (m *Manager) DB() *sql.DB {
	if m == nil {
		return nil
	}
	return m.db
}

// Ping verifies the database is still reachable; used by the health server.
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil || m.db == nil {
		return errors.New("store manager is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return m.db.PingContext(ctx)
}

// EnsureSchema creates the bot's tables when they do not already exist.
// Record ids come from AUTOINCREMENT primary keys, so inserted ids are
// monotonically increasing and never reused.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	if m == nil || m.db == nil {
		return errors.New("store manager is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			user_id INTEGER PRIMARY KEY,
			granted_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			url TEXT NOT NULL,
			btn_text TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS content (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id TEXT NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

// Close closes the database handle.
func (m *Manager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}

	return m.db.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
