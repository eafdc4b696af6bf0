// Package store provides SQLite-backed persistence: a small quota-aware
// key/value namespace for library metadata, and a handle table mapping
// comics to the folders they were scanned from.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS handles (
	comic_id TEXT PRIMARY KEY,
	root     TEXT NOT NULL,
	saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DefaultQuota is the safety threshold for the kv namespace. Writes that
// would push the total footprint past it trigger best-effort eviction.
const DefaultQuota int64 = 5 * 1024 * 1024

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn   *sql.DB
	quota  int64
	logger *slog.Logger
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{conn: conn, quota: DefaultQuota, logger: logger}, nil
}

// SetQuota overrides the kv footprint threshold (tests use tiny budgets).
func (db *DB) SetQuota(n int64) {
	db.quota = n
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
