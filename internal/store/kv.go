package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/raido/internal/apperr"
)

// Logical keys of the kv namespace.
const (
	KeyComics   = "comics"
	KeyProgress = "progress"
	KeyHistory  = "history"
	KeySettings = "settings"
	KeyTheme    = "theme"
)

// Get deserializes the value stored at key into T. A missing key or a value
// that fails to decode returns def: corruption is non-fatal and never
// surfaces to the caller.
func Get[T any](db *DB, key string, def T) T {
	var raw string
	err := db.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			db.logger.Warn("kv: get failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return def
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		db.logger.Warn("kv: corrupt value, using default", slog.String("key", key), slog.String("error", err.Error()))
		return def
	}
	return v
}

// GetRaw returns the stored JSON at key, or nil when absent.
func (db *DB) GetRaw(key string) []byte {
	var raw string
	if err := db.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw); err != nil {
		return nil
	}
	return []byte(raw)
}

// Set serializes value and writes it at key, reporting success.
//
// Before writing it estimates the total kv footprint; if the write would
// likely exceed the quota threshold it evicts the least-critical key
// (history, which can be regenerated) to free room. If the write still fails
// it evicts history, removes the stale value at key, and retries once. A
// false return means the data is session-only and the caller should surface
// a non-blocking warning; it never panics or throws past this boundary.
func (db *DB) Set(key string, value any) bool {
	serialized, err := json.Marshal(value)
	if err != nil {
		db.logger.Error("kv: marshal failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}

	if db.footprintExcluding(key)+entrySize(key, serialized) > db.quota {
		db.logger.Warn("kv: estimated footprint over quota, evicting history",
			slog.String("key", key),
			slog.Int("size", len(serialized)))
		db.Remove(key)
		db.evictHistory()
	}

	if err := db.put(key, serialized); err != nil {
		db.logger.Warn("kv: write failed, retrying after eviction",
			slog.String("key", key), slog.String("error", err.Error()))
		db.evictHistory()
		db.Remove(key)
		if err := db.put(key, serialized); err != nil {
			db.logger.Error("kv: write failed after eviction",
				slog.String("key", key), slog.String("error", err.Error()))
			return false
		}
	}
	return true
}

// Remove deletes the value at key. Removal failures are logged and ignored.
func (db *DB) Remove(key string) {
	if _, err := db.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		db.logger.Warn("kv: remove failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// put upserts the entry, enforcing the quota as a hard cap the way a browser
// quota would reject the write.
func (db *DB) put(key string, serialized []byte) error {
	if db.footprintExcluding(key)+entrySize(key, serialized) > db.quota {
		return fmt.Errorf("kv: put %s: %w", key, apperr.ErrQuotaExceeded)
	}
	_, err := db.conn.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(serialized))
	if err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	return nil
}

// footprintExcluding estimates the stored size of every entry except key.
func (db *DB) footprintExcluding(key string) int64 {
	var total sql.NullInt64
	err := db.conn.QueryRow(
		`SELECT SUM(LENGTH(key) + LENGTH(value)) FROM kv WHERE key != ?`, key,
	).Scan(&total)
	if err != nil || !total.Valid {
		return 0
	}
	return total.Int64
}

func (db *DB) evictHistory() {
	db.Remove(KeyHistory)
	db.logger.Info("kv: cleared history to free storage space")
}

func entrySize(key string, serialized []byte) int64 {
	return int64(len(key) + len(serialized))
}
