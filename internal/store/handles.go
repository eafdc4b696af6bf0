package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/starford/raido/internal/apperr"
)

// LibraryRootID is the reserved handle key for the default library folder,
// used for silent rescans at startup.
const LibraryRootID = "__library_root__"

// SaveHandle records the folder a comic was scanned from. Callers treat
// handle capture as best-effort: failures are reported, logged by the
// caller, and never abort the scan that produced the comic.
func (db *DB) SaveHandle(comicID, root string) error {
	_, err := db.conn.Exec(`
		INSERT INTO handles (comic_id, root, saved_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(comic_id) DO UPDATE SET root = excluded.root, saved_at = excluded.saved_at
	`, comicID, root)
	if err != nil {
		return fmt.Errorf("store: save handle %s: %w", comicID, err)
	}
	return nil
}

// Handle returns the saved folder for a comic, or apperr.ErrNotFound.
func (db *DB) Handle(comicID string) (string, error) {
	var root string
	err := db.conn.QueryRow(`SELECT root FROM handles WHERE comic_id = ?`, comicID).Scan(&root)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get handle %s: %w", comicID, err)
	}
	return root, nil
}

// ResolveHandle returns the saved folder for a comic after verifying it is
// still a readable directory. A handle whose directory vanished or whose
// permission was revoked yields apperr.ErrStaleHandle.
func (db *DB) ResolveHandle(comicID string) (string, error) {
	root, err := db.Handle(comicID)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("store: handle %s (%s): %w", comicID, root, apperr.ErrStaleHandle)
	}
	return root, nil
}

// AllHandles returns every saved comic_id → root mapping.
func (db *DB) AllHandles() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT comic_id, root FROM handles`)
	if err != nil {
		return nil, fmt.Errorf("store: all handles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, root string
		if err := rows.Scan(&id, &root); err != nil {
			return nil, err
		}
		out[id] = root
	}
	return out, rows.Err()
}

// RemoveHandle deletes the saved folder reference for a comic.
func (db *DB) RemoveHandle(comicID string) error {
	if _, err := db.conn.Exec(`DELETE FROM handles WHERE comic_id = ?`, comicID); err != nil {
		return fmt.Errorf("store: remove handle %s: %w", comicID, err)
	}
	return nil
}
