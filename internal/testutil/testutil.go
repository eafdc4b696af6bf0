// Package testutil provides shared test helpers for setting up libraries and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name(), DiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// DiscardLogger returns a logger that drops everything, keeping test output clean.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestLibrary creates a temporary comic library tree. comics maps a comic
// folder name to its chapters, each chapter being a folder name and the
// image files it holds. Files get one-byte bodies; the scanner never
// decodes them.
func TestLibrary(t *testing.T, comics map[string]map[string][]string) string {
	t.Helper()
	root := t.TempDir()
	for comic, chapters := range comics {
		if err := os.MkdirAll(filepath.Join(root, comic), 0o755); err != nil {
			t.Fatal(err)
		}
		for chapter, images := range chapters {
			dir := filepath.Join(root, comic, chapter)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				t.Fatal(err)
			}
			for _, img := range images {
				if err := os.WriteFile(filepath.Join(dir, img), []byte{0}, 0o644); err != nil {
					t.Fatal(err)
				}
			}
		}
	}
	return root
}
