package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/testutil"
)

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"page1.jpg", true},
		{"page1.JPG", true},
		{"cover.Png", true},
		{"strip.webp", true},
		{"anim.gif", true},
		{"old.bmp", true},
		{"photo.jpeg", true},
		{"notes.txt", false},
		{"page.jpg.bak", false},
		{"noext", false},
		{".jpg", true},
	}
	for _, tt := range tests {
		if got := IsImageFile(tt.name); got != tt.want {
			t.Errorf("IsImageFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestScanFindsComicsAndChapters(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"One Piece": {
			"Chapter 1": {"01.jpg", "02.jpg", "03.jpg"},
			"Chapter 2": {"01.jpg", "02.jpg"},
		},
		"Naruto": {
			"Chapter 1": {"p1.png"},
		},
	})

	s := New(nil, testutil.DiscardLogger())
	comics, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(comics) != 2 {
		t.Fatalf("comics = %d, want 2", len(comics))
	}

	// Sorted by title.
	if comics[0].Title != "Naruto" || comics[1].Title != "One Piece" {
		t.Errorf("order = %q, %q", comics[0].Title, comics[1].Title)
	}

	op := comics[1]
	if op.ID != "One Piece" {
		t.Errorf("id = %q, want folder name", op.ID)
	}
	if len(op.Chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(op.Chapters))
	}
	if op.Chapters[0].ImageCount != 3 || op.Chapters[1].ImageCount != 2 {
		t.Errorf("image counts = %d, %d", op.Chapters[0].ImageCount, op.Chapters[1].ImageCount)
	}
	if op.Cover.IsZero() {
		t.Error("cover not set from first page of first chapter")
	}
	if op.ScanTime.IsZero() {
		t.Error("scan time not set")
	}
}

func TestScanNaturalPageOrder(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Foo": {
			"Ch 1": {"page10.jpg", "page2.jpg", "page1.jpg"},
		},
	})

	s := New(nil, testutil.DiscardLogger())
	comics, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	imgs := comics[0].Chapters[0].Images
	want := []string{"page1.jpg", "page2.jpg", "page10.jpg"}
	for i, w := range want {
		if imgs[i].Name != w {
			t.Errorf("page %d = %q, want %q", i, imgs[i].Name, w)
		}
	}
}

func TestScanNaturalChapterOrder(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Foo": {
			"Chapter 10": {"a.jpg"},
			"Chapter 2":  {"a.jpg"},
			"Chapter 1":  {"a.jpg"},
		},
	})

	s := New(nil, testutil.DiscardLogger())
	comics, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	chs := comics[0].Chapters
	want := []string{"Chapter 1", "Chapter 2", "Chapter 10"}
	for i, w := range want {
		if chs[i].Name != w {
			t.Errorf("chapter %d = %q, want %q", i, chs[i].Name, w)
		}
	}
}

func TestScanSkipsInvalidUnits(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Good": {
			"Ch 1": {"a.jpg", "b.jpg", "c.jpg"},
			"Ch 2": {},
		},
		"Empty": {},
	})
	// Loose files at the root and inside comics are ignored.
	if err := os.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "Good", "cover.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(nil, testutil.DiscardLogger())
	comics, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(comics) != 1 {
		t.Fatalf("comics = %d, want 1 (comic without chapters dropped)", len(comics))
	}
	if len(comics[0].Chapters) != 1 {
		t.Errorf("chapters = %d, want 1 (empty chapter dropped)", len(comics[0].Chapters))
	}
	if comics[0].Chapters[0].Name != "Ch 1" {
		t.Errorf("kept chapter = %q", comics[0].Chapters[0].Name)
	}
}

func TestScanFiltersNonImageFiles(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Foo": {
			"Ch 1": {"01.jpg", "notes.txt", "02.PNG", "Thumbs.db"},
		},
	})

	s := New(nil, testutil.DiscardLogger())
	comics, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	ch := comics[0].Chapters[0]
	if ch.ImageCount != 2 {
		t.Errorf("image count = %d, want 2", ch.ImageCount)
	}
}

func TestScanUnreadableRootFails(t *testing.T) {
	s := New(nil, testutil.DiscardLogger())
	if _, err := s.Scan(context.Background(), "/nonexistent/raido/root"); err == nil {
		t.Fatal("expected error for unreadable root")
	}
}

func TestScanCancelledContext(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Foo": {"Ch 1": {"a.jpg"}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(nil, testutil.DiscardLogger())
	comics, err := s.Scan(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	// A cancelled scan yields nothing; callers must not merge a half-walked
	// tree into the library.
	if comics != nil {
		t.Errorf("comics = %v, want nil on cancellation", comics)
	}
}

type handleRecorder struct {
	saved map[string]string
}

func (h *handleRecorder) SaveHandle(comicID, root string) error {
	if h.saved == nil {
		h.saved = make(map[string]string)
	}
	h.saved[comicID] = root
	return nil
}

func TestScanRegistersHandles(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Foo": {"Ch 1": {"a.jpg"}},
		"Bar": {"Ch 1": {"a.jpg"}},
	})

	rec := &handleRecorder{}
	s := New(rec, testutil.DiscardLogger())
	if _, err := s.Scan(context.Background(), root); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(rec.saved) != 2 {
		t.Fatalf("handles saved = %d, want 2", len(rec.saved))
	}
	if rec.saved["Foo"] != root || rec.saved["Bar"] != root {
		t.Errorf("unexpected handle roots: %v", rec.saved)
	}
}

func TestReloadComic(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Foo": {"Ch 1": {"a.jpg", "b.jpg"}},
	})

	s := New(nil, testutil.DiscardLogger())
	comic, err := s.ReloadComic(context.Background(), "Foo", root)
	if err != nil {
		t.Fatalf("ReloadComic: %v", err)
	}
	if comic.ID != "Foo" || comic.TotalPages() != 2 {
		t.Errorf("comic = %q with %d pages", comic.ID, comic.TotalPages())
	}

	if _, err := s.ReloadComic(context.Background(), "Missing", root); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReloadChapter(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Foo": {
			"Ch 1": {"a.jpg"},
			"Ch 2": {"a.jpg", "b.jpg", "c.jpg"},
		},
	})

	s := New(nil, testutil.DiscardLogger())
	ch, err := s.ReloadChapter(context.Background(), "Foo", "Ch 2", root)
	if err != nil {
		t.Fatalf("ReloadChapter: %v", err)
	}
	if ch.ImageCount != 3 {
		t.Errorf("image count = %d, want 3", ch.ImageCount)
	}

	if _, err := s.ReloadChapter(context.Background(), "Foo", "Ch 9", root); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSidecarOverridesTitleNotID(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"one-piece": {"Ch 1": {"a.jpg"}},
	})
	sidecar := "title: One Piece\nauthor: Eiichiro Oda\ntags: [shonen, adventure]\n"
	if err := os.WriteFile(filepath.Join(root, "one-piece", "comic.yaml"), []byte(sidecar), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(nil, testutil.DiscardLogger())
	comic, err := s.ReloadComic(context.Background(), "one-piece", root)
	if err != nil {
		t.Fatalf("ReloadComic: %v", err)
	}
	if comic.ID != "one-piece" {
		t.Errorf("id = %q, must stay the folder name", comic.ID)
	}
	if comic.Title != "One Piece" {
		t.Errorf("title = %q, want sidecar override", comic.Title)
	}
	if comic.Author != "Eiichiro Oda" || len(comic.Tags) != 2 {
		t.Errorf("author = %q, tags = %v", comic.Author, comic.Tags)
	}
}

func TestSidecarInvalidYAMLIgnored(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Foo": {"Ch 1": {"a.jpg"}},
	})
	if err := os.WriteFile(filepath.Join(root, "Foo", "comic.yaml"), []byte(":\tbroken\n  y"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(nil, testutil.DiscardLogger())
	comic, err := s.ReloadComic(context.Background(), "Foo", root)
	if err != nil {
		t.Fatalf("ReloadComic: %v", err)
	}
	if comic.Title != "Foo" {
		t.Errorf("title = %q, want folder name when sidecar is invalid", comic.Title)
	}
}
