// Package scanner walks a granted folder tree and discovers comics.
//
// The layout is fixed: the root's immediate subfolders are comics, a comic's
// immediate subfolders are chapters, and a chapter's immediate files are
// pages. Failures below the root are scoped to the unit being walked: a bad
// comic or chapter folder is logged and skipped, partial results are still
// returned. Only an unreadable root fails the whole scan.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// imageExts is the fixed allow-list of page file extensions.
var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
	".bmp":  {},
}

// IsImageFile reports whether name has an allow-listed image extension,
// case-insensitively.
func IsImageFile(name string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// HandleSaver records the folder a comic was scanned from so the comic's
// images can be repaired in a later session.
type HandleSaver interface {
	SaveHandle(comicID, root string) error
}

// Scanner discovers comics under user-granted folder roots.
type Scanner struct {
	handles HandleSaver
	logger  *slog.Logger
}

// New creates a Scanner. handles may be nil, in which case scanned comics
// are simply not registered for later repair.
func New(handles HandleSaver, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{handles: handles, logger: logger}
}

// Scan walks root and returns every comic found, sorted by title.
//
// After producing a comic its root folder is registered with the handle
// store; registration failures are logged, not fatal. ctx is checked between
// comic folders so a server shutdown stops a long rescan; a cancelled scan
// returns no comics, only the context error.
func (s *Scanner) Scan(ctx context.Context, root string) ([]models.Comic, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scanner: read root %s: %w", root, err)
	}

	var comics []models.Comic
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		comic, err := s.scanComic(e.Name(), filepath.Join(root, e.Name()))
		if err != nil {
			s.logger.Error("scan: comic folder failed",
				slog.String("comic", e.Name()), slog.String("error", err.Error()))
			continue
		}
		if comic == nil {
			s.logger.Warn("scan: comic folder has no valid chapters", slog.String("comic", e.Name()))
			continue
		}
		comics = append(comics, *comic)

		if s.handles != nil {
			if err := s.handles.SaveHandle(comic.ID, root); err != nil {
				s.logger.Warn("scan: save handle failed",
					slog.String("comic", comic.ID), slog.String("error", err.Error()))
			}
		}
	}

	SortComics(comics)
	return comics, nil
}

// ReloadComic re-locates the immediate subfolder named comicID under root
// and re-runs the comic-level scan. Returns apperr.ErrNotFound when no such
// folder exists or it yields no valid chapters.
func (s *Scanner) ReloadComic(ctx context.Context, comicID, root string) (models.Comic, error) {
	if err := ctx.Err(); err != nil {
		return models.Comic{}, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return models.Comic{}, fmt.Errorf("scanner: read root %s: %w", root, err)
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() != comicID {
			continue
		}
		comic, err := s.scanComic(e.Name(), filepath.Join(root, e.Name()))
		if err != nil {
			return models.Comic{}, err
		}
		if comic == nil {
			return models.Comic{}, fmt.Errorf("scanner: reload %s: %w", comicID, apperr.ErrNotFound)
		}
		return *comic, nil
	}
	return models.Comic{}, fmt.Errorf("scanner: reload %s: %w", comicID, apperr.ErrNotFound)
}

// ReloadChapter re-scans a single chapter folder of a comic under root.
func (s *Scanner) ReloadChapter(ctx context.Context, comicID, chapterName, root string) (models.Chapter, error) {
	if err := ctx.Err(); err != nil {
		return models.Chapter{}, err
	}
	comicDir := filepath.Join(root, comicID)
	if info, err := os.Stat(comicDir); err != nil || !info.IsDir() {
		return models.Chapter{}, fmt.Errorf("scanner: reload chapter %s/%s: %w", comicID, chapterName, apperr.ErrNotFound)
	}
	entries, err := os.ReadDir(comicDir)
	if err != nil {
		return models.Chapter{}, fmt.Errorf("scanner: read comic %s: %w", comicID, err)
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() != chapterName {
			continue
		}
		chapter, err := s.scanChapter(e.Name(), filepath.Join(comicDir, e.Name()))
		if err != nil {
			return models.Chapter{}, err
		}
		if chapter == nil {
			return models.Chapter{}, fmt.Errorf("scanner: reload chapter %s/%s: %w", comicID, chapterName, apperr.ErrNotFound)
		}
		return *chapter, nil
	}
	return models.Chapter{}, fmt.Errorf("scanner: reload chapter %s/%s: %w", comicID, chapterName, apperr.ErrNotFound)
}

// scanComic walks one comic folder. A nil comic with nil error means the
// folder held no valid chapters and should be dropped with a warning.
func (s *Scanner) scanComic(name, dir string) (*models.Comic, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanner: read comic %s: %w", name, err)
	}

	var chapters []models.Chapter
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		chapter, err := s.scanChapter(e.Name(), filepath.Join(dir, e.Name()))
		if err != nil {
			s.logger.Error("scan: chapter folder failed",
				slog.String("comic", name), slog.String("chapter", e.Name()),
				slog.String("error", err.Error()))
			continue
		}
		if chapter == nil {
			s.logger.Warn("scan: chapter folder has no valid images",
				slog.String("comic", name), slog.String("chapter", e.Name()))
			continue
		}
		chapters = append(chapters, *chapter)
	}

	if len(chapters) == 0 {
		return nil, nil
	}

	sortChaptersNatural(chapters)

	comic := &models.Comic{
		ID:       name,
		Title:    name,
		Cover:    chapters[0].Images[0],
		Chapters: chapters,
		ScanTime: time.Now(),
	}
	s.applySidecar(comic, dir)
	return comic, nil
}

// scanChapter walks one chapter folder. A nil chapter with nil error means
// no resolvable images were found.
func (s *Scanner) scanChapter(name, dir string) (*models.Chapter, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanner: read chapter %s: %w", name, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, nil
	}

	sortNatural(names)

	images := make([]models.ImageRef, 0, len(names))
	for _, n := range names {
		path := filepath.Join(dir, n)
		if _, err := os.Stat(path); err != nil {
			s.logger.Warn("scan: page unreadable",
				slog.String("chapter", name), slog.String("file", n),
				slog.String("error", err.Error()))
			continue
		}
		images = append(images, models.NewFileRef(n, path))
	}
	if len(images) == 0 {
		return nil, nil
	}

	return &models.Chapter{
		Name:       name,
		Path:       name,
		Images:     images,
		ImageCount: len(images),
	}, nil
}

// sidecar is the optional comic.yaml a folder may carry to override the
// displayed title and attach author/tags. The comic id stays the folder
// name regardless, so reconciliation keys never move.
type sidecar struct {
	Title  string   `yaml:"title"`
	Author string   `yaml:"author"`
	Tags   []string `yaml:"tags"`
}

func (s *Scanner) applySidecar(comic *models.Comic, dir string) {
	data, err := os.ReadFile(filepath.Join(dir, "comic.yaml"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("scan: sidecar unreadable",
				slog.String("comic", comic.ID), slog.String("error", err.Error()))
		}
		return
	}
	var sc sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		s.logger.Warn("scan: sidecar invalid",
			slog.String("comic", comic.ID), slog.String("error", err.Error()))
		return
	}
	if sc.Title != "" {
		comic.Title = sc.Title
	}
	comic.Author = sc.Author
	comic.Tags = sc.Tags
}
