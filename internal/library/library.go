// Package library owns the in-memory comic library and reconciles it
// against the persisted metadata and the folders comics were scanned from.
//
// The service is constructed once at process start and passed to whatever
// needs it; there is no ambient global state. All mutations to the library
// list and the displayed slice happen through its methods.
package library

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/starford/raido/internal/metadata"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/sample"
	"github.com/starford/raido/internal/scanner"
	"github.com/starford/raido/internal/store"
)

// DefaultPageSize is how many comics a single page of the library exposes.
const DefaultPageSize = 20

// Notifier receives push notifications about library mutations and scan
// lifecycle, for SSE fan-out. May be nil.
type Notifier interface {
	PublishComicEvent(kind, comicID string)
	PublishScanEvent(kind string, count int)
}

// Service is the library reconciler.
type Service struct {
	db       *store.DB
	scanner  *scanner.Scanner
	notifier Notifier
	logger   *slog.Logger
	pageSize int

	mu        sync.Mutex
	all       []models.Comic
	displayed []models.Comic
	degraded  bool // last persist failed; data is session-only
}

// NewService creates a library service. pageSize <= 0 selects the default.
func NewService(db *store.DB, sc *scanner.Scanner, notifier Notifier, pageSize int, logger *slog.Logger) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, scanner: sc, notifier: notifier, logger: logger, pageSize: pageSize}
}

// storedComic is the decode shape for the persisted comics key. It is a
// superset of ComicMetadata: legacy records from the era when full comics
// were persisted carry image path lists, which is how they are detected.
type storedComic struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	Cover           string          `json:"cover,omitempty"`
	Chapters        []storedChapter `json:"chapters"`
	ScanTime        time.Time       `json:"scan_time"`
	IsBuiltInSample bool            `json:"is_built_in_sample,omitempty"`
}

type storedChapter struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Images     []string `json:"images,omitempty"`
	ImageCount int      `json:"image_count"`
}

// Init brings the library up from a cold start: it loads persisted metadata,
// migrates the legacy full-comic format in place, repairs image refs from
// saved folder handles where possible, seeds the sample library when nothing
// is persisted, and exposes the first page.
func (s *Service) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.db.GetRaw(store.KeyComics)

	var records []storedComic
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &records); err != nil {
			s.logger.Warn("library: persisted comics corrupt, starting fresh", slog.String("error", err.Error()))
			records = nil
		}
	}

	switch {
	case len(records) == 0:
		s.logger.Info("library: no persisted metadata, seeding sample library")
		s.all = append([]models.Comic(nil), sample.Comics()...)
		s.persistLocked()

	case isLegacyFormat(records):
		s.logger.Info("library: migrating legacy storage format to metadata-only")
		s.all = legacyToComics(records)
		s.persistLocked()

	default:
		s.all = s.restoreFromMetadata(ctx, records)
	}

	scanner.SortComics(s.all)
	s.loadMoreLocked()
}

// restoreFromMetadata decodes each persisted record and, for any comic whose
// chapters lost their images, attempts a repair scan from its saved folder
// handle. Absent or stale handles keep the image-empty comic: still
// browsable by title, readable again after a manual rescan.
func (s *Service) restoreFromMetadata(ctx context.Context, records []storedComic) []models.Comic {
	metas := make([]models.ComicMetadata, 0, len(records))
	for _, r := range records {
		metas = append(metas, r.toMetadata())
	}
	comics := metadata.ToComicList(metas)

	handles, err := s.db.AllHandles()
	if err != nil {
		s.logger.Warn("library: load handles failed", slog.String("error", err.Error()))
		handles = nil
	}

	out := make([]models.Comic, 0, len(comics))
	for _, comic := range comics {
		if !comic.NeedsImages() {
			out = append(out, comic)
			continue
		}
		root, ok := handles[comic.ID]
		if !ok {
			out = append(out, comic)
			continue
		}
		repaired, err := s.scanner.ReloadComic(ctx, comic.ID, root)
		if err != nil {
			s.logger.Warn("library: image repair failed",
				slog.String("comic", comic.ID), slog.String("error", err.Error()))
			out = append(out, comic)
			continue
		}
		out = append(out, repaired)
	}
	return out
}

// AddComics merges freshly scanned comics into the library. A comic whose id
// already exists is replaced wholesale: the newer scan wins, which refreshes
// refs that expired since the last session. New comics are spliced straight
// into the displayed slice so they show up without a load-more. The whole
// library is re-sorted by title and its metadata projection persisted. This
// never removes comics. Two scanned roots sharing a folder name collide
// here: the later scan silently replaces the earlier comic (known
// limitation).
func (s *Service) AddComics(ctx context.Context, newComics []models.Comic) {
	if len(newComics) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, nc := range newComics {
		if i := indexByID(s.all, nc.ID); i >= 0 {
			s.all[i] = nc
			if di := indexByID(s.displayed, nc.ID); di >= 0 {
				s.displayed[di] = nc
			}
			s.notifyComic("comic-updated", nc.ID)
		} else {
			s.all = append(s.all, nc)
			s.displayed = append(s.displayed, nc)
			s.notifyComic("comic-added", nc.ID)
		}
	}

	scanner.SortComics(s.all)
	scanner.SortComics(s.displayed)
	s.persistLocked()
}

// LoadMore exposes the next page of the sorted library, appending up to
// pageSize not-yet-displayed comics. Once everything is displayed further
// calls are no-ops.
func (s *Service) LoadMore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadMoreLocked()
}

func (s *Service) loadMoreLocked() {
	if len(s.displayed) >= len(s.all) {
		return
	}
	shown := make(map[string]struct{}, len(s.displayed))
	for _, c := range s.displayed {
		shown[c.ID] = struct{}{}
	}
	added := 0
	for _, c := range s.all {
		if added == s.pageSize {
			break
		}
		if _, ok := shown[c.ID]; ok {
			continue
		}
		s.displayed = append(s.displayed, c)
		added++
	}
	scanner.SortComics(s.displayed)
}

// EnsureImagesLoaded repairs a comic's image refs from its saved folder
// handle if any chapter lost them. On any failure (no handle, stale handle,
// failed rescan) the unrepaired comic is returned unchanged and the caller
// proceeds with whatever images exist.
func (s *Service) EnsureImagesLoaded(ctx context.Context, id string) (models.Comic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexByID(s.all, id)
	if i < 0 {
		return models.Comic{}, false
	}
	comic := s.all[i]
	if !comic.NeedsImages() {
		return comic, true
	}

	root, err := s.db.ResolveHandle(id)
	if err != nil {
		s.logger.Warn("library: no usable handle for comic",
			slog.String("comic", id), slog.String("error", err.Error()))
		return comic, true
	}
	repaired, err := s.scanner.ReloadComic(ctx, id, root)
	if err != nil {
		s.logger.Warn("library: reload failed",
			slog.String("comic", id), slog.String("error", err.Error()))
		return comic, true
	}

	s.all[i] = repaired
	if di := indexByID(s.displayed, id); di >= 0 {
		s.displayed[di] = repaired
	}
	s.notifyComic("comic-updated", id)
	return repaired, true
}

// ScanRoot scans a user-granted folder and merges the result. The first
// scanned root is also saved as the default library root for silent rescans
// in later sessions. A zero count with nil error means the tree held no
// comics, which callers surface as an explanatory message, not a failure.
func (s *Service) ScanRoot(ctx context.Context, root string) (int, error) {
	abs, err := filepath.Abs(root)
	if err == nil {
		root = abs
	}

	if _, hErr := s.db.Handle(store.LibraryRootID); hErr != nil {
		if sErr := s.db.SaveHandle(store.LibraryRootID, root); sErr != nil {
			s.logger.Warn("library: save default root failed", slog.String("error", sErr.Error()))
		}
	}

	s.notifyScan("scan-started", 0)
	comics, err := s.scanner.Scan(ctx, root)
	if err != nil {
		s.notifyScan("scan-failed", 0)
		return 0, err
	}
	s.AddComics(ctx, comics)
	s.notifyScan("scan-finished", len(comics))
	return len(comics), nil
}

// RescanSaved re-scans the saved default library root, if one exists and is
// still usable. Used at startup; absence is normal and reported as false.
func (s *Service) RescanSaved(ctx context.Context) bool {
	root, err := s.db.ResolveHandle(store.LibraryRootID)
	if err != nil {
		s.logger.Debug("library: no saved default root", slog.String("error", err.Error()))
		return false
	}
	comics, err := s.scanner.Scan(ctx, root)
	if err != nil {
		s.logger.Warn("library: silent rescan failed", slog.String("error", err.Error()))
		return false
	}
	if len(comics) == 0 {
		return false
	}
	s.AddComics(ctx, comics)
	return true
}

// Get returns the comic with the given id.
func (s *Service) Get(id string) (models.Comic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexByID(s.all, id); i >= 0 {
		return s.all[i], true
	}
	return models.Comic{}, false
}

// All returns a copy of the full sorted library.
func (s *Service) All() []models.Comic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comic(nil), s.all...)
}

// Displayed returns a copy of the currently exposed page slice.
func (s *Service) Displayed() []models.Comic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comic(nil), s.displayed...)
}

// Count returns the number of comics in the library.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.all)
}

// HasMore reports whether LoadMore would expose more comics.
func (s *Service) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.displayed) < len(s.all)
}

// PersistDegraded reports whether the last metadata write failed, meaning
// the library is session-only until storage recovers.
func (s *Service) PersistDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// persistLocked writes the metadata projection of the entire library.
func (s *Service) persistLocked() {
	metas := metadata.ToMetadataList(s.all)
	if !s.db.Set(store.KeyComics, metas) {
		s.logger.Warn("library: failed to persist metadata, data is session-only")
		s.degraded = true
		return
	}
	s.degraded = false
}

func (s *Service) notifyComic(kind, id string) {
	if s.notifier != nil {
		s.notifier.PublishComicEvent(kind, id)
	}
}

func (s *Service) notifyScan(kind string, count int) {
	if s.notifier != nil {
		s.notifier.PublishScanEvent(kind, count)
	}
}

func indexByID(comics []models.Comic, id string) int {
	for i := range comics {
		if comics[i].ID == id {
			return i
		}
	}
	return -1
}

func isLegacyFormat(records []storedComic) bool {
	return len(records) > 0 &&
		len(records[0].Chapters) > 0 &&
		len(records[0].Chapters[0].Images) > 0
}

func (r storedComic) toMetadata() models.ComicMetadata {
	meta := models.ComicMetadata{
		ID:              r.ID,
		Title:           r.Title,
		Author:          r.Author,
		Tags:            r.Tags,
		ScanTime:        r.ScanTime,
		IsBuiltInSample: r.IsBuiltInSample,
	}
	for _, ch := range r.Chapters {
		meta.Chapters = append(meta.Chapters, models.ChapterMetadata{
			Name:       ch.Name,
			Path:       ch.Path,
			ImageCount: ch.ImageCount,
		})
	}
	return meta
}

// legacyToComics converts legacy full-comic records, whose stored image
// paths become file-backed refs for this session.
func legacyToComics(records []storedComic) []models.Comic {
	out := make([]models.Comic, 0, len(records))
	for _, r := range records {
		comic := models.Comic{
			ID:       r.ID,
			Title:    r.Title,
			Author:   r.Author,
			Tags:     r.Tags,
			ScanTime: r.ScanTime,
		}
		if r.Cover != "" {
			comic.Cover = models.NewFileRef(filepath.Base(r.Cover), r.Cover)
		}
		for _, ch := range r.Chapters {
			chapter := models.Chapter{Name: ch.Name, Path: ch.Path, ImageCount: ch.ImageCount}
			for _, p := range ch.Images {
				chapter.Images = append(chapter.Images, models.NewFileRef(filepath.Base(p), p))
			}
			if chapter.ImageCount == 0 {
				chapter.ImageCount = len(chapter.Images)
			}
			comic.Chapters = append(comic.Chapters, chapter)
		}
		out = append(out, comic)
	}
	return out
}
