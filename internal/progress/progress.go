// Package progress tracks per-comic reading positions and the
// recently-read history.
package progress

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// HistoryCap bounds the recently-read list.
const HistoryCap = 50

// Service owns the progress map and history list. One progress record is
// kept per comic, the most recent.
type Service struct {
	db     *store.DB
	logger *slog.Logger

	mu       sync.Mutex
	progress map[string]models.ReadingProgress
	history  []models.ReadingHistory
}

// NewService loads persisted progress and history. Corrupt or missing state
// comes back as empty, never as an error.
func NewService(db *store.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		logger:   logger,
		progress: store.Get(db, store.KeyProgress, map[string]models.ReadingProgress{}),
		history:  store.Get(db, store.KeyHistory, []models.ReadingHistory{}),
	}
}

// Update records a new reading position and folds it into the history:
// the comic's existing history entry is replaced in place, the list is
// re-sorted by last-read time descending and capped. Returns false when
// persistence failed and the update is session-only.
func (s *Service) Update(p models.ReadingProgress, title string) bool {
	if title == "" {
		title = p.ComicID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[p.ComicID] = p
	savedProgress := s.db.Set(store.KeyProgress, s.progress)

	entry := models.ReadingHistory{
		ComicID:      p.ComicID,
		Title:        title,
		ChapterName:  p.ChapterName,
		PageIndex:    p.PageIndex,
		LastReadTime: p.LastReadTime,
	}
	if i := s.historyIndex(p.ComicID); i >= 0 {
		s.history[i] = entry
	} else {
		s.history = append([]models.ReadingHistory{entry}, s.history...)
	}
	sort.SliceStable(s.history, func(i, j int) bool {
		return s.history[i].LastReadTime.After(s.history[j].LastReadTime)
	})
	if len(s.history) > HistoryCap {
		s.history = s.history[:HistoryCap]
	}
	savedHistory := s.db.Set(store.KeyHistory, s.history)

	if !savedProgress || !savedHistory {
		s.logger.Warn("progress: persist failed, update is session-only",
			slog.String("comic", p.ComicID))
		return false
	}
	return true
}

// Get returns the comic's reading progress.
func (s *Service) Get(comicID string) (models.ReadingProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[comicID]
	return p, ok
}

// Percent reports how far through a comic the reader is, as pages read over
// the comic's total page count, clamped to 100.
func (s *Service) Percent(comic models.Comic) int {
	p, ok := s.Get(comic.ID)
	if !ok {
		return 0
	}
	total := comic.TotalPages()
	if total == 0 {
		return 0
	}
	read := p.PageIndex + 1
	for _, ch := range comic.Chapters {
		if ch.Name == p.ChapterName {
			break
		}
		read += ch.ImageCount
	}
	percent := read * 100 / total
	if percent > 100 {
		percent = 100
	}
	return percent
}

// Finished reports whether the reader reached the last page of the last
// chapter.
func (s *Service) Finished(comic models.Comic) bool {
	p, ok := s.Get(comic.ID)
	if !ok || len(comic.Chapters) == 0 {
		return false
	}
	last := comic.Chapters[len(comic.Chapters)-1]
	return p.ChapterName == last.Name && p.PageIndex >= last.ImageCount-1
}

// History returns a copy of the full history, most recent first.
func (s *Service) History() []models.ReadingHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReadingHistory(nil), s.history...)
}

// Recent returns the n most recent history entries.
func (s *Service) Recent(n int) []models.ReadingHistory {
	h := s.History()
	if len(h) > n {
		h = h[:n]
	}
	return h
}

func (s *Service) historyIndex(comicID string) int {
	for i := range s.history {
		if s.history[i].ComicID == comicID {
			return i
		}
	}
	return -1
}
