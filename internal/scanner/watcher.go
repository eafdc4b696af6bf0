package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/models"
)

// ApplyFunc receives the result of a watcher-triggered rescan, typically the
// library's AddComics.
type ApplyFunc func(ctx context.Context, comics []models.Comic)

// Watch monitors the default library root with fsnotify and re-runs a full
// scan after changes settle, until ctx is cancelled. Events are debounced so
// a batch copy of a new comic triggers one rescan, not hundreds. New
// directories created at runtime are added to the watch list.
//
// Rescans feed apply; a failed rescan is logged and the previous library
// state stays untouched.
func (s *Scanner) Watch(ctx context.Context, root string, apply ApplyFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	s.logger.Info("watcher: started", slog.String("root", root))

	// Debounce timer for the rescan.
	var rescanTimer *time.Timer
	var rescanCh <-chan time.Time

	scheduleRescan := func() {
		if rescanTimer == nil {
			rescanTimer = time.NewTimer(500 * time.Millisecond)
			rescanCh = rescanTimer.C
		} else {
			rescanTimer.Reset(500 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rescanTimer != nil {
				rescanTimer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-rescanCh:
			comics, scanErr := s.Scan(ctx, root)
			if scanErr != nil {
				s.logger.Warn("watcher: rescan failed", slog.String("error", scanErr.Error()))
				continue
			}
			s.logger.Info("watcher: rescan complete", slog.Int("comics", len(comics)))
			if len(comics) > 0 && apply != nil {
				apply(ctx, comics)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						s.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}
			// Anything below the root can change a comic's shape; the
			// debounced full rescan sorts out what actually changed.
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleRescan()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds dir and every directory beneath it to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
