// Package settings owns the persisted reader preferences and theme.
package settings

import (
	"fmt"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// Service reads and writes reader settings through the kv store.
type Service struct {
	db *store.DB
}

// NewService creates a settings service.
func NewService(db *store.DB) *Service {
	return &Service{db: db}
}

// Settings returns the stored reader settings, or the defaults.
func (s *Service) Settings() models.ReaderSettings {
	return store.Get(s.db, store.KeySettings, models.DefaultSettings())
}

// SetSettings persists the reader settings, reporting success.
func (s *Service) SetSettings(rs models.ReaderSettings) bool {
	return s.db.Set(store.KeySettings, rs)
}

// Theme returns the stored theme, defaulting to dark.
func (s *Service) Theme() string {
	return store.Get(s.db, store.KeyTheme, models.ThemeDark)
}

// SetTheme persists the theme.
func (s *Service) SetTheme(theme string) error {
	if theme != models.ThemeLight && theme != models.ThemeDark {
		return fmt.Errorf("settings: unknown theme %q", theme)
	}
	if !s.db.Set(store.KeyTheme, theme) {
		return fmt.Errorf("settings: persist theme failed")
	}
	return nil
}
