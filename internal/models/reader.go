package models

import "time"

// ReadingProgress is the single bookmark kept per comic: the most recently
// read chapter and page. PageIndex is 0-based into the chapter's images.
type ReadingProgress struct {
	ComicID      string    `json:"comic_id"`
	ChapterName  string    `json:"chapter_name"`
	PageIndex    int       `json:"page_index"`
	PageName     string    `json:"page_name"`
	LastReadTime time.Time `json:"last_read_time"`
}

// ReadingHistory is one entry in the recently-read list, most recent first.
// A comic appears at most once; revisits replace its entry in place.
type ReadingHistory struct {
	ComicID      string    `json:"comic_id"`
	Title        string    `json:"title"`
	ChapterName  string    `json:"chapter_name"`
	PageIndex    int       `json:"page_index"`
	LastReadTime time.Time `json:"last_read_time"`
}

// ReaderSettings holds the reading-view preferences.
type ReaderSettings struct {
	BackgroundColor  string `json:"background_color"`
	Brightness       int    `json:"brightness"`
	AutoTurnPage     bool   `json:"auto_turn_page"`
	AutoTurnInterval int    `json:"auto_turn_interval"`
}

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultSettings returns the reader defaults applied when nothing is stored.
func DefaultSettings() ReaderSettings {
	return ReaderSettings{
		BackgroundColor:  "#000000",
		Brightness:       100,
		AutoTurnPage:     false,
		AutoTurnInterval: 5,
	}
}
