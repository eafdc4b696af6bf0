package api

import (
	"time"

	"github.com/starford/raido/internal/models"
)

// ComicSummary is a lightweight library-list entry.
type ComicSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	ChapterCount int       `json:"chapter_count"`
	TotalPages   int       `json:"total_pages"`
	CoverURL     string    `json:"cover_url,omitempty"`
	NeedsRescan  bool      `json:"needs_rescan"`
	ScanTime     time.Time `json:"scan_time"`
	Percent      int       `json:"percent"`
}

// ChapterDetail describes one chapter in a comic response.
type ChapterDetail struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	ImageCount int    `json:"image_count"`
	Populated  bool   `json:"populated"`
}

// ComicDetail is the full comic response.
type ComicDetail struct {
	ID       string                  `json:"id"`
	Title    string                  `json:"title"`
	Author   string                  `json:"author,omitempty"`
	Tags     []string                `json:"tags,omitempty"`
	Chapters []ChapterDetail         `json:"chapters"`
	ScanTime time.Time               `json:"scan_time"`
	CoverURL string                  `json:"cover_url,omitempty"`
	Percent  int                     `json:"percent"`
	Progress *models.ReadingProgress `json:"progress,omitempty"`
}

// ComicListResponse wraps the displayed library page.
type ComicListResponse struct {
	Comics         []ComicSummary `json:"comics"`
	Total          int            `json:"total"`
	HasMore        bool           `json:"has_more"`
	StorageWarning bool           `json:"storage_warning,omitempty"`
}

// ScanRequest asks for a folder tree to be scanned into the library.
type ScanRequest struct {
	Path string `json:"path" validate:"required"`
}

// ScanResponse reports the outcome of a scan.
type ScanResponse struct {
	Added          int    `json:"added"`
	Message        string `json:"message,omitempty"`
	StorageWarning bool   `json:"storage_warning,omitempty"`
}

// UpdateProgressRequest is the body for PUT /progress/{id}.
type UpdateProgressRequest struct {
	ChapterName string `json:"chapter_name" validate:"required"`
	PageIndex   int    `json:"page_index"`
	PageName    string `json:"page_name"`
}

// ProgressResponse reports a comic's progress.
type ProgressResponse struct {
	Progress *models.ReadingProgress `json:"progress,omitempty"`
	Percent  int                     `json:"percent"`
	Finished bool                    `json:"finished"`
	Saved    bool                    `json:"saved"`
}

// HistoryResponse wraps the recently-read list.
type HistoryResponse struct {
	History []models.ReadingHistory `json:"history"`
}

// ThemeRequest and ThemeResponse carry the UI theme.
type ThemeRequest struct {
	Theme string `json:"theme" validate:"required"`
}

// ThemeResponse carries the stored theme.
type ThemeResponse struct {
	Theme string `json:"theme"`
}
