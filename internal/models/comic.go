// Package models defines the domain types for Raido.
package models

import (
	"fmt"
	"os"
	"time"
)

// ImageRef is a session-scoped reference to one page's pixel data. It points
// either at a file on disk (scanned libraries) or at in-memory bytes (the
// built-in sample comics). Refs are never persisted: after a restart every
// chapter starts image-empty until its folder is rescanned.
type ImageRef struct {
	Name string `json:"name"`
	Path string `json:"-"`

	data []byte
}

// NewFileRef returns a ref backed by a file on disk.
func NewFileRef(name, path string) ImageRef {
	return ImageRef{Name: name, Path: path}
}

// NewMemoryRef returns a ref backed by in-memory bytes (sample pages).
func NewMemoryRef(name string, data []byte) ImageRef {
	return ImageRef{Name: name, data: data}
}

// IsZero reports whether the ref points at nothing.
func (r ImageRef) IsZero() bool {
	return r.Path == "" && len(r.data) == 0
}

// Bytes dereferences the ref. File-backed refs re-read the file on every
// call; the underlying folder permission may have been revoked since the
// scan, in which case the error is an ordinary stale-reference failure.
func (r ImageRef) Bytes() ([]byte, error) {
	if len(r.data) > 0 {
		return r.data, nil
	}
	if r.Path == "" {
		return nil, fmt.Errorf("models: empty image ref %q", r.Name)
	}
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("models: read image %q: %w", r.Name, err)
	}
	return data, nil
}

// Chapter is an ordered sequence of page images within a comic.
//
// ImageCount is the ground-truth page count and stays correct even when
// Images is empty (post-restart, pre-repair). Whenever Images is non-empty,
// len(Images) == ImageCount.
type Chapter struct {
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Images     []ImageRef `json:"-"`
	ImageCount int        `json:"image_count"`
}

// Populated reports whether the chapter's image refs are loaded.
func (c Chapter) Populated() bool {
	return len(c.Images) > 0
}

// Comic is a browsable unit composed of ordered chapters.
//
// ID is derived from the folder name and is stable across rescans of the
// same folder so that reconciliation can match records. It is not globally
// unique beyond the scanned root: two roots sharing a folder name collide,
// and the later scan wins (known limitation).
type Comic struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Cover    ImageRef  `json:"-"`
	Chapters []Chapter `json:"chapters"`
	ScanTime time.Time `json:"scan_time"`
}

// NeedsImages reports whether any chapter lost its image refs and the comic
// should be repaired from its saved folder handle before reading.
func (c Comic) NeedsImages() bool {
	for _, ch := range c.Chapters {
		if !ch.Populated() {
			return true
		}
	}
	return false
}

// TotalPages is the sum of every chapter's ImageCount.
func (c Comic) TotalPages() int {
	total := 0
	for _, ch := range c.Chapters {
		total += ch.ImageCount
	}
	return total
}

// ChapterByName returns the named chapter, or nil.
func (c *Comic) ChapterByName(name string) *Chapter {
	for i := range c.Chapters {
		if c.Chapters[i].Name == name {
			return &c.Chapters[i]
		}
	}
	return nil
}

// ChapterMetadata is the durable projection of a Chapter: identity and page
// count only, no image refs.
type ChapterMetadata struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	ImageCount int    `json:"image_count"`
}

// ComicMetadata is the durable projection of a Comic. It round-trips
// losslessly with Comic for every field except the image refs and cover,
// which are intentionally dropped and reconstructed by a scan.
type ComicMetadata struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Author          string            `json:"author,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Chapters        []ChapterMetadata `json:"chapters"`
	ScanTime        time.Time         `json:"scan_time"`
	IsBuiltInSample bool              `json:"is_built_in_sample,omitempty"`
}
