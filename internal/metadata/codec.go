// Package metadata projects comics to and from their durable form.
//
// The durable form carries identity, titles, chapter names/paths/counts and
// the scan time only. Image refs are session-scoped and unserializable, so
// they are stripped on the way out and reconstructed by a scan (or, for the
// built-in samples, spliced back from memory) on the way in.
package metadata

import (
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/sample"
)

// ToMetadata projects a comic to its durable form. Pure and total.
func ToMetadata(c models.Comic) models.ComicMetadata {
	meta := models.ComicMetadata{
		ID:              c.ID,
		Title:           c.Title,
		Author:          c.Author,
		Tags:            c.Tags,
		ScanTime:        c.ScanTime,
		IsBuiltInSample: sample.IsSample(c.ID),
	}
	for _, ch := range c.Chapters {
		meta.Chapters = append(meta.Chapters, models.ChapterMetadata{
			Name:       ch.Name,
			Path:       ch.Path,
			ImageCount: ch.ImageCount,
		})
	}
	return meta
}

// ToComic re-hydrates a comic from its durable form. Sample comics get their
// in-memory pages spliced back per chapter name; anything else comes back
// with empty images and cover, signalling that a rescan is needed. Never
// fails: a sample id with no matching sample record silently degrades to the
// needs-rescan shape.
func ToComic(meta models.ComicMetadata) models.Comic {
	var src *models.Comic
	if meta.IsBuiltInSample {
		src = sample.ByID(meta.ID)
	}

	comic := models.Comic{
		ID:       meta.ID,
		Title:    meta.Title,
		Author:   meta.Author,
		Tags:     meta.Tags,
		ScanTime: meta.ScanTime,
	}
	for _, mc := range meta.Chapters {
		chapter := models.Chapter{
			Name:       mc.Name,
			Path:       mc.Path,
			ImageCount: mc.ImageCount,
		}
		if src != nil {
			// Chapters present in metadata but absent from the sample
			// source keep an empty image list.
			if sc := src.ChapterByName(mc.Name); sc != nil {
				chapter.Images = sc.Images
			}
		}
		comic.Chapters = append(comic.Chapters, chapter)
	}
	if src != nil {
		comic.Cover = src.Cover
	}
	return comic
}

// ToMetadataList projects a whole library.
func ToMetadataList(comics []models.Comic) []models.ComicMetadata {
	out := make([]models.ComicMetadata, 0, len(comics))
	for _, c := range comics {
		out = append(out, ToMetadata(c))
	}
	return out
}

// ToComicList re-hydrates a whole library.
func ToComicList(metas []models.ComicMetadata) []models.Comic {
	out := make([]models.Comic, 0, len(metas))
	for _, m := range metas {
		out = append(out, ToComic(m))
	}
	return out
}
