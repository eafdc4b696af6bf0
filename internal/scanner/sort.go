package scanner

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/raido/internal/models"
)

// Collators are not safe for concurrent use, so each sort builds its own.

// sortNatural orders filenames the way a person expects: numeric runs
// compare by value ("page2" before "page10") and case is ignored.
func sortNatural(names []string) {
	c := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})
}

// sortChaptersNatural orders chapters by natural chapter name.
func sortChaptersNatural(chapters []models.Chapter) {
	c := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(chapters, func(i, j int) bool {
		return c.CompareString(chapters[i].Name, chapters[j].Name) < 0
	})
}

// SortComics orders a library by locale-aware title comparison. The library
// re-sorts with this after every insert or replace.
func SortComics(comics []models.Comic) {
	c := collate.New(language.Und)
	sort.SliceStable(comics, func(i, j int) bool {
		return c.CompareString(comics[i].Title, comics[j].Title) < 0
	})
}
