// Package sample provides the built-in seed library shown on first run,
// before the user has granted any folder. Pages are synthetic placeholder
// PNGs generated once and held in memory.
package sample

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/starford/raido/internal/models"
)

type chapterSpec struct {
	name  string
	path  string
	pages int
}

type comicSpec struct {
	id       string
	title    string
	chapters []chapterSpec
}

var specs = []comicSpec{
	{id: "one-piece", title: "One Piece", chapters: []chapterSpec{
		{"Chapter 1 - Romance Dawn", "chapter-1", 20},
		{"Chapter 2 - They Call Him Luffy", "chapter-2", 18},
		{"Chapter 3 - Enter Zoro", "chapter-3", 22},
	}},
	{id: "naruto", title: "Naruto", chapters: []chapterSpec{
		{"Chapter 1 - Uzumaki Naruto", "chapter-1", 19},
		{"Chapter 2 - Konoha Village", "chapter-2", 21},
		{"Chapter 3 - Sasuke", "chapter-3", 20},
	}},
	{id: "dragon-ball", title: "Dragon Ball", chapters: []chapterSpec{
		{"Chapter 1 - Son Goku", "chapter-1", 17},
		{"Chapter 2 - The Dragon Balls", "chapter-2", 19},
		{"Chapter 3 - Bulma", "chapter-3", 18},
	}},
	{id: "attack-on-titan", title: "Attack on Titan", chapters: []chapterSpec{
		{"Chapter 1 - To You, 2000 Years From Now", "chapter-1", 45},
		{"Chapter 2 - That Day", "chapter-2", 48},
		{"Chapter 3 - Night of the Disbanding", "chapter-3", 46},
	}},
	{id: "demon-slayer", title: "Demon Slayer", chapters: []chapterSpec{
		{"Chapter 1 - Tanjiro", "chapter-1", 23},
		{"Chapter 2 - Nezuko", "chapter-2", 25},
		{"Chapter 3 - Giyu Tomioka", "chapter-3", 24},
	}},
}

var (
	once   sync.Once
	comics []models.Comic
)

// Comics returns the built-in sample library. The slice is built once; the
// same backing records are returned on every call.
func Comics() []models.Comic {
	once.Do(build)
	return comics
}

// ByID returns the sample comic with the given id, or nil. The returned
// record is a shallow copy; chapter and image data is shared and read-only.
func ByID(id string) *models.Comic {
	for i := range Comics() {
		if comics[i].ID == id {
			c := comics[i]
			return &c
		}
	}
	return nil
}

// IsSample reports whether id names one of the built-in sample comics.
func IsSample(id string) bool {
	return ByID(id) != nil
}

func build() {
	scanTime := time.Now().Add(-24 * time.Hour)
	for _, cs := range specs {
		comic := models.Comic{
			ID:       cs.id,
			Title:    cs.title,
			ScanTime: scanTime,
		}
		for _, ch := range cs.chapters {
			page := placeholderPNG(cs.id + "/" + ch.name)
			chapter := models.Chapter{
				Name:       ch.name,
				Path:       ch.path,
				ImageCount: ch.pages,
			}
			for i := 0; i < ch.pages; i++ {
				name := fmt.Sprintf("page-%03d.png", i+1)
				chapter.Images = append(chapter.Images, models.NewMemoryRef(name, page))
			}
			comic.Chapters = append(comic.Chapters, chapter)
		}
		if len(comic.Chapters) > 0 && len(comic.Chapters[0].Images) > 0 {
			comic.Cover = comic.Chapters[0].Images[0]
		}
		comics = append(comics, comic)
	}
}

// placeholderPNG renders a small flat-color page; the color is derived from
// the seed so each chapter is visually distinct.
func placeholderPNG(seed string) []byte {
	h := fnv.New32a()
	h.Write([]byte(seed))
	v := h.Sum32()

	img := image.NewRGBA(image.Rect(0, 0, 64, 96))
	c := color.RGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: 255}
	for y := 0; y < 96; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// Encoding an in-memory RGBA image does not fail in practice.
		return nil
	}
	return buf.Bytes()
}
