package metadata

import (
	"testing"
	"time"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/sample"
)

func scannedComic() models.Comic {
	return models.Comic{
		ID:     "Foo",
		Title:  "Foo Adventures",
		Author: "Someone",
		Tags:   []string{"action"},
		Cover:  models.NewFileRef("01.jpg", "/lib/Foo/Ch 1/01.jpg"),
		Chapters: []models.Chapter{
			{
				Name: "Ch 1",
				Path: "Ch 1",
				Images: []models.ImageRef{
					models.NewFileRef("01.jpg", "/lib/Foo/Ch 1/01.jpg"),
					models.NewFileRef("02.jpg", "/lib/Foo/Ch 1/02.jpg"),
				},
				ImageCount: 2,
			},
		},
		ScanTime: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestToMetadataStripsImages(t *testing.T) {
	meta := ToMetadata(scannedComic())

	if meta.ID != "Foo" || meta.Title != "Foo Adventures" {
		t.Errorf("identity lost: %+v", meta)
	}
	if meta.IsBuiltInSample {
		t.Error("scanned comic flagged as sample")
	}
	if len(meta.Chapters) != 1 {
		t.Fatalf("chapters = %d, want 1", len(meta.Chapters))
	}
	ch := meta.Chapters[0]
	if ch.Name != "Ch 1" || ch.Path != "Ch 1" || ch.ImageCount != 2 {
		t.Errorf("chapter metadata = %+v", ch)
	}
	if !meta.ScanTime.Equal(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("scan time = %v", meta.ScanTime)
	}
}

func TestRoundTripScannedComicNeedsRescan(t *testing.T) {
	orig := scannedComic()
	got := ToComic(ToMetadata(orig))

	if got.ID != orig.ID || got.Title != orig.Title || got.Author != orig.Author {
		t.Errorf("identity lost: %+v", got)
	}
	if !got.ScanTime.Equal(orig.ScanTime) {
		t.Errorf("scan time = %v, want %v", got.ScanTime, orig.ScanTime)
	}
	if len(got.Chapters) != 1 || got.Chapters[0].ImageCount != 2 {
		t.Fatalf("chapter shape lost: %+v", got.Chapters)
	}
	if got.Chapters[0].Populated() {
		t.Error("images must not survive the round trip for scanned comics")
	}
	if !got.Cover.IsZero() {
		t.Error("cover must not survive the round trip for scanned comics")
	}
	if !got.NeedsImages() {
		t.Error("re-hydrated scanned comic should report needing images")
	}
}

func TestRoundTripSampleComicSplicesImages(t *testing.T) {
	src := sample.ByID("one-piece")
	if src == nil {
		t.Fatal("sample one-piece missing")
	}

	meta := ToMetadata(*src)
	if !meta.IsBuiltInSample {
		t.Fatal("sample flag not set")
	}

	got := ToComic(meta)
	if got.NeedsImages() {
		t.Error("sample comic should come back fully populated")
	}
	if got.Cover.IsZero() {
		t.Error("sample cover not spliced")
	}
	if got.TotalPages() != src.TotalPages() {
		t.Errorf("pages = %d, want %d", got.TotalPages(), src.TotalPages())
	}
	for i, ch := range got.Chapters {
		if !ch.Populated() {
			t.Errorf("chapter %d (%s) not populated", i, ch.Name)
		}
	}
}

func TestToComicUnknownSampleDegrades(t *testing.T) {
	meta := models.ComicMetadata{
		ID:              "one-piece-remix",
		Title:           "One Piece Remix",
		IsBuiltInSample: true,
		Chapters:        []models.ChapterMetadata{{Name: "Ch 1", Path: "Ch 1", ImageCount: 5}},
	}
	got := ToComic(meta)
	if !got.NeedsImages() {
		t.Error("unknown sample id should degrade to needs-rescan")
	}
	if len(got.Chapters) != 1 || got.Chapters[0].ImageCount != 5 {
		t.Errorf("chapter shape lost: %+v", got.Chapters)
	}
}

func TestListHelpers(t *testing.T) {
	comics := sample.Comics()
	metas := ToMetadataList(comics)
	if len(metas) != len(comics) {
		t.Fatalf("metas = %d, want %d", len(metas), len(comics))
	}
	back := ToComicList(metas)
	if len(back) != len(comics) {
		t.Fatalf("back = %d, want %d", len(back), len(comics))
	}
	for i := range back {
		if back[i].ID != comics[i].ID {
			t.Errorf("order changed at %d: %q vs %q", i, back[i].ID, comics[i].ID)
		}
	}
}
