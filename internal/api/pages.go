package api

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/imaging"
	"github.com/starford/raido/internal/models"
)

// prefetchAhead is how many pages past the requested one are decoded ahead
// of display.
const prefetchAhead = 5

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
}

// Cover handles GET /comics/{id}/cover.
func (h *Handler) Cover(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	comic, ok := h.library.EnsureImagesLoaded(r.Context(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("comic not found"))
		return
	}
	if comic.Cover.IsZero() {
		writeJSON(w, http.StatusNotFound, errorBody("cover not loaded, rescan the comic folder"))
		return
	}
	h.serveImage(w, r, comic.Cover)
}

// Page handles GET /comics/{id}/chapters/{chapter}/pages/{index}. The pages
// following the requested one are prefetched in the background.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	chapterName := urlParam(r, "chapter")

	comic, ok := h.library.EnsureImagesLoaded(r.Context(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("comic not found"))
		return
	}
	chapter := comic.ChapterByName(chapterName)
	if chapter == nil {
		writeJSON(w, http.StatusNotFound, errorBody("chapter not found"))
		return
	}
	if !chapter.Populated() {
		writeJSON(w, http.StatusNotFound, errorBody("images not loaded, rescan the comic folder"))
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index >= len(chapter.Images) {
		writeJSON(w, http.StatusNotFound, errorBody("page not found"))
		return
	}

	h.serveImage(w, r, chapter.Images[index])

	if next := index + 1; next < len(chapter.Images) {
		end := next + prefetchAhead
		if end > len(chapter.Images) {
			end = len(chapter.Images)
		}
		batch := append([]models.ImageRef(nil), chapter.Images[next:end]...)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			imaging.Prefetch(ctx, batch, h.logger)
		}()
	}
}

// serveImage writes the ref's bytes with a strong ETag so the reader can
// revalidate pages cheaply while flipping back and forth.
func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request, ref models.ImageRef) {
	data, err := ref.Bytes()
	if err != nil {
		h.logger.Warn("page unavailable", slog.String("page", ref.Name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("image unavailable"))
		return
	}

	etag := `"` + checksum.Sum(data) + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	ctype := contentTypes[strings.ToLower(filepath.Ext(ref.Name))]
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
