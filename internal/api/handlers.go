package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/library"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/progress"
	"github.com/starford/raido/internal/settings"
)

// Handler holds API route handlers.
type Handler struct {
	library  *library.Service
	progress *progress.Service
	settings *settings.Service
	logger   *slog.Logger
}

// NewHandler creates a new Handler. A nil logger falls back to the default.
func NewHandler(lib *library.Service, prog *progress.Service, set *settings.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{library: lib, progress: prog, settings: set, logger: logger}
}

// urlParam returns a decoded chi URL parameter (chapter names carry spaces
// and unicode).
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListComics handles GET /comics: the currently displayed page slice.
func (h *Handler) ListComics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.listResponse())
}

// LoadMore handles POST /comics/more: advances the page cursor. No-op once
// everything is displayed.
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	h.library.LoadMore()
	writeJSON(w, http.StatusOK, h.listResponse())
}

func (h *Handler) listResponse() ComicListResponse {
	displayed := h.library.Displayed()
	comics := make([]ComicSummary, 0, len(displayed))
	for _, c := range displayed {
		comics = append(comics, h.summary(c))
	}
	return ComicListResponse{
		Comics:         comics,
		Total:          h.library.Count(),
		HasMore:        h.library.HasMore(),
		StorageWarning: h.library.PersistDegraded(),
	}
}

// Scan handles POST /scan: walks a user-granted folder tree and merges the
// comics found into the library.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	added, err := h.library.ScanRoot(r.Context(), req.Path)
	if err != nil {
		h.logger.Error("scan failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("scan failed"))
		return
	}

	resp := ScanResponse{Added: added, StorageWarning: h.library.PersistDegraded()}
	if added == 0 {
		// A valid but empty tree is not a failure; tell the user what the
		// scanner expects instead.
		resp.Message = "no comics found: expected comic folders containing chapter folders of image files"
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetComic handles GET /comics/{id}.
func (h *Handler) GetComic(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	comic, ok := h.library.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("comic not found"))
		return
	}
	writeJSON(w, http.StatusOK, h.detail(comic))
}

// EnsureImages handles POST /comics/{id}/images: repairs the comic's image
// refs from its saved folder handle if possible, and reports whatever state
// the comic ends up in.
func (h *Handler) EnsureImages(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	comic, ok := h.library.EnsureImagesLoaded(r.Context(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("comic not found"))
		return
	}
	writeJSON(w, http.StatusOK, h.detail(comic))
}

// GetProgress handles GET /progress/{id}.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	comic, ok := h.library.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("comic not found"))
		return
	}
	resp := ProgressResponse{
		Percent:  h.progress.Percent(comic),
		Finished: h.progress.Finished(comic),
		Saved:    true,
	}
	if p, ok := h.progress.Get(id); ok {
		resp.Progress = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateProgress handles PUT /progress/{id}.
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	comic, ok := h.library.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("comic not found"))
		return
	}

	var req UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChapterName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("chapter_name is required"))
		return
	}
	if req.PageIndex < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("page_index must be >= 0"))
		return
	}

	p := models.ReadingProgress{
		ComicID:      id,
		ChapterName:  req.ChapterName,
		PageIndex:    req.PageIndex,
		PageName:     req.PageName,
		LastReadTime: time.Now(),
	}
	saved := h.progress.Update(p, comic.Title)

	writeJSON(w, http.StatusOK, ProgressResponse{
		Progress: &p,
		Percent:  h.progress.Percent(comic),
		Finished: h.progress.Finished(comic),
		Saved:    saved,
	})
}

// History handles GET /history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{History: h.progress.History()})
}

// GetSettings handles GET /settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Settings())
}

// UpdateSettings handles PUT /settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var rs models.ReaderSettings
	if err := json.NewDecoder(r.Body).Decode(&rs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid settings"))
		return
	}
	if !h.settings.SetSettings(rs) {
		writeJSON(w, http.StatusOK, map[string]any{"saved": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

// GetTheme handles GET /theme.
func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: h.settings.Theme()})
}

// SetTheme handles PUT /theme.
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid theme"))
		return
	}
	if err := h.settings.SetTheme(req.Theme); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: req.Theme})
}

func (h *Handler) summary(c models.Comic) ComicSummary {
	s := ComicSummary{
		ID:           c.ID,
		Title:        c.Title,
		Author:       c.Author,
		Tags:         c.Tags,
		ChapterCount: len(c.Chapters),
		TotalPages:   c.TotalPages(),
		NeedsRescan:  c.NeedsImages(),
		ScanTime:     c.ScanTime,
		Percent:      h.progress.Percent(c),
	}
	if !c.Cover.IsZero() {
		s.CoverURL = fmt.Sprintf("/api/comics/%s/cover", url.PathEscape(c.ID))
	}
	return s
}

func (h *Handler) detail(c models.Comic) ComicDetail {
	d := ComicDetail{
		ID:       c.ID,
		Title:    c.Title,
		Author:   c.Author,
		Tags:     c.Tags,
		ScanTime: c.ScanTime,
		Percent:  h.progress.Percent(c),
	}
	if !c.Cover.IsZero() {
		d.CoverURL = fmt.Sprintf("/api/comics/%s/cover", url.PathEscape(c.ID))
	}
	for _, ch := range c.Chapters {
		d.Chapters = append(d.Chapters, ChapterDetail{
			Name:       ch.Name,
			Path:       ch.Path,
			ImageCount: ch.ImageCount,
			Populated:  ch.Populated(),
		})
	}
	if p, ok := h.progress.Get(c.ID); ok {
		d.Progress = &p
	}
	return d
}
