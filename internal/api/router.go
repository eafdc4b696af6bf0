package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/library"
	"github.com/starford/raido/internal/progress"
	"github.com/starford/raido/internal/settings"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(lib *library.Service, prog *progress.Service, set *settings.Service, logger *slog.Logger, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(lib, prog, set, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Library.
	r.Get("/comics", h.ListComics)
	r.Post("/comics/more", h.LoadMore)
	r.Post("/scan", h.Scan)
	r.Get("/comics/{id}", h.GetComic)
	r.Post("/comics/{id}/images", h.EnsureImages)

	// Page data.
	r.Get("/comics/{id}/cover", h.Cover)
	r.Get("/comics/{id}/chapters/{chapter}/pages/{index}", h.Page)

	// Progress and history.
	r.Get("/progress/{id}", h.GetProgress)
	r.Put("/progress/{id}", h.UpdateProgress)
	r.Get("/history", h.History)

	// Preferences.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Get("/theme", h.GetTheme)
	r.Put("/theme", h.SetTheme)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
