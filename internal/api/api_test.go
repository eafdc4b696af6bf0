package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/library"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/progress"
	"github.com/starford/raido/internal/scanner"
	"github.com/starford/raido/internal/settings"
	"github.com/starford/raido/internal/testutil"
)

// testEnv sets up a sample-seeded library, progress, settings, and router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, pageSize int, authToken string) (*library.Service, http.Handler) {
	t.Helper()

	db := testutil.TestDB(t)
	sc := scanner.New(db, testutil.DiscardLogger())
	lib := library.NewService(db, sc, nil, pageSize, testutil.DiscardLogger())
	lib.Init(context.Background())
	prog := progress.NewService(db, testutil.DiscardLogger())
	set := settings.NewService(db)

	router := NewRouter(lib, prog, set, testutil.DiscardLogger(), authToken != "", authToken, nil)
	return lib, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
	return v
}

func TestListComicsAndLoadMore(t *testing.T) {
	_, router := testEnv(t, 2, "")

	w := doJSON(t, router, http.MethodGet, "/comics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	list := decode[ComicListResponse](t, w)
	if len(list.Comics) != 2 || list.Total != 5 || !list.HasMore {
		t.Errorf("first page = %d comics, total %d, hasMore %v", len(list.Comics), list.Total, list.HasMore)
	}

	w = doJSON(t, router, http.MethodPost, "/comics/more", nil)
	list = decode[ComicListResponse](t, w)
	if len(list.Comics) != 4 {
		t.Errorf("second page = %d comics, want 4", len(list.Comics))
	}

	// Sample comics never need a rescan and carry a cover URL.
	for _, c := range list.Comics {
		if c.NeedsRescan {
			t.Errorf("%s flagged needs_rescan", c.ID)
		}
		if c.CoverURL == "" {
			t.Errorf("%s has no cover URL", c.ID)
		}
	}
}

func TestScan(t *testing.T) {
	root := testutil.TestLibrary(t, map[string]map[string][]string{
		"Foo": {"Ch 1": {"a.jpg"}},
		"Bar": {"Ch 1": {"a.jpg", "b.jpg"}},
	})
	lib, router := testEnv(t, 0, "")

	w := doJSON(t, router, http.MethodPost, "/scan", ScanRequest{Path: root})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[ScanResponse](t, w)
	if resp.Added != 2 {
		t.Errorf("added = %d, want 2", resp.Added)
	}
	if _, ok := lib.Get("Foo"); !ok {
		t.Error("scanned comic not merged")
	}
}

func TestScanEmptyTree(t *testing.T) {
	_, router := testEnv(t, 0, "")

	w := doJSON(t, router, http.MethodPost, "/scan", ScanRequest{Path: t.TempDir()})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[ScanResponse](t, w)
	if resp.Added != 0 || resp.Message == "" {
		t.Errorf("empty tree should yield added=0 with an explanatory message, got %+v", resp)
	}
}

func TestScanErrors(t *testing.T) {
	_, router := testEnv(t, 0, "")

	if w := doJSON(t, router, http.MethodPost, "/scan", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing path: status = %d, want 400", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/scan", ScanRequest{Path: "/nonexistent/raido"}); w.Code != http.StatusInternalServerError {
		t.Errorf("unreadable root: status = %d, want 500", w.Code)
	}
}

func TestGetComic(t *testing.T) {
	_, router := testEnv(t, 0, "")

	w := doJSON(t, router, http.MethodGet, "/comics/one-piece", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	d := decode[ComicDetail](t, w)
	if d.Title != "One Piece" || len(d.Chapters) != 3 {
		t.Errorf("detail = %+v", d)
	}
	for _, ch := range d.Chapters {
		if !ch.Populated {
			t.Errorf("sample chapter %s not populated", ch.Name)
		}
	}

	if w := doJSON(t, router, http.MethodGet, "/comics/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown comic: status = %d, want 404", w.Code)
	}
}

func TestProgressRoundTrip(t *testing.T) {
	_, router := testEnv(t, 0, "")
	chapter := "Chapter 2 - They Call Him Luffy"

	w := doJSON(t, router, http.MethodPut, "/progress/one-piece", UpdateProgressRequest{
		ChapterName: chapter,
		PageIndex:   8,
		PageName:    "page-009.png",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[ProgressResponse](t, w)
	if !resp.Saved || resp.Progress == nil {
		t.Fatalf("update not saved: %+v", resp)
	}
	// 20 pages of chapter 1 plus 9 into chapter 2, out of 60.
	if resp.Percent != 48 {
		t.Errorf("percent = %d, want 48", resp.Percent)
	}

	w = doJSON(t, router, http.MethodGet, "/progress/one-piece", nil)
	got := decode[ProgressResponse](t, w)
	if got.Progress == nil || got.Progress.ChapterName != chapter || got.Progress.PageIndex != 8 {
		t.Errorf("progress = %+v", got.Progress)
	}
}

func TestProgressValidation(t *testing.T) {
	_, router := testEnv(t, 0, "")

	if w := doJSON(t, router, http.MethodPut, "/progress/nope", UpdateProgressRequest{ChapterName: "x"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown comic: status = %d, want 404", w.Code)
	}
	if w := doJSON(t, router, http.MethodPut, "/progress/one-piece", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing chapter: status = %d, want 400", w.Code)
	}
	if w := doJSON(t, router, http.MethodPut, "/progress/one-piece", UpdateProgressRequest{ChapterName: "x", PageIndex: -1}); w.Code != http.StatusBadRequest {
		t.Errorf("negative page: status = %d, want 400", w.Code)
	}
}

func TestHistory(t *testing.T) {
	_, router := testEnv(t, 0, "")

	doJSON(t, router, http.MethodPut, "/progress/naruto", UpdateProgressRequest{
		ChapterName: "Chapter 1 - Uzumaki Naruto", PageIndex: 0,
	})

	w := doJSON(t, router, http.MethodGet, "/history", nil)
	h := decode[HistoryResponse](t, w)
	if len(h.History) != 1 || h.History[0].ComicID != "naruto" || h.History[0].Title != "Naruto" {
		t.Errorf("history = %+v", h.History)
	}
}

func TestSettingsAndTheme(t *testing.T) {
	_, router := testEnv(t, 0, "")

	w := doJSON(t, router, http.MethodGet, "/theme", nil)
	if th := decode[ThemeResponse](t, w); th.Theme != "dark" {
		t.Errorf("default theme = %q", th.Theme)
	}

	if w := doJSON(t, router, http.MethodPut, "/theme", ThemeRequest{Theme: "light"}); w.Code != http.StatusOK {
		t.Errorf("set theme: status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/theme", nil)
	if th := decode[ThemeResponse](t, w); th.Theme != "light" {
		t.Errorf("theme = %q, want light", th.Theme)
	}
	if w := doJSON(t, router, http.MethodPut, "/theme", ThemeRequest{Theme: "sepia"}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid theme: status = %d, want 400", w.Code)
	}

	if w := doJSON(t, router, http.MethodPut, "/settings", map[string]any{"brightness": 70}); w.Code != http.StatusOK {
		t.Errorf("update settings: status = %d", w.Code)
	}
}

func TestCoverAndPages(t *testing.T) {
	_, router := testEnv(t, 0, "")

	w := doJSON(t, router, http.MethodGet, "/comics/one-piece/cover", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cover status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("cover content type = %q", ct)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("cover has no ETag")
	}

	// Revalidation hit.
	req := httptest.NewRequest(http.MethodGet, "/comics/one-piece/cover", nil)
	req.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusNotModified {
		t.Errorf("revalidation status = %d, want 304", w2.Code)
	}

	chapter := url.PathEscape("Chapter 1 - Romance Dawn")
	w = doJSON(t, router, http.MethodGet, "/comics/one-piece/chapters/"+chapter+"/pages/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("page status = %d: %s", w.Code, w.Body.String())
	}
	if w.Body.Len() == 0 {
		t.Error("page body empty")
	}

	if w := doJSON(t, router, http.MethodGet, "/comics/one-piece/chapters/"+chapter+"/pages/999", nil); w.Code != http.StatusNotFound {
		t.Errorf("out of range page: status = %d, want 404", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/comics/one-piece/chapters/Nope/pages/0", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown chapter: status = %d, want 404", w.Code)
	}
}

func TestAuth(t *testing.T) {
	_, router := testEnv(t, 0, "secret")

	if w := doJSON(t, router, http.MethodGet, "/comics", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/comics", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/comics", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}
}

// Handlers log through the logger they were built with, not the process
// default.
func TestHandlerLogsToInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(nil, nil, nil, slog.New(slog.NewTextHandler(&buf, nil)))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	h.serveImage(w, r, models.NewFileRef("gone.jpg", filepath.Join(t.TempDir(), "gone.jpg")))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(buf.String(), "page unavailable") {
		t.Errorf("warning not written to injected logger: %q", buf.String())
	}
}
