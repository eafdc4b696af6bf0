// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/library"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/progress"
	"github.com/starford/raido/internal/scanner"
	"github.com/starford/raido/internal/settings"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/store"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Open the store.
	db, err := store.Open(cfg.SQLite.Path, logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// A configured library path is an explicit grant of the default root.
	if cfg.Library.Path != "" {
		abs, absErr := filepath.Abs(cfg.Library.Path)
		if absErr != nil {
			return fmt.Errorf("resolve library path: %w", absErr)
		}
		if saveErr := db.SaveHandle(store.LibraryRootID, abs); saveErr != nil {
			logger.Warn("save default root failed", slog.String("error", saveErr.Error()))
		}
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build services.
	sc := scanner.New(db, logger)
	lib := library.NewService(db, sc, broker, cfg.Library.PageSize, logger)
	prog := progress.NewService(db, logger)
	set := settings.NewService(db)

	// Cold start: restore the persisted library and repair what we can.
	lib.Init(ctx)

	apiRouter := api.NewRouter(lib, prog, set, logger, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Silent rescan of the saved default root, then watch it for changes.
	g.Go(func() error {
		if lib.RescanSaved(gCtx) {
			logger.Info("startup rescan merged saved library root")
		}
		watchLibrary(gCtx, db, sc, lib, logger)
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// watchLibrary runs the filesystem watcher on the saved default root. The
// watcher is best effort: a missing root or a watcher setup failure means no
// automatic rescans, the server keeps serving what it has.
func watchLibrary(ctx context.Context, db *store.DB, sc *scanner.Scanner, lib *library.Service, logger *slog.Logger) {
	root, err := db.ResolveHandle(store.LibraryRootID)
	if err != nil {
		logger.Info("no usable default root, watcher disabled")
		return
	}
	err = sc.Watch(ctx, root, func(wCtx context.Context, comics []models.Comic) {
		lib.AddComics(wCtx, comics)
	})
	if err != nil {
		logger.Warn("library watcher stopped, automatic rescan disabled",
			slog.String("error", err.Error()))
	}
}

// RunMCP starts the MCP stdio server with the given options. Logs go to
// stderr so stdout stays clean for the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path, logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	sc := scanner.New(db, logger)
	lib := library.NewService(db, sc, nil, cfg.Library.PageSize, logger)
	prog := progress.NewService(db, logger)

	lib.Init(ctx)

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(lib, prog).ServeStdio()
}
