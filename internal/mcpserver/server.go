// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the comic library for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/library"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/progress"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp      *server.MCPServer
	library  *library.Service
	progress *progress.Service
}

// New creates a new MCP server with all Raido tools registered.
func New(lib *library.Service, prog *progress.Service) *Server {
	s := &Server{library: lib, progress: prog}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_comics",
		mcp.WithDescription("List every comic in the library with chapter and page counts."),
	), s.listComics)

	s.mcp.AddTool(mcp.NewTool("get_comic",
		mcp.WithDescription("Get one comic's chapters and reading progress."),
		mcp.WithString("comic_id", mcp.Required(), mcp.Description("Comic identifier (its folder name)")),
	), s.getComic)

	s.mcp.AddTool(mcp.NewTool("reading_progress",
		mcp.WithDescription("Get the saved reading position and completion percent for a comic."),
		mcp.WithString("comic_id", mcp.Required(), mcp.Description("Comic identifier")),
	), s.readingProgress)

	s.mcp.AddTool(mcp.NewTool("recent_history",
		mcp.WithDescription("List recently read comics, most recent first."),
		mcp.WithString("limit", mcp.Description("Optional maximum number of entries (default 10)")),
	), s.recentHistory)

	s.mcp.AddTool(mcp.NewTool("update_progress",
		mcp.WithDescription("Record a reading position for a comic."),
		mcp.WithString("comic_id", mcp.Required(), mcp.Description("Comic identifier")),
		mcp.WithString("chapter_name", mcp.Required(), mcp.Description("Chapter name as listed by get_comic")),
		mcp.WithString("page_index", mcp.Required(), mcp.Description("0-based page index within the chapter")),
	), s.updateProgress)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type comicSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	Chapters   int    `json:"chapters"`
	TotalPages int    `json:"total_pages"`
	Percent    int    `json:"percent"`
}

func (s *Server) listComics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	comics := s.library.All()
	out := make([]comicSummary, 0, len(comics))
	for _, c := range comics {
		out = append(out, comicSummary{
			ID:         c.ID,
			Title:      c.Title,
			Author:     c.Author,
			Chapters:   len(c.Chapters),
			TotalPages: c.TotalPages(),
			Percent:    s.progress.Percent(c),
		})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getComic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("comic_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comic, ok := s.library.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("comic not found: %s", id)), nil
	}
	data, _ := json.MarshalIndent(comic, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readingProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("comic_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comic, ok := s.library.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("comic not found: %s", id)), nil
	}
	p, hasProgress := s.progress.Get(id)
	out := map[string]any{
		"percent":  s.progress.Percent(comic),
		"finished": s.progress.Finished(comic),
	}
	if hasProgress {
		out["progress"] = p
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) recentHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 10
	if raw, err := req.RequireString("limit"); err == nil {
		if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 {
			limit = n
		}
	}
	data, _ := json.MarshalIndent(s.progress.Recent(limit), "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) updateProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("comic_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chapterName, err := req.RequireString("chapter_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawIndex, err := req.RequireString("page_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pageIndex, err := strconv.Atoi(rawIndex)
	if err != nil || pageIndex < 0 {
		return mcp.NewToolResultError("page_index must be a non-negative integer"), nil
	}

	comic, ok := s.library.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("comic not found: %s", id)), nil
	}
	if comic.ChapterByName(chapterName) == nil {
		return mcp.NewToolResultError(fmt.Sprintf("chapter not found: %s", chapterName)), nil
	}

	saved := s.progress.Update(models.ReadingProgress{
		ComicID:      id,
		ChapterName:  chapterName,
		PageIndex:    pageIndex,
		LastReadTime: time.Now(),
	}, comic.Title)
	if !saved {
		return mcp.NewToolResultText("recorded (persistence degraded, session-only)"), nil
	}
	return mcp.NewToolResultText("recorded"), nil
}
