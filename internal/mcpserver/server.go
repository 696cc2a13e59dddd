// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Folio tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/docservice"
	"github.com/starford/folio/internal/models"
)

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all Folio tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Folio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_resources",
		mcp.WithDescription("List stored document resources, newest first."),
		mcp.WithString("kind", mcp.Description("Optional kind filter: original-upload, edited-version, extracted-text, converted-format")),
	), s.listResources)

	s.mcp.AddTool(mcp.NewTool("get_resource",
		mcp.WithDescription("Fetch metadata for a resource: kind, page count, lineage, and its operation log."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Resource identifier")),
	), s.getResource)

	s.mcp.AddTool(mcp.NewTool("fetch_text",
		mcp.WithDescription("Run text recognition over a document resource. "+
			"Provide page_index to recognize a single page, or omit it for all pages. "+
			"The recognized text is stored as a derived resource and indexed for search."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Resource identifier of the document")),
		mcp.WithNumber("page_index", mcp.Description("Optional zero-based page index")),
	), s.fetchText)

	s.mcp.AddTool(mcp.NewTool("search_text",
		mcp.WithDescription("Full-text search through recognized document text and filenames."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchText)

	return s
}

// ServeStdio serves the MCP protocol on stdin/stdout until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listResources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := ""
	if k, err := req.RequireString("kind"); err == nil {
		kind = k
	}
	if kind != "" && !models.Kind(kind).Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind: %s", kind)), nil
	}
	recs, total, err := s.svc.ListResources(ctx, 100, 0, kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d resources\n", total)
	for _, r := range recs {
		fmt.Fprintf(&b, "%s  %s  %q  %d pages\n", r.ID, r.Kind, r.Filename, r.PageCount)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.FetchMetadata(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) fetchText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if pageIndex, perr := req.RequireFloat("page_index"); perr == nil {
		_, text, err := s.svc.ExtractPageText(ctx, id, int(pageIndex))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}

	_, pages, err := s.svc.ExtractAllText(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var parts []string
	for _, p := range pages {
		parts = append(parts, p.Text)
	}
	return mcp.NewToolResultText(strings.Join(parts, "\n")), nil
}

func (s *Server) searchText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchText(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
