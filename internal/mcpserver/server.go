// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the tree reporter as tools over stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/treesync/internal/models"
	"github.com/starford/treesync/internal/report"
	"github.com/starford/treesync/internal/snapshot"
	"github.com/starford/treesync/internal/trackerclient"
)

// SnapshotFormatURI is the resource URI of the snapshot format description.
const SnapshotFormatURI = "treesync://snapshot-format"

// Tracker is the subset of the tracker client the tools call.
type Tracker interface {
	snapshot.TreeFetcher
	ListDomains(ctx context.Context) (*trackerclient.Result, error)
}

// Verify *trackerclient.Client satisfies Tracker at compile time.
var _ Tracker = (*trackerclient.Client)(nil)

// Server wraps the MCP server with the reporter tools.
type Server struct {
	mcp          *server.MCPServer
	tracker      Tracker
	snapshotPath string
}

// New creates a new MCP server. tracker may be nil, in which case only
// render_tree is useful; snapshotPath is where fetch_tree saves and
// render_tree reads by default.
func New(tracker Tracker, snapshotPath string) *Server {
	if snapshotPath == "" {
		snapshotPath = snapshot.DefaultPath
	}
	s := &Server{tracker: tracker, snapshotPath: snapshotPath}

	s.mcp = server.NewMCPServer(
		"treesync",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("render_tree",
		mcp.WithDescription("Render a saved tree snapshot as indented text, one line per node."),
		mcp.WithString("path", mcp.Description("Snapshot file (defaults to the configured snapshot path)")),
	), s.renderTree)

	s.mcp.AddTool(mcp.NewTool("fetch_tree",
		mcp.WithDescription("Fetch the live task tree from the tracker, save it as the snapshot and render it."),
		mcp.WithString("domain", mcp.Description("Optional domain to keep only its roots")),
	), s.fetchTree)

	s.mcp.AddTool(mcp.NewTool("list_domains",
		mcp.WithDescription("List the tracker's domains as JSON."),
	), s.listDomains)

	s.mcp.AddTool(mcp.NewTool("get_snapshot_format",
		mcp.WithDescription("Returns the tree snapshot format and the rendered line layout."),
	), s.getSnapshotFormat)

	s.mcp.AddResource(
		mcp.NewResource(SnapshotFormatURI, "Tree Snapshot Format",
			mcp.WithResourceDescription("JSON layout of a task tree snapshot and its text rendering."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSnapshotFormatResource,
	)

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

func (s *Server) renderTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := s.snapshotPath
	if p, err := req.RequireString("path"); err == nil && p != "" {
		path = p
	}
	roots, err := snapshot.Load(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return render(roots)
}

func (s *Server) fetchTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.tracker == nil {
		return mcp.NewToolResultError("no tracker configured"), nil
	}
	domain := ""
	if d, err := req.RequireString("domain"); err == nil {
		domain = d
	}
	data, err := snapshot.Fetch(ctx, s.tracker, domain)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := snapshot.Save(s.snapshotPath, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	roots, err := snapshot.Decode(bytes.NewReader(data))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return render(roots)
}

func (s *Server) listDomains(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.tracker == nil {
		return mcp.NewToolResultError("no tracker configured"), nil
	}
	res, err := s.tracker.ListDomains(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.OK() {
		return mcp.NewToolResultError(res.Err().Error()), nil
	}
	var domains []models.Domain
	if err := res.Decode(&domains); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(domains, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSnapshotFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SnapshotFormat), nil
}

func (s *Server) readSnapshotFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SnapshotFormatURI,
			MIMEType: "text/markdown",
			Text:     SnapshotFormat,
		},
	}, nil
}

func render(roots []models.TaskNode) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	n, err := report.Render(&sb, roots)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if n == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no tasks (%d roots)", len(roots))), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}
