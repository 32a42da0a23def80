// Package mcpserver exposes skill discovery and composition as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcomposer/pkg/history"
	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/skills"
	"github.com/jingkaihe/skillcomposer/pkg/version"
)

// ServerName is the implementation name reported to MCP clients
const ServerName = "skillcomposer"

// Tool names
const (
	ToolDiscoverSkills = "discover_skills"
	ToolComposeSkills  = "compose_skills"
	ToolListSkills     = "list_available_skills"
)

// Server registers the skill tools on an MCP server
type Server struct {
	registry *skills.Registry
	history  *history.Store
	mcp      *server.MCPServer
}

// Option configures a Server
type Option func(*Server)

// WithHistory records compositions produced by compose_skills
func WithHistory(h *history.Store) Option {
	return func(s *Server) { s.history = h }
}

// New creates the MCP server and registers its tools
func New(registry *skills.Registry, opts ...Option) *Server {
	s := &Server{registry: registry}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		ServerName,
		version.Get().Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Discover and compose agent skills for a project idea. "+
			"Call discover_skills to see candidates, compose_skills for an ordered, budgeted plan."),
	)
	s.mcp.AddTool(discoverTool(), s.handleDiscover)
	s.mcp.AddTool(composeTool(), s.handleCompose)
	s.mcp.AddTool(listTool(), s.handleList)
	return s
}

// MCPServer returns the underlying server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves JSON-RPC over in and out until ctx is cancelled or in
// is closed
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	logger.G(ctx).Info("serving MCP over stdio")
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "MCP stdio server failed")
	}
	return nil
}

// decodeArguments converts the free-form tool arguments into v
func decodeArguments(request mcp.CallToolRequest, v any) error {
	if request.Params.Arguments == nil {
		return nil
	}
	data, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return errors.Wrap(err, "failed to encode tool arguments")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "invalid tool arguments")
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode tool result")
	}
	return mcp.NewToolResultText(string(data)), nil
}
