package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with its OneContext client.
type Server struct {
	server *mcp.Server
	api    ContextAPI
	logger *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	API     ContextAPI
	Version string
	Logger  *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "onecontext",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_context",
		Description: "Hybrid semantic and full-text search over the chunks of a OneContext context. Returns the best matching chunks with their file names and metadata.",
	}, makeSearchHandler(cfg.API))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_chunks",
		Description: "Retrieve chunks of a OneContext context by metadata filter, without a query.",
	}, makeGetHandler(cfg.API))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_contexts",
		Description: "List the OneContext contexts available to this account.",
	}, makeListContextsHandler(cfg.API))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_files",
		Description: "List the files in a OneContext context with their processing status.",
	}, makeListFilesHandler(cfg.API))

	return &Server{
		server: server,
		api:    cfg.API,
		logger: logger,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server", "transport", "stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
