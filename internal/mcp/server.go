// Package mcp exposes the project facade as MCP tools over stdio. Tool
// results carry the same record fields and the same error kinds as the
// HTTP API and the CLI.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/service"
)

// Server is the MCP server for project management tools.
type Server struct {
	mcp      *mcp.Server
	projects *service.Service
	logger   *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "mdt").
	Name string

	// Version is the server version (default: "dev").
	Version string
}

// DefaultConfig returns the default server identity.
func DefaultConfig() *Config {
	return &Config{
		Name:    "mdt",
		Version: "dev",
	}
}

// NewServer creates the MCP server and registers all project tools.
func NewServer(cfg *Config, projects *service.Service, logger *logging.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if projects == nil {
		return nil, fmt.Errorf("project service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		projects: projects,
		logger:   logger.Named("mcp"),
	}
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport and blocks until the
// context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Underlying exposes the SDK server for in-memory transports in tests.
func (s *Server) Underlying() *mcp.Server {
	return s.mcp
}

// toolError wraps a facade error with its shared kind so clients can
// dispatch on it without parsing free-form text.
func (s *Server) toolError(tool string, err error) error {
	kind := service.ErrorKind(err)
	s.logger.Warn("tool failed",
		zap.String("tool", tool),
		zap.String("kind", kind),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", kind, err)
}
