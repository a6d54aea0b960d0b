package mcptool

import (
	"context"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/recalld/internal/core"
	"github.com/sandevgo/recalld/pkg/log"
	"github.com/sandevgo/recalld/pkg/retry"
	"github.com/sandevgo/recalld/pkg/srv"
)

var _ srv.Service = (*Server)(nil)

// Server exposes the memory store as MCP tools over stdio.
type Server struct {
	store   core.MemoryStore
	retrier *retry.Retrier
	mcp     *server.MCPServer
}

func NewServer(store core.MemoryStore) *Server {
	s := &Server{
		store:   store,
		retrier: retry.NewDefaultRetrier(),
	}

	s.mcp = server.NewMCPServer(
		core.AppName,
		core.AppVersion,
		server.WithToolCapabilities(false),
	)
	s.registerTools()

	return s
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("serving mcp tools on stdio")

	stdio := server.NewStdioServer(s.mcp)
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Listen returns when ctx is cancelled or stdin closes
	return nil
}
