// Package mcp exposes the question pipeline over the Model Context Protocol
// so agent runtimes can ask questions through the same validated path as the
// HTTP API.
package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server owns the MCP protocol server and its HTTP transport. Tools are
// registered against MCP() before the handler is mounted.
type Server struct {
	mcp    *server.MCPServer
	http   *server.StreamableHTTPServer
	logger *zap.Logger
}

// NewServer builds a stateless MCP server. Stateless because the pipeline
// keys conversation state by session_id argument, not by MCP session.
func NewServer(name, version string, logger *zap.Logger) *Server {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	return &Server{
		mcp: s,
		// Endpoint path is left unset; the HTTP mux owns routing.
		http:   server.NewStreamableHTTPServer(s, server.WithStateLess(true)),
		logger: logger,
	}
}

// MCP returns the protocol server for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Handler returns the HTTP transport for mounting on a mux.
func (s *Server) Handler() http.Handler {
	return s.http
}
