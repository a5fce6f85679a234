package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/mcp"
	"github.com/flsteven87/chatalyst-ai/pkg/middleware"
)

// MCPHandler handles MCP protocol requests over HTTP.
type MCPHandler struct {
	transport http.Handler
	logger    *zap.Logger
}

// NewMCPHandler creates a new MCP handler from an MCP server.
func NewMCPHandler(mcpServer *mcp.Server, logger *zap.Logger) *MCPHandler {
	return &MCPHandler{
		transport: mcpServer.Handler(),
		logger:    logger,
	}
}

// RegisterRoutes registers the MCP endpoint.
// The MCP HTTP server is wrapped with JSON-RPC request logging and a method
// check that rejects non-POST before the protocol handler runs.
func (h *MCPHandler) RegisterRoutes(mux *http.ServeMux) {
	loggedHandler := middleware.MCPRequestLogger(h.logger)(h.transport)
	mux.Handle("/mcp", h.requirePOST(loggedHandler))
}

// requirePOST returns 405 Method Not Allowed for non-POST requests.
// MCP over HTTP Streaming requires POST for JSON-RPC requests.
func (h *MCPHandler) requirePOST(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
