package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/logging"
)

// sensitiveKeyPattern matches argument keys whose values must never be logged.
var sensitiveKeyPattern = regexp.MustCompile(`(?i)password|secret|token|key|credential`)

// rpcRequest is the slice of a JSON-RPC tools/call request the logger needs.
type rpcRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	} `json:"params"`
}

// rpcResponse is the slice of a JSON-RPC response the logger needs.
type rpcResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// MCPRequestLogger returns middleware that logs MCP JSON-RPC traffic: tool
// name, sanitized arguments, outcome, and duration. A nil logger disables it.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			// Not every request on this endpoint is valid JSON-RPC; an
			// unparseable body still gets forwarded.
			var req rpcRequest
			if err := json.Unmarshal(body, &req); err != nil {
				logger.Debug("Failed to parse MCP request JSON", zap.Error(err))
			}

			logger.Debug("MCP request",
				zap.String("method", req.Method),
				zap.String("tool", req.Params.Name),
				zap.Any("arguments", sanitizeArguments(req.Params.Arguments)))

			rec := &bodyCapturingWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			var resp rpcResponse
			if err := json.Unmarshal(rec.body.Bytes(), &resp); err != nil {
				logger.Debug("Failed to parse MCP response JSON", zap.Error(err))
				return
			}

			if resp.Error != nil {
				logger.Debug("MCP response error",
					zap.String("tool", req.Params.Name),
					zap.Int("error_code", resp.Error.Code),
					zap.String("error_message", resp.Error.Message),
					zap.Duration("duration", duration))
				return
			}
			logger.Debug("MCP response success",
				zap.String("tool", req.Params.Name),
				zap.Duration("duration", duration))
		})
	}
}

// bodyCapturingWriter tees the response body so the middleware can inspect
// the JSON-RPC outcome after the handler runs.
type bodyCapturingWriter struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCapturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// sanitizeArguments redacts sensitive fields and truncates long values.
func sanitizeArguments(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return nil
	}

	result := make(map[string]interface{}, len(args))
	for k, v := range args {
		if sensitiveKeyPattern.MatchString(k) {
			result[k] = logging.RedactedText
			continue
		}
		if str, ok := v.(string); ok {
			result[k] = logging.Truncate(str, 200)
			continue
		}
		result[k] = v
	}
	return result
}
