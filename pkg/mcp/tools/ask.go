// Package tools provides MCP tool implementations for chatalyst.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/logging"
	"github.com/flsteven87/chatalyst-ai/pkg/services"
)

// AskToolDeps contains dependencies for the ask tool.
type AskToolDeps struct {
	Pipeline services.AskService
	Logger   *zap.Logger
}

// RegisterAskTools registers question-answering MCP tools.
func RegisterAskTools(s *server.MCPServer, deps *AskToolDeps) {
	registerAskQuestionTool(s, deps)
}

// registerAskQuestionTool adds the ask_question tool. The full pipeline runs
// behind it: rewrite, retrieval, generation, validation, execution.
func registerAskQuestionTool(s *server.MCPServer, deps *AskToolDeps) {
	tool := mcp.NewTool(
		"ask_question",
		mcp.WithDescription(
			"Answer a natural-language question about the connected database. "+
				"Generates SQL, validates it against the live schema, executes it read-only, "+
				"and returns rows together with the SQL and an explanation. "+
				"Pass the same session_id across calls to ask follow-up questions "+
				"('what about last month?') that build on earlier ones. "+
				"A rejected or failed question is reported in the outcome field, not as a protocol error.",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question to answer, in plain language"),
		),
		mcp.WithString(
			"session_id",
			mcp.Description("Conversation identifier for follow-up questions; omit for a one-off question"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return nil, err
		}
		question = strings.TrimSpace(question)
		if question == "" {
			return NewErrorResult("invalid_parameters", "parameter 'question' cannot be empty"), nil
		}

		sessionID := ""
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			if v, ok := args["session_id"].(string); ok {
				sessionID = strings.TrimSpace(v)
			}
		}

		result, err := deps.Pipeline.Ask(ctx, question, sessionID)
		if err != nil {
			if errors.Is(err, apperrors.ErrEmptyQuestion) {
				return NewErrorResult("empty_question", "question is required"), nil
			}
			deps.Logger.Error("Ask failed",
				zap.String("question", logging.TruncateQuestion(question)),
				zap.Error(err))
			return nil, fmt.Errorf("failed to answer question: %w", err)
		}

		jsonBytes, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ask result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}
