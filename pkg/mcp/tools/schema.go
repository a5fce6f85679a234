package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/services"
)

// SchemaToolDeps contains dependencies for schema tools.
type SchemaToolDeps struct {
	Pipeline services.AskService
	Logger   *zap.Logger
}

type schemaResult struct {
	Tables      []models.SchemaTable    `json:"tables"`
	ForeignKeys []models.ForeignKeyEdge `json:"foreign_keys"`
	TotalTables int                     `json:"total_tables"`
	Fingerprint string                  `json:"fingerprint"`
	RefreshedAt time.Time               `json:"refreshed_at"`
}

func toSchemaResult(snapshot *models.SchemaSnapshot) schemaResult {
	return schemaResult{
		Tables:      snapshot.Tables,
		ForeignKeys: snapshot.ForeignKeys,
		TotalTables: len(snapshot.Tables),
		Fingerprint: snapshot.Fingerprint,
		RefreshedAt: snapshot.RefreshedAt,
	}
}

// RegisterSchemaTools registers schema inspection MCP tools.
func RegisterSchemaTools(s *server.MCPServer, deps *SchemaToolDeps) {
	registerDescribeSchemaTool(s, deps)
	registerRefreshSchemaTool(s, deps)
}

// registerDescribeSchemaTool exposes the discovered schema snapshot so agents
// can see what tables and joins are available before asking questions.
func registerDescribeSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"describe_schema",
		mcp.WithDescription(
			"Describe the connected database: tables, columns with types, primary keys, "+
				"and foreign-key relationships. "+
				"Use this to see what data is available before calling ask_question.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snapshot, err := deps.Pipeline.Schema(ctx)
		if err != nil {
			deps.Logger.Error("Schema discovery failed", zap.Error(err))
			return nil, fmt.Errorf("failed to discover schema: %w", err)
		}

		jsonBytes, err := json.Marshal(toSchemaResult(snapshot))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema: %w", err)
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// registerRefreshSchemaTool forces a rediscovery against the live database.
func registerRefreshSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"refresh_schema",
		mcp.WithDescription(
			"Rediscover the database schema. "+
				"Call this after tables or columns changed; memoized answers against "+
				"the old schema are dropped when the refresh lands a different fingerprint.",
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snapshot, err := deps.Pipeline.RefreshSchema(ctx)
		if err != nil {
			deps.Logger.Error("Schema refresh failed", zap.Error(err))
			return nil, fmt.Errorf("failed to refresh schema: %w", err)
		}

		jsonBytes, err := json.Marshal(toSchemaResult(snapshot))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema: %w", err)
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}
