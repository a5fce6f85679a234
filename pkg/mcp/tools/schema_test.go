package tools

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

func schemaSnapshotFixture(t *testing.T) *models.SchemaSnapshot {
	t.Helper()

	tables := []models.SchemaTable{
		{
			Schema: "public",
			Name:   "orders",
			Columns: []models.SchemaColumn{
				{Name: "id", DataType: "bigint", IsPrimaryKey: true, OrdinalPosition: 1},
				{Name: "customer_id", DataType: "bigint", OrdinalPosition: 2},
				{Name: "total", DataType: "numeric", OrdinalPosition: 3},
			},
		},
		{
			Schema: "public",
			Name:   "customers",
			Columns: []models.SchemaColumn{
				{Name: "id", DataType: "bigint", IsPrimaryKey: true, OrdinalPosition: 1},
				{Name: "email", DataType: "text", IsUnique: true, OrdinalPosition: 2},
			},
		},
	}
	fks := []models.ForeignKeyEdge{
		{
			ConstraintName: "orders_customer_id_fkey",
			SourceTable:    "orders",
			SourceColumn:   "customer_id",
			TargetTable:    "customers",
			TargetColumn:   "id",
		},
	}

	snapshot, dropped := models.NewSchemaSnapshot(tables, fks, nil, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.Empty(t, dropped, "fixture foreign keys should all resolve")
	return snapshot
}

func setupSchemaToolServer(t *testing.T, svc *mockAskService) *server.MCPServer {
	t.Helper()
	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterSchemaTools(mcpServer, &SchemaToolDeps{
		Pipeline: svc,
		Logger:   zap.NewNop(),
	})
	return mcpServer
}

func TestRegisterSchemaTools(t *testing.T) {
	mcpServer := setupSchemaToolServer(t, &mockAskService{})

	names := listToolNames(t, mcpServer)
	assert.Contains(t, names, "describe_schema")
	assert.Contains(t, names, "refresh_schema")
}

func TestDescribeSchemaTool_Execute(t *testing.T) {
	svc := &mockAskService{snapshot: schemaSnapshotFixture(t)}
	mcpServer := setupSchemaToolServer(t, svc)

	result, err := callTool(t, mcpServer, "describe_schema", map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	var got schemaResult
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &got))

	assert.Equal(t, 2, got.TotalTables)
	require.Len(t, got.Tables, 2)
	// NewSchemaSnapshot sorts tables by name.
	assert.Equal(t, "customers", got.Tables[0].Name)
	assert.Equal(t, "orders", got.Tables[1].Name)
	require.Len(t, got.ForeignKeys, 1)
	assert.Equal(t, "orders_customer_id_fkey", got.ForeignKeys[0].ConstraintName)
	assert.NotEmpty(t, got.Fingerprint)
}

func TestDescribeSchemaTool_DiscoveryFailure(t *testing.T) {
	svc := &mockAskService{schemaErr: errors.New("connection refused")}
	mcpServer := setupSchemaToolServer(t, svc)

	_, err := callTool(t, mcpServer, "describe_schema", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to discover schema")
}

func TestRefreshSchemaTool_Execute(t *testing.T) {
	svc := &mockAskService{snapshot: schemaSnapshotFixture(t)}
	mcpServer := setupSchemaToolServer(t, svc)

	result, err := callTool(t, mcpServer, "refresh_schema", map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, result)

	var got schemaResult
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &got))
	assert.Equal(t, 2, got.TotalTables)

	assert.Equal(t, 1, svc.refreshCalls)
}

func TestRefreshSchemaTool_Failure(t *testing.T) {
	svc := &mockAskService{refreshErr: errors.New("target database unreachable")}
	mcpServer := setupSchemaToolServer(t, svc)

	_, err := callTool(t, mcpServer, "refresh_schema", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh schema")
}
