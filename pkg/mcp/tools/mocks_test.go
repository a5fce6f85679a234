package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// mockAskService implements services.AskService for testing.
type mockAskService struct {
	result     *models.AskResult
	askErr     error
	snapshot   *models.SchemaSnapshot
	schemaErr  error
	refreshErr error

	askCalls      int
	refreshCalls  int
	lastQuestion  string
	lastSessionID string
}

func (m *mockAskService) Ask(ctx context.Context, question, sessionID string) (*models.AskResult, error) {
	m.askCalls++
	m.lastQuestion = question
	m.lastSessionID = sessionID
	if m.askErr != nil {
		return nil, m.askErr
	}
	return m.result, nil
}

func (m *mockAskService) Schema(ctx context.Context) (*models.SchemaSnapshot, error) {
	if m.schemaErr != nil {
		return nil, m.schemaErr
	}
	return m.snapshot, nil
}

func (m *mockAskService) RefreshSchema(ctx context.Context) (*models.SchemaSnapshot, error) {
	m.refreshCalls++
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.snapshot, nil
}

// mcpProtocolError represents a JSON-RPC level error returned by the server.
type mcpProtocolError struct {
	Code    int
	Message string
}

func (e *mcpProtocolError) Error() string {
	return e.Message
}

// callTool executes an MCP tool via the server's HandleMessage method.
func callTool(t *testing.T, mcpServer *server.MCPServer, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()

	callReq := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"id":      1,
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}

	reqBytes, err := json.Marshal(callReq)
	require.NoError(t, err)

	result := mcpServer.HandleMessage(context.Background(), reqBytes)

	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result *mcp.CallToolResult `json:"result,omitempty"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	err = json.Unmarshal(resultBytes, &response)
	require.NoError(t, err)

	if response.Error != nil {
		return nil, &mcpProtocolError{Code: response.Error.Code, Message: response.Error.Message}
	}

	return response.Result, nil
}

// listToolNames returns the names of all registered tools via tools/list.
func listToolNames(t *testing.T, mcpServer *server.MCPServer) []string {
	t.Helper()

	result := mcpServer.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))

	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	names := make([]string, 0, len(response.Result.Tools))
	for _, tool := range response.Result.Tools {
		names = append(names, tool.Name)
	}
	return names
}
