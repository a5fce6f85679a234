package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

func snapshotFixture(t *testing.T) *models.SchemaSnapshot {
	t.Helper()

	rows := int64(120)
	tables := []models.SchemaTable{
		{
			Schema: "public",
			Name:   "orders",
			Columns: []models.SchemaColumn{
				{Name: "id", DataType: "bigint", IsPrimaryKey: true, OrdinalPosition: 1},
				{Name: "customer_id", DataType: "bigint", OrdinalPosition: 2},
				{Name: "amount", DataType: "numeric", OrdinalPosition: 3},
			},
			RowCount: &rows,
		},
		{
			Schema: "public",
			Name:   "customers",
			Columns: []models.SchemaColumn{
				{Name: "id", DataType: "bigint", IsPrimaryKey: true, OrdinalPosition: 1},
				{Name: "name", DataType: "text", OrdinalPosition: 2},
			},
		},
	}
	fks := []models.ForeignKeyEdge{
		{ConstraintName: "orders_customer_id_fkey", SourceTable: "orders", SourceColumn: "customer_id", TargetTable: "customers", TargetColumn: "id"},
	}

	snapshot, dropped := models.NewSchemaSnapshot(tables, fks, nil, time.Now())
	if len(dropped) != 0 {
		t.Fatalf("fixture dropped %d foreign keys", len(dropped))
	}
	return snapshot
}

func decodeSchemaResponse(t *testing.T, rec *httptest.ResponseRecorder) SchemaResponse {
	t.Helper()

	var response ApiResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Success {
		t.Fatal("expected success=true")
	}

	dataBytes, err := json.Marshal(response.Data)
	if err != nil {
		t.Fatalf("failed to marshal data: %v", err)
	}
	var schemaResponse SchemaResponse
	if err := json.Unmarshal(dataBytes, &schemaResponse); err != nil {
		t.Fatalf("failed to unmarshal schema response: %v", err)
	}
	return schemaResponse
}

func TestSchemaHandler_GetSchema(t *testing.T) {
	t.Run("returns the current snapshot", func(t *testing.T) {
		mockService := &mockAskService{snapshot: snapshotFixture(t)}
		handler := NewSchemaHandler(mockService, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
		rec := httptest.NewRecorder()
		handler.GetSchema(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}

		schemaResponse := decodeSchemaResponse(t, rec)
		if schemaResponse.TotalTables != 2 {
			t.Errorf("expected 2 tables, got %d", schemaResponse.TotalTables)
		}
		if len(schemaResponse.ForeignKeys) != 1 {
			t.Errorf("expected 1 foreign key, got %d", len(schemaResponse.ForeignKeys))
		}
		if schemaResponse.Fingerprint == "" {
			t.Error("expected non-empty fingerprint")
		}
	})

	t.Run("maps discovery failure to 503", func(t *testing.T) {
		mockService := &mockAskService{
			schemaErr: &apperrors.SchemaDiscoveryError{Cause: errors.New("connection refused")},
		}
		handler := NewSchemaHandler(mockService, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
		rec := httptest.NewRecorder()
		handler.GetSchema(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}

		var errBody map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&errBody); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}
		if errBody["error"] != "schema_unavailable" {
			t.Errorf("expected error code schema_unavailable, got %s", errBody["error"])
		}
	})

	t.Run("maps other failures to 500", func(t *testing.T) {
		mockService := &mockAskService{schemaErr: errors.New("boom")}
		handler := NewSchemaHandler(mockService, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
		rec := httptest.NewRecorder()
		handler.GetSchema(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
		}
	})
}

func TestSchemaHandler_RefreshSchema(t *testing.T) {
	t.Run("forces a rediscovery", func(t *testing.T) {
		mockService := &mockAskService{snapshot: snapshotFixture(t)}
		handler := NewSchemaHandler(mockService, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/schema/refresh", nil)
		rec := httptest.NewRecorder()
		handler.RefreshSchema(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		if mockService.refreshCalls != 1 {
			t.Errorf("expected 1 refresh call, got %d", mockService.refreshCalls)
		}

		schemaResponse := decodeSchemaResponse(t, rec)
		if schemaResponse.TotalTables != 2 {
			t.Errorf("expected 2 tables, got %d", schemaResponse.TotalTables)
		}
	})

	t.Run("maps refresh failure to 503", func(t *testing.T) {
		mockService := &mockAskService{
			refreshErr: &apperrors.SchemaDiscoveryError{Cause: errors.New("timeout")},
		}
		handler := NewSchemaHandler(mockService, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/schema/refresh", nil)
		rec := httptest.NewRecorder()
		handler.RefreshSchema(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}
	})
}

func TestSchemaHandler_RegisterRoutes(t *testing.T) {
	mockService := &mockAskService{snapshot: snapshotFixture(t)}
	handler := NewSchemaHandler(mockService, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/schema: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/schema/refresh", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("POST /api/schema/refresh: expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
