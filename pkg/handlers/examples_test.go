package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/services"
)

// mockTrainingService is a mock for testing the examples handler.
type mockTrainingService struct {
	addErr    error
	batchErr  error
	indexed   int
	reloadErr error
	removeErr error

	lastPair      services.ExamplePair
	lastPairs     []services.ExamplePair
	lastRemovedID uuid.UUID
}

func (m *mockTrainingService) AddExample(ctx context.Context, pair services.ExamplePair) (*models.StoredExample, error) {
	m.lastPair = pair
	if m.addErr != nil {
		return nil, m.addErr
	}
	return &models.StoredExample{
		ID:        uuid.New(),
		Question:  pair.Question,
		SQL:       pair.SQL,
		CreatedAt: time.Now(),
	}, nil
}

func (m *mockTrainingService) AddExamples(ctx context.Context, pairs []services.ExamplePair) (int, error) {
	m.lastPairs = pairs
	if m.batchErr != nil {
		return 0, m.batchErr
	}
	return len(pairs), nil
}

func (m *mockTrainingService) RemoveExample(ctx context.Context, id uuid.UUID) error {
	m.lastRemovedID = id
	return m.removeErr
}

func (m *mockTrainingService) ReloadIndex(ctx context.Context) (int, error) {
	if m.reloadErr != nil {
		return 0, m.reloadErr
	}
	return m.indexed, nil
}

func examplesRequestBody(t *testing.T, req CreateExamplesRequest) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestExamplesHandler_Create(t *testing.T) {
	t.Run("stores a single pair", func(t *testing.T) {
		mockService := &mockTrainingService{}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		body := examplesRequestBody(t, CreateExamplesRequest{
			Question: "How many orders?",
			SQL:      "SELECT COUNT(*) FROM orders",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/examples", body)
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
		}
		if mockService.lastPair.Question != "How many orders?" {
			t.Errorf("question not forwarded, got %q", mockService.lastPair.Question)
		}

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
		var example models.StoredExample
		if err := json.Unmarshal(dataBytes, &example); err != nil {
			t.Fatalf("failed to unmarshal example: %v", err)
		}
		if example.SQL != "SELECT COUNT(*) FROM orders" {
			t.Errorf("unexpected sql: %s", example.SQL)
		}
	})

	t.Run("stores a batch", func(t *testing.T) {
		mockService := &mockTrainingService{}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		body := examplesRequestBody(t, CreateExamplesRequest{
			Examples: []services.ExamplePair{
				{Question: "How many orders?", SQL: "SELECT COUNT(*) FROM orders"},
				{Question: "Total revenue?", SQL: "SELECT SUM(amount) FROM orders"},
			},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/examples", body)
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
		}
		if len(mockService.lastPairs) != 2 {
			t.Fatalf("expected 2 pairs forwarded, got %d", len(mockService.lastPairs))
		}

		var response ApiResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		dataBytes, err := json.Marshal(response.Data)
		if err != nil {
			t.Fatalf("failed to marshal data: %v", err)
		}
		var createResponse CreateExamplesResponse
		if err := json.Unmarshal(dataBytes, &createResponse); err != nil {
			t.Fatalf("failed to unmarshal create response: %v", err)
		}
		if createResponse.Stored != 2 {
			t.Errorf("expected 2 stored, got %d", createResponse.Stored)
		}
	})

	t.Run("maps invalid input to 400", func(t *testing.T) {
		mockService := &mockTrainingService{
			addErr: fmt.Errorf("%w: example needs both question and sql", apperrors.ErrInvalidInput),
		}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		body := examplesRequestBody(t, CreateExamplesRequest{Question: "", SQL: ""})
		req := httptest.NewRequest(http.MethodPost, "/api/examples", body)
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}

		var errBody map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&errBody); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}
		if errBody["error"] != "validation_error" {
			t.Errorf("expected error code validation_error, got %s", errBody["error"])
		}
	})

	t.Run("returns error for invalid JSON", func(t *testing.T) {
		mockService := &mockTrainingService{}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/examples", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("returns error on service failure", func(t *testing.T) {
		mockService := &mockTrainingService{addErr: errors.New("embedding provider down")}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		body := examplesRequestBody(t, CreateExamplesRequest{
			Question: "How many orders?",
			SQL:      "SELECT COUNT(*) FROM orders",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/examples", body)
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
		}
	})
}

func TestExamplesHandler_Reload(t *testing.T) {
	t.Run("rebuilds the index", func(t *testing.T) {
		mockService := &mockTrainingService{indexed: 42}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/examples/reload", nil)
		rec := httptest.NewRecorder()
		handler.Reload(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}

		var response ApiResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		dataBytes, err := json.Marshal(response.Data)
		if err != nil {
			t.Fatalf("failed to marshal data: %v", err)
		}
		var reloadResponse ReloadExamplesResponse
		if err := json.Unmarshal(dataBytes, &reloadResponse); err != nil {
			t.Fatalf("failed to unmarshal reload response: %v", err)
		}
		if reloadResponse.Indexed != 42 {
			t.Errorf("expected 42 indexed, got %d", reloadResponse.Indexed)
		}
	})

	t.Run("returns error on service failure", func(t *testing.T) {
		mockService := &mockTrainingService{reloadErr: errors.New("database error")}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/examples/reload", nil)
		rec := httptest.NewRecorder()
		handler.Reload(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
		}
	})
}

func TestExamplesHandler_Delete(t *testing.T) {
	t.Run("removes an example", func(t *testing.T) {
		mockService := &mockTrainingService{}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		id := uuid.New()
		req := httptest.NewRequest(http.MethodDelete, "/api/examples/"+id.String(), nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		handler.Delete(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		if mockService.lastRemovedID != id {
			t.Errorf("expected id %s forwarded, got %s", id, mockService.lastRemovedID)
		}
	})

	t.Run("rejects a malformed id", func(t *testing.T) {
		mockService := &mockTrainingService{}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		req := httptest.NewRequest(http.MethodDelete, "/api/examples/not-a-uuid", nil)
		req.SetPathValue("id", "not-a-uuid")
		rec := httptest.NewRecorder()
		handler.Delete(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
		if mockService.lastRemovedID != uuid.Nil {
			t.Error("service should not be called for a malformed id")
		}
	})

	t.Run("maps unknown id to 404", func(t *testing.T) {
		mockService := &mockTrainingService{
			removeErr: fmt.Errorf("query example: %w", apperrors.ErrNotFound),
		}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		id := uuid.New()
		req := httptest.NewRequest(http.MethodDelete, "/api/examples/"+id.String(), nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		handler.Delete(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}

		var errBody map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&errBody); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}
		if errBody["error"] != "example_not_found" {
			t.Errorf("expected error code example_not_found, got %s", errBody["error"])
		}
	})

	t.Run("returns error on service failure", func(t *testing.T) {
		mockService := &mockTrainingService{removeErr: errors.New("database error")}
		handler := NewExamplesHandler(mockService, zap.NewNop())

		id := uuid.New()
		req := httptest.NewRequest(http.MethodDelete, "/api/examples/"+id.String(), nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		handler.Delete(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
		}
	})
}

func TestExamplesHandler_RegisterRoutes(t *testing.T) {
	mockService := &mockTrainingService{}
	handler := NewExamplesHandler(mockService, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	body := examplesRequestBody(t, CreateExamplesRequest{
		Question: "How many orders?",
		SQL:      "SELECT COUNT(*) FROM orders",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/examples", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("POST /api/examples: expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/examples/reload", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("POST /api/examples/reload: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/examples/"+uuid.New().String(), nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("DELETE /api/examples/{id}: expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
