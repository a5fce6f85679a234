package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/services"
)

// CreateExamplesRequest for POST /api/examples. Carries either a single
// question/sql pair or a batch under "examples".
type CreateExamplesRequest struct {
	Question string                 `json:"question,omitempty"`
	SQL      string                 `json:"sql,omitempty"`
	Examples []services.ExamplePair `json:"examples,omitempty"`
}

// CreateExamplesResponse for batch ingestion.
type CreateExamplesResponse struct {
	Stored int `json:"stored"`
}

// ReloadExamplesResponse for POST /api/examples/reload.
type ReloadExamplesResponse struct {
	Indexed int `json:"indexed"`
}

// ExamplesHandler ingests curated question/SQL pairs for retrieval.
type ExamplesHandler struct {
	trainingService services.TrainingService
	logger          *zap.Logger
}

// NewExamplesHandler creates a new examples handler.
func NewExamplesHandler(trainingService services.TrainingService, logger *zap.Logger) *ExamplesHandler {
	return &ExamplesHandler{trainingService: trainingService, logger: logger}
}

// RegisterRoutes registers the examples handler's routes on the given mux.
func (h *ExamplesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/examples", h.Create)
	mux.HandleFunc("POST /api/examples/reload", h.Reload)
	mux.HandleFunc("DELETE /api/examples/{id}", h.Delete)
}

// Create handles POST /api/examples.
func (h *ExamplesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if len(req.Examples) > 0 {
		h.createBatch(w, r, req.Examples)
		return
	}

	example, err := h.trainingService.AddExample(r.Context(), services.ExamplePair{Question: req.Question, SQL: req.SQL})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to add example", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "add_example_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: example}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ExamplesHandler) createBatch(w http.ResponseWriter, r *http.Request, pairs []services.ExamplePair) {
	stored, err := h.trainingService.AddExamples(r.Context(), pairs)
	if err != nil {
		h.logger.Error("Failed to add examples", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "add_examples_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := CreateExamplesResponse{Stored: stored}
	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/examples/{id}.
// Removes a stored example, e.g. one that taught the generator a bad
// pattern, and rebuilds the retrieval index without it.
func (h *ExamplesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseExampleID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.trainingService.RemoveExample(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "example_not_found", "No example with that ID"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to remove example", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "remove_example_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Reload handles POST /api/examples/reload.
// Rebuilds the in-memory retrieval index from persisted examples.
func (h *ExamplesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	indexed, err := h.trainingService.ReloadIndex(r.Context())
	if err != nil {
		h.logger.Error("Failed to reload example index", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "reload_examples_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ReloadExamplesResponse{Indexed: indexed}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
