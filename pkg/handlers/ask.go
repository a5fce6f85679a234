package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/services"
)

// AskRequest for POST /api/ask.
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// AskHandler answers natural-language questions over HTTP.
type AskHandler struct {
	pipeline services.AskService
	logger   *zap.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(pipeline services.AskService, logger *zap.Logger) *AskHandler {
	return &AskHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.Ask)
}

// Ask handles POST /api/ask. Rejected and failed questions still produce a
// 200 with the outcome in the body; only malformed requests, empty questions,
// and an unreachable target database map to error statuses.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.pipeline.Ask(r.Context(), req.Question, req.SessionID)
	if err != nil {
		var discoveryErr *apperrors.SchemaDiscoveryError
		switch {
		case errors.Is(err, apperrors.ErrEmptyQuestion):
			if err := ErrorResponse(w, http.StatusBadRequest, "empty_question", "question is required"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.As(err, &discoveryErr):
			h.logger.Error("Schema discovery failed", zap.Error(err))
			if err := ErrorResponse(w, http.StatusServiceUnavailable, "schema_unavailable", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Ask failed", zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "ask_failed", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
