package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/services"
)

// HistoryListResponse for GET /api/history.
type HistoryListResponse struct {
	Entries []*models.QueryHistoryEntry `json:"entries"`
	Total   int                         `json:"total"`
}

// HistoryHandler serves the audit trail of answered questions.
type HistoryHandler struct {
	historyService services.HistoryService
	logger         *zap.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(historyService services.HistoryService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{historyService: historyService, logger: logger}
}

// RegisterRoutes registers the history handler's routes on the given mux.
func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/history", h.List)
	mux.HandleFunc("DELETE /api/history", h.Prune)
}

// List handles GET /api/history.
// Supports session_id, outcome, since, and limit query parameters.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := models.QueryHistoryFilters{
		SessionID: r.URL.Query().Get("session_id"),
		Outcome:   r.URL.Query().Get("outcome"),
	}

	switch filters.Outcome {
	case "", models.AskOutcomeAnswered, models.AskOutcomeRejected, models.AskOutcomeFailed:
	default:
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "outcome must be answered, rejected, or failed"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "since must be an RFC 3339 timestamp"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filters.Since = &since
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filters.Limit = limit
	}

	entries, total, err := h.historyService.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list query history", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_history_failed", "Failed to list query history"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if entries == nil {
		entries = []*models.QueryHistoryEntry{}
	}
	response := HistoryListResponse{Entries: entries, Total: total}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// HistoryPruneResponse for DELETE /api/history.
type HistoryPruneResponse struct {
	Deleted int64 `json:"deleted"`
}

// Prune handles DELETE /api/history.
// Requires an older_than_days query parameter and deletes entries past it.
func (h *HistoryHandler) Prune(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("older_than_days")
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "older_than_days must be a positive integer"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	deleted, err := h.historyService.Prune(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.logger.Error("Failed to prune query history", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "prune_history_failed", "Failed to prune query history"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: HistoryPruneResponse{Deleted: deleted}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
