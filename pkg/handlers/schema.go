package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
	"github.com/flsteven87/chatalyst-ai/pkg/services"
)

// SchemaResponse wraps the discovered schema snapshot.
type SchemaResponse struct {
	Tables      []models.SchemaTable    `json:"tables"`
	ForeignKeys []models.ForeignKeyEdge `json:"foreign_keys"`
	Indexes     []models.SchemaIndex    `json:"indexes,omitempty"`
	TotalTables int                     `json:"total_tables"`
	Fingerprint string                  `json:"fingerprint"`
	RefreshedAt time.Time               `json:"refreshed_at"`
}

func toSchemaResponse(snapshot *models.SchemaSnapshot) SchemaResponse {
	return SchemaResponse{
		Tables:      snapshot.Tables,
		ForeignKeys: snapshot.ForeignKeys,
		Indexes:     snapshot.Indexes,
		TotalTables: len(snapshot.Tables),
		Fingerprint: snapshot.Fingerprint,
		RefreshedAt: snapshot.RefreshedAt,
	}
}

// SchemaHandler exposes the discovered target-database schema.
type SchemaHandler struct {
	pipeline services.AskService
	logger   *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(pipeline services.AskService, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/schema", h.GetSchema)
	mux.HandleFunc("POST /api/schema/refresh", h.RefreshSchema)
}

// GetSchema handles GET /api/schema.
// Serves the current snapshot, discovering it first when the catalog is cold.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.pipeline.Schema(r.Context())
	if err != nil {
		h.writeDiscoveryError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: toSchemaResponse(snapshot)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RefreshSchema handles POST /api/schema/refresh.
// Forces a rediscovery; memoized answers are dropped when the schema actually
// changed.
func (h *SchemaHandler) RefreshSchema(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.pipeline.RefreshSchema(r.Context())
	if err != nil {
		h.writeDiscoveryError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: toSchemaResponse(snapshot)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *SchemaHandler) writeDiscoveryError(w http.ResponseWriter, err error) {
	h.logger.Error("Schema discovery failed", zap.Error(err))

	status := http.StatusInternalServerError
	code := "schema_discovery_failed"
	var discoveryErr *apperrors.SchemaDiscoveryError
	if errors.As(err, &discoveryErr) {
		status = http.StatusServiceUnavailable
		code = "schema_unavailable"
	}

	if err := ErrorResponse(w, status, code, err.Error()); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
