package handlers

import (
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/config"
)

// PingResponse carries service identity and liveness detail.
type PingResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	GoVersion   string `json:"go_version"`
	Uptime      string `json:"uptime"`
}

// HealthHandler serves the liveness endpoints.
type HealthHandler struct {
	cfg     *config.Config
	logger  *zap.Logger
	started time.Time
}

// NewHealthHandler creates a new HealthHandler with the given configuration.
func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, logger: logger, started: time.Now()}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health with a bare "ok" for load balancer probes.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping with version, environment, and uptime detail.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	response := PingResponse{
		Status:      "ok",
		Service:     "chatalyst",
		Version:     h.cfg.Version,
		Environment: h.cfg.Env,
		GoVersion:   runtime.Version(),
		Uptime:      time.Since(h.started).Round(time.Second).String(),
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
