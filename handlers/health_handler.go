package handlers

import (
	"context"
	"net/http"

	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

// ServiceVersion is reported by the root endpoint
const ServiceVersion = "1.0.0"

// DatabaseChecker reports whether the database is reachable
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
}

// RootResponse represents the GET / response
type RootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Environment string `json:"environment"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db          DatabaseChecker
	environment string
	logger      *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db DatabaseChecker, environment string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		environment: environment,
		logger:      logger,
	}
}

// HandleRoot handles GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, RootResponse{
		Message: "Identity Gateway API",
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleHealth handles GET /health.
// It answers 503 when the database cannot be reached.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:      "healthy",
		Database:    "connected",
		Environment: h.environment,
	}
	status := http.StatusOK

	if err := h.checkDatabase(r.Context()); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		response.Status = "unhealthy"
		response.Database = "disconnected"
		status = http.StatusServiceUnavailable
	}

	if err := utils.WriteJSON(w, status, response); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return errNoDatabase
	}
	return h.db.HealthCheck(ctx)
}
