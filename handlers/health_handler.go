package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/utils"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Pinger checks reachability of a remote dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter reports the number of loaded catalog records.
type Counter interface {
	Len() int
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	version           string
	index             Pinger
	catalog           Counter
	generationEnabled bool
	logger            *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(version string, index Pinger, catalog Counter, generationEnabled bool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		version:           version,
		index:             index,
		catalog:           catalog,
		generationEnabled: generationEnabled,
		logger:            logger,
	}
}

// HandleHealth handles GET /health
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /health/ready
// Readiness check - validates that dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.index == nil {
		checks["vector_store"] = "not_configured"
	} else if err := h.index.Ping(ctx); err != nil {
		h.logger.Warn("vector store health check failed", zap.Error(err))
		checks["vector_store"] = "unhealthy"
		allHealthy = false
	} else {
		checks["vector_store"] = "healthy"
	}

	if h.catalog == nil || h.catalog.Len() == 0 {
		checks["catalog"] = "empty"
	} else {
		checks["catalog"] = "healthy"
	}

	// Generation is optional; the fallback keeps queries serviceable.
	if h.generationEnabled {
		checks["generation"] = "configured"
	} else {
		checks["generation"] = "fallback_only"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
