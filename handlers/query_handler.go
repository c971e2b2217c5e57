package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/middleware"
	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/utils"
)

// QueryPipeline runs the query state machine.
type QueryPipeline interface {
	Query(ctx context.Context, identity string, req models.QueryRequest) (models.QueryResponse, error)
}

// QueryHandler handles question answering requests
type QueryHandler struct {
	pipeline QueryPipeline
	logger   *zap.Logger
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(pipeline QueryPipeline, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// HandleQuery handles POST /api/query
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		_ = utils.WriteBadRequest(w, "question cannot be empty", nil)
		return
	}

	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == "" {
		identity = middleware.Identity(r)
	}

	resp, err := h.pipeline.Query(r.Context(), identity, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
