package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/utils"
)

// IngestPipeline runs the ingest state machine.
type IngestPipeline interface {
	Ingest(ctx context.Context, req models.IngestRequest) (int, error)
}

// IngestHandler handles document ingestion requests
type IngestHandler struct {
	pipeline IngestPipeline
	logger   *zap.Logger
}

// NewIngestHandler creates a new IngestHandler
func NewIngestHandler(pipeline IngestPipeline, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// HandleIngest handles POST /api/ingest
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	count, err := h.pipeline.Ingest(r.Context(), req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("ingest accepted", zap.Int("chunks_upserted", count))
	_ = utils.WriteAccepted(w, models.IngestResponse{ChunksUpserted: count})
}
