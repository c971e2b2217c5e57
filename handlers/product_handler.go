package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/services"
)

// Catalog is the read surface of the product store used by HTTP handlers.
type Catalog interface {
	All() []models.ProductRecord
	Get(id string) (models.ProductRecord, bool)
	Search(filters models.ProductFilters, queryText string, topK int) []models.ProductRecord
}

// ProductHandler handles product catalog requests
type ProductHandler struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog Catalog, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// HandleList handles GET /api/products. Filters and a free-text query come
// from query parameters; no match is an empty list, not an error.
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.ProductFilters{
		Brand:    q.Get("brand"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Size:     q.Get("size"),
	}
	queryText := q.Get("q")

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	var records []models.ProductRecord
	if filters.Empty() && queryText == "" {
		records = h.catalog.All()
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
	} else {
		records = h.catalog.Search(filters, queryText, limit)
	}
	if records == nil {
		records = []models.ProductRecord{}
	}

	respondJSON(w, http.StatusOK, records)
}

// HandleGet handles GET /api/products/{id}
func (h *ProductHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, ok := h.catalog.Get(id)
	if !ok {
		HandleServiceError(w, services.ErrProductNotFound.WithDetail("product_id", id), h.logger)
		return
	}

	respondJSON(w, http.StatusOK, record)
}
