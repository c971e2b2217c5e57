package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/config"
	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/services"
	"github.com/modathread/rag-backend/services/embedding"
	"github.com/modathread/rag-backend/services/vectorindex"
)

// DefaultTopK bounds the fused evidence list when the caller does not ask
// for a specific size. It matches the vector adapter's query default so the
// two stay in lockstep.
const DefaultTopK = vectorindex.DefaultQueryLimit

// ProductSearcher is the catalog surface fusion needs: filtered search with
// raw relevance scores attached.
type ProductSearcher interface {
	ScoredSearch(filters models.ProductFilters, queryText string, topK int) ([]models.ProductRecord, []float64)
}

// Fuser merges evidence from the knowledge corpus (vector search) and the
// product catalog (structured search) into one ranked list.
type Fuser struct {
	embedder     embedding.Embedder
	index        vectorindex.Index
	catalog      ProductSearcher
	productFirst bool
	logger       *zap.Logger
}

// NewFuser creates a fusion service. embedder and index may be nil when no
// generation backend is configured; retrieval then runs catalog-only.
func NewFuser(embedder embedding.Embedder, index vectorindex.Index, cat ProductSearcher, cfg config.FusionConfig, logger *zap.Logger) *Fuser {
	return &Fuser{
		embedder:     embedder,
		index:        index,
		catalog:      cat,
		productFirst: cfg.ProductFirst,
		logger:       logger,
	}
}

// Retrieve runs both corpora and fuses the results. A failure in one corpus
// is tolerated; the query fails only when both corpora fail.
func (f *Fuser) Retrieve(ctx context.Context, question string, filters models.ProductFilters, topK int) ([]models.EvidenceItem, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	knowledge, products, err := f.Gather(ctx, question, filters, topK)
	if err != nil {
		return nil, err
	}
	return f.Fuse(knowledge, products, topK), nil
}

// Gather queries both corpora and returns their still-separate ranked
// lists. Evidence is never silently dropped: when one corpus fails the
// other's results are returned alone, and only a double failure is an error.
func (f *Fuser) Gather(ctx context.Context, question string, filters models.ProductFilters, topK int) (knowledge, products []models.EvidenceItem, err error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	knowledge, kErr := f.retrieveKnowledge(ctx, question, topK)
	if kErr != nil {
		f.logger.Warn("knowledge corpus unavailable, continuing with catalog only", zap.Error(kErr))
	}

	products, pErr := f.retrieveProducts(filters, question, topK)
	if pErr != nil {
		f.logger.Warn("catalog search failed, continuing with knowledge only", zap.Error(pErr))
	}

	if kErr != nil && pErr != nil {
		return nil, nil, services.WrapIndexUnavailable("all evidence sources failed", kErr)
	}
	return knowledge, products, nil
}

func (f *Fuser) retrieveKnowledge(ctx context.Context, question string, topK int) ([]models.EvidenceItem, error) {
	if f.embedder == nil || f.index == nil {
		f.logger.Debug("no embedding backend configured, skipping knowledge corpus")
		return nil, nil
	}

	vector, err := f.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	scored, err := f.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, err
	}

	items := make([]models.EvidenceItem, len(scored))
	for i, sc := range scored {
		items[i] = models.EvidenceItem{
			Kind:   models.EvidenceKnowledge,
			Text:   sc.Chunk.Text,
			Score:  sc.Score,
			Source: knowledgeSource(sc.Chunk),
			Metadata: map[string]string{
				"document_id": sc.Chunk.DocumentID,
				"offset":      strconv.Itoa(sc.Chunk.Offset),
			},
		}
	}
	return items, nil
}

func (f *Fuser) retrieveProducts(filters models.ProductFilters, question string, topK int) ([]models.EvidenceItem, error) {
	if f.catalog == nil {
		return nil, services.ErrCatalogUnloaded
	}

	records, scores := f.catalog.ScoredSearch(filters, question, topK)
	items := make([]models.EvidenceItem, len(records))
	for i, rec := range records {
		items[i] = models.EvidenceItem{
			Kind:   models.EvidenceProduct,
			Text:   productText(rec),
			Score:  scores[i],
			Source: rec.ID,
			Metadata: map[string]string{
				"product_id": rec.ID,
				"brand":      rec.Brand,
				"category":   rec.Category,
			},
		}
	}
	return items, nil
}

// Fuse normalizes each list independently to [0,1] and merges by normalized
// score descending, capped at topK. Equal scores break toward the knowledge
// corpus (flipped by configuration) and then toward the better original
// rank. Raw scores are never compared across lists.
func (f *Fuser) Fuse(knowledge, products []models.EvidenceItem, topK int) []models.EvidenceItem {
	if topK <= 0 {
		topK = DefaultTopK
	}
	normalizeScores(knowledge)
	normalizeScores(products)

	merged := make([]models.EvidenceItem, 0, len(knowledge)+len(products))
	ki, pi := 0, 0
	for ki < len(knowledge) && pi < len(products) {
		if knowledge[ki].Score > products[pi].Score {
			merged = append(merged, knowledge[ki])
			ki++
		} else if products[pi].Score > knowledge[ki].Score {
			merged = append(merged, products[pi])
			pi++
		} else if f.productFirst {
			merged = append(merged, products[pi])
			pi++
		} else {
			merged = append(merged, knowledge[ki])
			ki++
		}
	}
	merged = append(merged, knowledge[ki:]...)
	merged = append(merged, products[pi:]...)

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

// normalizeScores rescales in place to [0,1] with min-max. A list whose
// scores have no spread (including a single element) maps every score to 1.
func normalizeScores(items []models.EvidenceItem) {
	if len(items) == 0 {
		return
	}
	lo, hi := items[0].Score, items[0].Score
	for _, it := range items[1:] {
		if it.Score < lo {
			lo = it.Score
		}
		if it.Score > hi {
			hi = it.Score
		}
	}
	if hi == lo {
		for i := range items {
			items[i].Score = 1.0
		}
		return
	}
	for i := range items {
		items[i].Score = (items[i].Score - lo) / (hi - lo)
	}
}

func knowledgeSource(chunk models.Chunk) string {
	if chunk.SectionHeading != "" {
		return chunk.DocumentID + " / " + chunk.SectionHeading
	}
	return chunk.DocumentID
}

// productText renders a catalog record as grounded evidence text.
func productText(rec models.ProductRecord) string {
	var b strings.Builder
	b.WriteString(rec.Name)
	if rec.Brand != "" {
		b.WriteString(" by ")
		b.WriteString(rec.Brand)
	}
	if rec.Category != "" {
		b.WriteString(" (")
		b.WriteString(rec.Category)
		b.WriteString(")")
	}
	b.WriteString(".")
	if rec.Materials != "" {
		b.WriteString(" Materials: ")
		b.WriteString(rec.Materials)
		b.WriteString(".")
	}
	if rec.Description != "" {
		b.WriteString(" ")
		b.WriteString(rec.Description)
		if !strings.HasSuffix(rec.Description, ".") {
			b.WriteString(".")
		}
	}
	if rec.Care != "" {
		b.WriteString(" Care: ")
		b.WriteString(rec.Care)
		b.WriteString(".")
	}
	if rec.Price > 0 {
		b.WriteString(" Price: ")
		b.WriteString(strconv.FormatFloat(rec.Price, 'f', 2, 64))
		b.WriteString(".")
	}
	if len(rec.Sizes) > 0 {
		b.WriteString(" Sizes: ")
		b.WriteString(strings.Join(rec.Sizes, ", "))
		b.WriteString(".")
	}
	return b.String()
}
