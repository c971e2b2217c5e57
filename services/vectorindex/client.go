package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modathread/rag-backend/config"
	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/services"
)

// DefaultQueryLimit bounds a vector search when the caller passes no limit.
// Retrieval fusion derives its default evidence size from this constant.
const DefaultQueryLimit = 4

// ScoredChunk is a retrieved chunk with its similarity score (higher is
// better).
type ScoredChunk struct {
	Chunk models.Chunk
	Score float64
}

// Index is the insert/search surface the pipeline depends on. The concrete
// Client speaks to the external vector store; tests substitute fakes.
type Index interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error)
	Ping(ctx context.Context) error
}

// Client is a minimal REST adapter for a Qdrant-compatible vector store.
// It assumes cosine distance and creates the collection when missing.
// Embedding is owned by the caller; the client only moves vectors.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	dimension  int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a vector store client from configuration.
func NewClient(cfg config.VectorStoreConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// EnsureCollection creates the target collection if it does not exist.
// The store answers 200 for an existing collection with the same schema.
func (c *Client) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.dimension,
			"distance": "Cosine",
		},
	}
	return c.putJSON(ctx, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), body)
}

// Upsert writes one point per chunk, keyed deterministically by
// (document_id, offset) so re-ingesting a document replaces its records
// instead of duplicating them.
func (c *Client) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return services.WrapInternal("chunks and vectors length mismatch", nil)
	}
	points := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		points[i] = map[string]any{
			"id":     pointID(chunk),
			"vector": vectors[i],
			"payload": map[string]any{
				"document_id":       chunk.DocumentID,
				"section_heading":   chunk.SectionHeading,
				"text":              chunk.Text,
				"offset":            chunk.Offset,
				"overlap_with_prev": chunk.OverlapWithPrev,
			},
		}
	}
	body := map[string]any{"points": points}
	return c.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection), body)
}

// Query returns the topK nearest chunks for the given vector.
func (c *Client) Query(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = DefaultQueryLimit
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	results := make([]ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := models.Chunk{}
		if v, ok := r.Payload["document_id"].(string); ok {
			chunk.DocumentID = v
		}
		if v, ok := r.Payload["section_heading"].(string); ok {
			chunk.SectionHeading = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		if v, ok := r.Payload["offset"].(float64); ok {
			chunk.Offset = int(v)
		}
		if v, ok := r.Payload["overlap_with_prev"].(float64); ok {
			chunk.OverlapWithPrev = int(v)
		}
		results = append(results, ScoredChunk{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

// Ping checks store reachability for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections", nil)
	if err != nil {
		return services.WrapIndexUnavailable("build ping request", err)
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.WrapIndexUnavailable("vector store unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return services.WrapIndexUnavailable(fmt.Sprintf("vector store returned %s", resp.Status), nil)
	}
	return nil
}

// pointID derives a stable UUID from the chunk's idempotency key so upserts
// with the same (document_id, offset) replace the existing record.
func pointID(chunk models.Chunk) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunk.Key())).String()
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}

func (c *Client) putJSON(ctx context.Context, url string, body any) error {
	return c.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	return c.doJSON(ctx, http.MethodPost, url, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return services.WrapInternal("encode vector store request", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return services.WrapInternal("build vector store request", err)
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.WrapIndexUnavailable("vector store request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return services.WrapIndexUnavailable(fmt.Sprintf("vector store %s %s failed: %s", method, url, resp.Status), nil)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return services.WrapIndexUnavailable("decode vector store response", err)
		}
	}
	return nil
}
