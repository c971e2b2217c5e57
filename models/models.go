package models

import "strconv"

// Section is one heading/body pair inside a knowledge document.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Document is the source of truth for knowledge ingestion. It is immutable
// once handed to the chunker.
type Document struct {
	ID       string    `json:"id" validate:"required"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Chunk is the atomic unit stored in the vector index. Offset is the rune
// position of the chunk within its section body; OverlapWithPrev counts the
// runes shared with the preceding chunk of the same section.
type Chunk struct {
	DocumentID      string `json:"document_id"`
	SectionHeading  string `json:"section_heading"`
	Text            string `json:"text"`
	Offset          int    `json:"offset"`
	OverlapWithPrev int    `json:"overlap_with_prev"`
}

// Key returns the idempotency key used by the vector index for upserts.
func (c Chunk) Key() string {
	return c.DocumentID + ":" + strconv.Itoa(c.Offset)
}

// ProductRecord is one entry of the structured fashion catalog. Records are
// immutable once loaded; the whole catalog is swapped on reload.
type ProductRecord struct {
	ID          string   `json:"product_id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Materials   string   `json:"materials,omitempty"`
	Description string   `json:"description"`
	Care        string   `json:"care,omitempty"`
	Price       float64  `json:"price"`
	Sizes       []string `json:"sizes"`
	Color       string   `json:"color,omitempty"`
	Tags        []string `json:"tags"`
}

// EvidenceKind tags the corpus an EvidenceItem came from.
type EvidenceKind string

const (
	EvidenceKnowledge EvidenceKind = "knowledge"
	EvidenceProduct   EvidenceKind = "product"
)

// EvidenceItem is the fused, ranked unit of retrieved context passed to the
// answer generator and returned to the caller. Score is unit-less but
// monotonic within one query (higher is better).
type EvidenceItem struct {
	Kind     EvidenceKind      `json:"type"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ProductFilters narrows catalog candidates. Every present field must match
// exactly (case-insensitive).
type ProductFilters struct {
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Size     string `json:"size,omitempty"`
}

// Empty reports whether no filter field is set.
func (f ProductFilters) Empty() bool {
	return f.Brand == "" && f.Category == "" && f.Tag == "" && f.Size == ""
}

// QueryRequest is the payload for POST /api/query.
type QueryRequest struct {
	Question string `json:"question" validate:"required"`
	TopK     int    `json:"top_k,omitempty" validate:"gte=0"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Size     string `json:"size,omitempty"`
}

// Filters collects the optional filter fields of a query request.
func (r QueryRequest) Filters() ProductFilters {
	return ProductFilters{Brand: r.Brand, Category: r.Category, Tag: r.Tag, Size: r.Size}
}

// QueryResponse is returned by POST /api/query. Context is ordered
// relevance-descending.
type QueryResponse struct {
	Answer   string         `json:"answer"`
	Context  []EvidenceItem `json:"context"`
	TraceID  string         `json:"trace_id,omitempty"`
	TraceURL string         `json:"trace_url,omitempty"`
}

// IngestRequest is the payload for POST /api/ingest. Either Documents or
// Path must be set. ChunkSize overrides the configured default when
// positive; ChunkOverlap overrides whenever present, so a caller can ask
// for zero overlap even when the default is nonzero.
type IngestRequest struct {
	Documents    []Document `json:"documents,omitempty"`
	Path         string     `json:"path,omitempty"`
	ChunkSize    int        `json:"chunk_size,omitempty" validate:"gte=0"`
	ChunkOverlap *int       `json:"chunk_overlap,omitempty" validate:"omitempty,gte=0"`
}

// IngestResponse reports the number of chunks upserted.
type IngestResponse struct {
	ChunksUpserted int `json:"chunks_upserted"`
}
