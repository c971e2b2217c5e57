package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/config"
	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/services"
	"github.com/modathread/rag-backend/services/chunker"
	"github.com/modathread/rag-backend/services/embedding"
	"github.com/modathread/rag-backend/services/generator"
	"github.com/modathread/rag-backend/services/retrieval"
	"github.com/modathread/rag-backend/services/trace"
	"github.com/modathread/rag-backend/services/vectorindex"
)

// State is one step of a request's lifecycle. Transitions are strictly
// sequential per request; any step failure moves to StateError and the
// partial trace is emitted before the error surfaces.
type State string

const (
	StateIdle       State = "idle"
	StateAdmitting  State = "admitting"
	StateRetrieving State = "retrieving"
	StateFusing     State = "fusing"
	StateGenerating State = "generating"
	StateTracing    State = "tracing"
	StateChunking   State = "chunking"
	StateIndexing   State = "indexing"
	StateDone       State = "done"
	StateError      State = "error"
)

// Admitter decides request admission per client identity.
type Admitter interface {
	Admit(identity string) bool
}

// Retriever gathers evidence from both corpora and fuses it.
type Retriever interface {
	Gather(ctx context.Context, question string, filters models.ProductFilters, topK int) (knowledge, products []models.EvidenceItem, err error)
	Fuse(knowledge, products []models.EvidenceItem, topK int) []models.EvidenceItem
}

// Answerer turns fused evidence into a grounded answer.
type Answerer interface {
	Answer(ctx context.Context, question string, evidence []models.EvidenceItem) generator.Result
}

// Pipeline sequences the query and ingest state machines. Each request owns
// its own machine instance; the only shared state lives in the injected
// services.
type Pipeline struct {
	limiter  Admitter
	fuser    Retriever
	answerer Answerer
	embedder embedding.Embedder
	index    vectorindex.Index
	recorder *trace.Recorder
	chunking config.ChunkingConfig
	logger   *zap.Logger
}

// New wires the pipeline. embedder and index may be nil; queries then run
// catalog-only and ingest fails with IndexUnavailable.
func New(
	limiter Admitter,
	fuser Retriever,
	answerer Answerer,
	embedder embedding.Embedder,
	index vectorindex.Index,
	recorder *trace.Recorder,
	chunking config.ChunkingConfig,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		limiter:  limiter,
		fuser:    fuser,
		answerer: answerer,
		embedder: embedder,
		index:    index,
		recorder: recorder,
		chunking: chunking,
		logger:   logger,
	}
}

// Query runs the query machine:
// Idle -> Admitting -> Retrieving -> Fusing -> Generating -> Tracing -> Done.
func (p *Pipeline) Query(ctx context.Context, identity string, req models.QueryRequest) (models.QueryResponse, error) {
	t := p.recorder.Start()
	state := StateIdle

	fail := func(step string, start time.Time, err error) (models.QueryResponse, error) {
		t.Record(step, start, err)
		p.recorder.Finish(t, string(StateError))
		return models.QueryResponse{}, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}

	state = StateAdmitting
	start := time.Now()
	if p.limiter != nil && !p.limiter.Admit(identity) {
		p.logger.Info("query rejected by rate limiter",
			zap.String("identity", identity),
			zap.String("trace_id", t.ID()))
		return fail(string(state), start, services.ErrRateLimited)
	}
	t.Record(string(state), start, nil)

	state = StateRetrieving
	start = time.Now()
	knowledge, products, err := p.fuser.Gather(ctx, req.Question, req.Filters(), topK)
	if err != nil {
		return fail(string(state), start, err)
	}
	t.Record(string(state), start, nil)

	state = StateFusing
	start = time.Now()
	evidence := p.fuser.Fuse(knowledge, products, topK)
	t.Record(string(state), start, nil)

	state = StateGenerating
	start = time.Now()
	result := p.answerer.Answer(ctx, req.Question, evidence)
	t.Record(string(state), start, nil)
	if result.UsedFallback {
		p.logger.Info("generation degraded, served extractive fallback",
			zap.String("trace_id", t.ID()))
	}

	state = StateTracing
	start = time.Now()
	resp := models.QueryResponse{
		Answer:   result.Answer,
		Context:  evidence,
		TraceID:  t.ID(),
		TraceURL: p.recorder.URL(t),
	}
	t.Record(string(state), start, nil)

	p.recorder.Finish(t, string(StateDone))
	return resp, nil
}

// Ingest runs the ingest machine: Idle -> Chunking -> Indexing -> Done.
// Chunk parameters default from configuration and may be overridden per
// call. The returned count is acknowledged only after every upsert landed.
func (p *Pipeline) Ingest(ctx context.Context, req models.IngestRequest) (int, error) {
	t := p.recorder.Start()

	fail := func(step string, start time.Time, err error) (int, error) {
		t.Record(step, start, err)
		p.recorder.Finish(t, string(StateError))
		return 0, err
	}

	state := StateChunking
	start := time.Now()

	docs, err := p.resolveDocuments(req)
	if err != nil {
		return fail(string(state), start, err)
	}

	size, overlap := p.chunking.Size, p.chunking.Overlap
	if req.ChunkSize > 0 {
		size = req.ChunkSize
	}
	if req.ChunkOverlap != nil {
		overlap = *req.ChunkOverlap
	}
	c, err := chunker.New(size, overlap)
	if err != nil {
		return fail(string(state), start, err)
	}

	var chunks []models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.Chunk(doc)...)
	}
	t.Record(string(state), start, nil)

	state = StateIndexing
	start = time.Now()
	if len(chunks) > 0 {
		if err := p.indexChunks(ctx, chunks); err != nil {
			return fail(string(state), start, err)
		}
	}
	t.Record(string(state), start, nil)

	p.recorder.Finish(t, string(StateDone))
	return len(chunks), nil
}

func (p *Pipeline) indexChunks(ctx context.Context, chunks []models.Chunk) error {
	if p.embedder == nil || p.index == nil {
		return services.WrapIndexUnavailable("no embedding backend configured for ingest", nil)
	}

	if err := p.index.EnsureCollection(ctx); err != nil {
		return err
	}

	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vec, err := p.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return services.WrapIndexUnavailable(
				fmt.Sprintf("embed chunk %s", chunk.Key()), err)
		}
		vectors[i] = vec
	}

	// One retry on a transient store failure, inside the same step and the
	// same timeout budget.
	if err := p.index.Upsert(ctx, chunks, vectors); err != nil {
		if !services.IsIndexUnavailableError(err) || ctx.Err() != nil {
			return err
		}
		p.logger.Warn("upsert failed, retrying once", zap.Error(err))
		return p.index.Upsert(ctx, chunks, vectors)
	}
	return nil
}

func (p *Pipeline) resolveDocuments(req models.IngestRequest) ([]models.Document, error) {
	if len(req.Documents) > 0 {
		return req.Documents, nil
	}
	if req.Path == "" {
		return nil, services.ErrMissingIngestBody
	}
	docs, err := ReadDocuments(req.Path)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeValidation,
			fmt.Sprintf("read documents from %s", req.Path), err)
	}
	return docs, nil
}

// ReadDocuments loads newline-delimited Document records from a file.
func ReadDocuments(path string) ([]models.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var docs []models.Document
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var doc models.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("parse document at line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
