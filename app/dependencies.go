package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/config"
	"github.com/modathread/rag-backend/handlers"
	"github.com/modathread/rag-backend/middleware"
	"github.com/modathread/rag-backend/services/catalog"
	"github.com/modathread/rag-backend/services/embedding"
	"github.com/modathread/rag-backend/services/generator"
	"github.com/modathread/rag-backend/services/pipeline"
	"github.com/modathread/rag-backend/services/ratelimit"
	"github.com/modathread/rag-backend/services/retrieval"
	"github.com/modathread/rag-backend/services/trace"
	"github.com/modathread/rag-backend/services/vectorindex"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Services
	Catalog   *catalog.Store
	Index     *vectorindex.Client
	Gemini    *embedding.GeminiClient
	Limiter   *ratelimit.Limiter
	Fuser     *retrieval.Fuser
	Generator *generator.Generator
	Recorder  *trace.Recorder
	Pipeline  *pipeline.Pipeline

	// Middleware
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// Handlers
	QueryHandler   *handlers.QueryHandler
	IngestHandler  *handlers.IngestHandler
	ProductHandler *handlers.ProductHandler
	HealthHandler  *handlers.HealthHandler

	// watcherCancel stops the catalog file watcher on Close
	watcherCancel context.CancelFunc
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initCatalog(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	deps.initVectorIndex(cfg)
	deps.initGeneration(ctx, cfg)
	deps.initPipeline(ctx, cfg)
	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initCatalog loads the product catalog and starts the file watcher
func (d *Dependencies) initCatalog(ctx context.Context, cfg *config.Config) error {
	store, err := catalog.NewStore(cfg.Catalog.DataPath, d.Logger)
	if err != nil {
		return err
	}
	d.Catalog = store

	watchCtx, cancel := context.WithCancel(context.Background())
	d.watcherCancel = cancel
	go func() {
		if err := store.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
			d.Logger.Warn("catalog watcher stopped", zap.Error(err))
		}
	}()

	return nil
}

// initVectorIndex creates the vector store client
func (d *Dependencies) initVectorIndex(cfg *config.Config) {
	d.Index = vectorindex.NewClient(cfg.VectorStore, d.Logger)
}

// initGeneration initializes the Gemini client when credentials are present.
// Without credentials the service still runs: retrieval is catalog-only and
// every answer comes from the extractive fallback.
func (d *Dependencies) initGeneration(ctx context.Context, cfg *config.Config) {
	if !cfg.Generation.Enabled() {
		d.Logger.Warn("no generation backend configured, running in fallback-only mode")
		return
	}

	client, err := embedding.NewGeminiClient(ctx, cfg.Generation, cfg.VectorStore.Dimension)
	if err != nil {
		d.Logger.Error("failed to initialize generation backend, running in fallback-only mode",
			zap.Error(err))
		return
	}
	d.Gemini = client
	d.Logger.Info("generation backend initialized",
		zap.String("embeddings_model", cfg.Generation.EmbeddingsModel),
		zap.String("llm_model", cfg.Generation.LLMModel))
}

// initPipeline wires the retrieval, generation and admission services into
// the request state machines
func (d *Dependencies) initPipeline(ctx context.Context, cfg *config.Config) {
	d.Limiter = ratelimit.NewLimiter(cfg.RateLimit.Limit(), cfg.RateLimit.Window(), d.Logger)
	d.Limiter.StartCleanupWorker(ctx, cfg.RateLimit.Window())

	var embedder embedding.Embedder
	var textGen embedding.TextGenerator
	if d.Gemini != nil {
		embedder = d.Gemini
		textGen = d.Gemini
	}

	var index vectorindex.Index
	if embedder != nil {
		index = d.Index
	}

	d.Fuser = retrieval.NewFuser(embedder, index, d.Catalog, cfg.Fusion, d.Logger)
	d.Generator = generator.New(textGen, cfg.Generation, d.Logger)
	d.Recorder = trace.NewRecorder(cfg.Observability.TraceUIURL, d.Logger)
	d.Pipeline = pipeline.New(d.Limiter, d.Fuser, d.Generator, embedder, index, d.Recorder, cfg.Chunking, d.Logger)
}

// initHTTP creates the middleware and handlers
func (d *Dependencies) initHTTP(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Auth.APIKey, d.Logger)
	d.RateLimitMiddleware = middleware.NewRateLimitMiddleware(d.Limiter, d.Logger)

	d.QueryHandler = handlers.NewQueryHandler(d.Pipeline, d.Logger)
	d.IngestHandler = handlers.NewIngestHandler(d.Pipeline, d.Logger)
	d.ProductHandler = handlers.NewProductHandler(d.Catalog, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(
		cfg.APIVersion, d.Index, d.Catalog, cfg.Generation.Enabled(), d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	if d.watcherCancel != nil {
		d.watcherCancel()
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}
