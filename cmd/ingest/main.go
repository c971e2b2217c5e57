package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/config"
	"github.com/modathread/rag-backend/services/chunker"
	"github.com/modathread/rag-backend/services/embedding"
	"github.com/modathread/rag-backend/services/pipeline"
	"github.com/modathread/rag-backend/services/vectorindex"
)

// Offline ingest: read a JSONL document file, chunk, embed and upsert into
// the vector store. Meant for seeding a fresh deployment without going
// through the HTTP surface.
func main() {
	var (
		path         = flag.String("path", "", "JSONL file of documents to ingest (required)")
		collection   = flag.String("collection", "", "override the configured collection name")
		chunkSize    = flag.Int("chunk-size", 0, "override CHUNK_SIZE")
		chunkOverlap = flag.Int("chunk-overlap", -1, "override CHUNK_OVERLAP (0 disables overlap)")
	)
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *collection != "" {
		cfg.VectorStore.Collection = *collection
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *path, *chunkSize, *chunkOverlap); err != nil {
		logger.Fatal("ingest failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string, chunkSize, chunkOverlap int) error {
	size, overlap := cfg.Chunking.Size, cfg.Chunking.Overlap
	if chunkSize > 0 {
		size = chunkSize
	}
	if chunkOverlap >= 0 {
		overlap = chunkOverlap
	}
	c, err := chunker.New(size, overlap)
	if err != nil {
		return err
	}

	gemini, err := embedding.NewGeminiClient(ctx, cfg.Generation, cfg.VectorStore.Dimension)
	if err != nil {
		return err
	}

	index := vectorindex.NewClient(cfg.VectorStore, logger)
	if err := index.EnsureCollection(ctx); err != nil {
		return err
	}

	docs, err := pipeline.ReadDocuments(path)
	if err != nil {
		return err
	}
	logger.Info("documents loaded", zap.String("path", path), zap.Int("documents", len(docs)))

	total := 0
	for _, doc := range docs {
		chunks := c.Chunk(doc)
		if len(chunks) == 0 {
			logger.Warn("document produced no chunks", zap.String("document_id", doc.ID))
			continue
		}

		vectors := make([][]float32, len(chunks))
		for i, chunk := range chunks {
			vec, err := gemini.Embed(ctx, chunk.Text)
			if err != nil {
				return err
			}
			vectors[i] = vec
		}

		if err := index.Upsert(ctx, chunks, vectors); err != nil {
			return err
		}
		total += len(chunks)
		logger.Info("document indexed",
			zap.String("document_id", doc.ID),
			zap.Int("chunks", len(chunks)))
	}

	logger.Info("ingest complete",
		zap.Int("documents", len(docs)),
		zap.Int("chunks_upserted", total),
		zap.String("collection", cfg.VectorStore.Collection))
	return nil
}
