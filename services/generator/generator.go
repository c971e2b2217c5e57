package generator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/config"
	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/services/embedding"
)

const (
	systemPrompt = "You are a concise assistant for a fashion catalog. " +
		"Answer strictly from the provided context. " +
		"If the context does not contain the answer, say you do not know. " +
		"Cite sources in square brackets."

	// fallbackPrefix marks extractive answers produced without a model.
	fallbackPrefix = "Based on the retrieved context: "

	// fallbackEvidenceCount and fallbackCharBudget bound the extractive
	// answer so it stays readable.
	fallbackEvidenceCount = 2
	fallbackCharBudget    = 400

	emptyEvidenceAnswer = "No relevant information was found for this question."
)

// Generator produces grounded answers from fused evidence, degrading to a
// deterministic extractive answer when no model is available or the model
// fails.
type Generator struct {
	backend embedding.TextGenerator
	cfg     config.GenerationConfig
	logger  *zap.Logger
}

// Result carries the answer and whether the extractive fallback produced it.
type Result struct {
	Answer       string
	UsedFallback bool
}

// New creates a generator. backend may be nil; every answer then comes from
// the fallback path.
func New(backend embedding.TextGenerator, cfg config.GenerationConfig, logger *zap.Logger) *Generator {
	return &Generator{backend: backend, cfg: cfg, logger: logger}
}

// Answer produces a grounded answer for the question. It never returns an
// empty answer: when the backend is missing or fails after one retry, the
// extractive fallback is used instead.
func (g *Generator) Answer(ctx context.Context, question string, evidence []models.EvidenceItem) Result {
	if g.backend == nil {
		return Result{Answer: Fallback(evidence), UsedFallback: true}
	}

	prompt := buildPrompt(question, evidence)

	answer, err := g.generateOnce(ctx, prompt)
	if err != nil {
		g.logger.Warn("generation failed, retrying once", zap.Error(err))
		answer, err = g.generateOnce(ctx, prompt)
	}
	if err != nil {
		g.logger.Warn("generation failed after retry, using extractive fallback", zap.Error(err))
		return Result{Answer: Fallback(evidence), UsedFallback: true}
	}
	return Result{Answer: answer, UsedFallback: false}
}

func (g *Generator) generateOnce(ctx context.Context, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	return g.backend.Generate(genCtx, systemPrompt, prompt)
}

// Fallback builds the deterministic extractive answer: the highest ranked
// evidence texts, truncated to a fixed budget, behind a fixed prefix. The
// result is non-empty for any input.
func Fallback(evidence []models.EvidenceItem) string {
	if len(evidence) == 0 {
		return fallbackPrefix + emptyEvidenceAnswer
	}

	n := len(evidence)
	if n > fallbackEvidenceCount {
		n = fallbackEvidenceCount
	}
	parts := make([]string, 0, n)
	for _, item := range evidence[:n] {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		parts = append(parts, truncate(text, fallbackCharBudget))
	}
	if len(parts) == 0 {
		return fallbackPrefix + emptyEvidenceAnswer
	}
	return fallbackPrefix + strings.Join(parts, " ")
}

func buildPrompt(question string, evidence []models.EvidenceItem) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, item := range evidence {
		fmt.Fprintf(&b, "[%d] (%s, source: %s) %s\n", i+1, item.Kind, item.Source, item.Text)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
