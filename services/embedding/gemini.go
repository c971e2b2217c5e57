package embedding

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/modathread/rag-backend/config"
)

// Embedder turns free text into a vector. Embedding model choice is owned
// here, not by the vector index adapter.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TextGenerator is the opaque generation backend: prompt in, text out.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GeminiClient implements Embedder and TextGenerator against the Gemini API.
type GeminiClient struct {
	client          *genai.Client
	embeddingsModel string
	llmModel        string
	dimension       int
}

// NewGeminiClient creates a Gemini-backed client. Fails when no API key is
// configured; callers treat that as a degraded (fallback-only) deployment.
func NewGeminiClient(ctx context.Context, cfg config.GenerationConfig, dimension int) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		client:          c,
		embeddingsModel: cfg.EmbeddingsModel,
		llmModel:        cfg.LLMModel,
		dimension:       dimension,
	}, nil
}

// Embed returns the embedding vector for the given text.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, fmt.Errorf("empty text for embedding")
	}

	resp, err := g.client.Models.EmbedContent(
		ctx,
		g.embeddingsModel,
		genai.Text(clean),
		&genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(int32(g.dimension)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed error: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	values := resp.Embeddings[0].Values
	if len(values) != g.dimension {
		return nil, fmt.Errorf("unexpected embedding size %d (expected %d)", len(values), g.dimension)
	}

	out := make([]float32, g.dimension)
	copy(out, values)
	return out, nil
}

// Generate runs one completion with the given system instruction and prompt.
func (g *GeminiClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.Text(systemPrompt)[0],
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.llmModel, genai.Text(userPrompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generateContent error: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("empty response from gemini")
	}

	txt := strings.TrimSpace(resp.Text())
	if txt == "" {
		return "", fmt.Errorf("model returned empty text")
	}
	return txt, nil
}

func normalizeWhitespace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			if !space {
				b.WriteRune(' ')
				space = true
			}
		} else {
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}

var _ Embedder = (*GeminiClient)(nil)
var _ TextGenerator = (*GeminiClient)(nil)
