package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modathread/rag-backend/config"
	"github.com/modathread/rag-backend/models"
)

type stubBackend struct {
	answers []string
	errs    []error
	calls   int
	prompts []string
}

func (s *stubBackend) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, userPrompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.answers) {
		return s.answers[i], nil
	}
	return "", errors.New("no scripted response")
}

func testCfg() config.GenerationConfig {
	return config.GenerationConfig{Timeout: 5 * time.Second}
}

func evidence(texts ...string) []models.EvidenceItem {
	items := make([]models.EvidenceItem, len(texts))
	for i, txt := range texts {
		items[i] = models.EvidenceItem{Kind: models.EvidenceKnowledge, Text: txt, Source: "doc-1", Score: 1}
	}
	return items
}

func TestAnswer_UsesBackend(t *testing.T) {
	backend := &stubBackend{answers: []string{"Wash it cold. [1]"}}
	g := New(backend, testCfg(), zap.NewNop())

	res := g.Answer(context.Background(), "how do I wash it?", evidence("machine wash cold"))

	assert.Equal(t, "Wash it cold. [1]", res.Answer)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, 1, backend.calls)
	assert.Contains(t, backend.prompts[0], "machine wash cold")
	assert.Contains(t, backend.prompts[0], "how do I wash it?")
}

func TestAnswer_RetriesOnceThenSucceeds(t *testing.T) {
	backend := &stubBackend{
		errs:    []error{errors.New("transient"), nil},
		answers: []string{"", "second try"},
	}
	g := New(backend, testCfg(), zap.NewNop())

	res := g.Answer(context.Background(), "q", evidence("ctx"))

	assert.Equal(t, "second try", res.Answer)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, 2, backend.calls)
}

func TestAnswer_FallbackAfterRetryExhausted(t *testing.T) {
	backend := &stubBackend{errs: []error{errors.New("down"), errors.New("still down")}}
	g := New(backend, testCfg(), zap.NewNop())

	res := g.Answer(context.Background(), "q", evidence("organic cotton tee", "recycled denim"))

	assert.True(t, res.UsedFallback)
	assert.True(t, strings.HasPrefix(res.Answer, "Based on the retrieved context: "))
	assert.Contains(t, res.Answer, "organic cotton tee")
	assert.Contains(t, res.Answer, "recycled denim")
	assert.Equal(t, 2, backend.calls)
}

func TestAnswer_NilBackendAlwaysFallsBack(t *testing.T) {
	g := New(nil, testCfg(), zap.NewNop())

	res := g.Answer(context.Background(), "q", evidence("only evidence"))

	assert.True(t, res.UsedFallback)
	assert.Contains(t, res.Answer, "only evidence")
}

func TestFallback_NeverEmpty(t *testing.T) {
	tests := []struct {
		name     string
		evidence []models.EvidenceItem
	}{
		{"no evidence", nil},
		{"blank evidence texts", evidence("", "   ")},
		{"normal evidence", evidence("some text")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback(tt.evidence)
			require.NotEmpty(t, got)
			assert.True(t, strings.HasPrefix(got, "Based on the retrieved context: "))
		})
	}
}

func TestFallback_UsesTopTwoOnly(t *testing.T) {
	got := Fallback(evidence("first", "second", "third"))

	assert.Contains(t, got, "first")
	assert.Contains(t, got, "second")
	assert.NotContains(t, got, "third")
}

func TestFallback_TruncatesLongEvidence(t *testing.T) {
	long := strings.Repeat("z", 1000)
	got := Fallback(evidence(long))

	assert.Less(t, len([]rune(got)), 500)
	assert.Contains(t, got, "…")
}

func TestFallback_Deterministic(t *testing.T) {
	ev := evidence("alpha", "beta")
	assert.Equal(t, Fallback(ev), Fallback(ev))
}
