package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/services"
)

func makeDoc(id string, bodies ...string) models.Document {
	doc := models.Document{ID: id, Title: "doc " + id}
	for i, body := range bodies {
		doc.Sections = append(doc.Sections, models.Section{
			Heading: "section " + string(rune('a'+i)),
			Body:    body,
		})
	}
	return doc
}

func TestNew_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			require.Error(t, err)
			assert.True(t, services.IsInvalidConfigurationError(err))
		})
	}
}

func TestChunk_WindowOffsets(t *testing.T) {
	c, err := New(512, 50)
	require.NoError(t, err)

	doc := makeDoc("d1", strings.Repeat("x", 1000))
	chunks := c.Chunk(doc)

	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, 462, chunks[1].Offset)
	assert.Equal(t, 924, chunks[2].Offset)
	assert.Len(t, chunks[0].Text, 512)
	assert.Len(t, chunks[1].Text, 512)
	assert.Len(t, chunks[2].Text, 76)

	assert.Equal(t, 0, chunks[0].OverlapWithPrev)
	assert.Equal(t, 50, chunks[1].OverlapWithPrev)
	assert.Equal(t, 50, chunks[2].OverlapWithPrev)
}

func TestChunk_CoverageInvariant(t *testing.T) {
	// sum(chunk lengths) - sum(overlaps) must equal the section length.
	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
	}{
		{"exact single window", 512, 512, 50},
		{"shorter than window", 100, 512, 50},
		{"one char remainder", 513, 512, 50},
		{"no overlap", 1000, 100, 0},
		{"large overlap", 1000, 100, 99},
		{"spec scenario", 1000, 512, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			require.NoError(t, err)

			chunks := c.Chunk(makeDoc("d1", strings.Repeat("a", tt.length)))

			total := 0
			overlaps := 0
			for i, chunk := range chunks {
				assert.NotEmpty(t, chunk.Text)
				total += len(chunk.Text)
				overlaps += chunk.OverlapWithPrev
				if i > 0 {
					assert.Equal(t, c.Stride(), chunk.Offset-chunks[i-1].Offset,
						"consecutive offsets must advance by exactly size-overlap")
				}
			}
			assert.Equal(t, tt.length, total-overlaps)
		})
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c, err := New(64, 16)
	require.NoError(t, err)

	doc := makeDoc("d2",
		strings.Repeat("the quick brown fox. ", 40),
		strings.Repeat("recycled denim jacket ", 25),
	)

	first := c.Chunk(doc)
	second := c.Chunk(doc)
	assert.Equal(t, first, second)
}

func TestChunk_EmptySection(t *testing.T) {
	c, err := New(128, 32)
	require.NoError(t, err)

	chunks := c.Chunk(makeDoc("d3", ""))
	assert.Empty(t, chunks)
}

func TestChunk_SectionsAreIndependent(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	doc := makeDoc("d4", strings.Repeat("a", 150), strings.Repeat("b", 50))
	chunks := c.Chunk(doc)

	require.Len(t, chunks, 3)
	// Each section restarts at offset 0.
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, 90, chunks[1].Offset)
	assert.Equal(t, 0, chunks[2].Offset)
	assert.Equal(t, "section a", chunks[0].SectionHeading)
	assert.Equal(t, "section b", chunks[2].SectionHeading)
	assert.Equal(t, 0, chunks[2].OverlapWithPrev)
}

func TestChunk_MultiByteRunes(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)

	chunks := c.Chunk(makeDoc("d5", "ééééééé")) // 7 runes
	require.Len(t, chunks, 2)
	assert.Equal(t, "éééé", chunks[0].Text)
	assert.Equal(t, 3, chunks[1].Offset)
	assert.Equal(t, "éééé", chunks[1].Text)
}
