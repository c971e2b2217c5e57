package chunker

import (
	"github.com/modathread/rag-backend/models"
	"github.com/modathread/rag-backend/services"
)

// Chunker splits document sections into overlapping fixed-size windows.
// It is a pure function holder: chunking has no side effects and is
// deterministic for a given document and parameter pair.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Requires size > 0 and 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, services.ErrInvalidChunkParams.
			WithDetail("chunk_size", size).
			WithDetail("chunk_overlap", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Stride returns the offset advance between consecutive chunks.
func (c *Chunker) Stride() int {
	return c.size - c.overlap
}

// Chunk splits every section of the document independently. Within a
// section, consecutive chunk offsets advance by exactly size-overlap; the
// final chunk may be shorter than size but is never empty. An empty section
// body yields no chunks.
func (c *Chunker) Chunk(doc models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, section := range doc.Sections {
		chunks = append(chunks, c.chunkSection(doc.ID, section)...)
	}
	return chunks
}

func (c *Chunker) chunkSection(docID string, section models.Section) []models.Chunk {
	body := []rune(section.Body)
	if len(body) == 0 {
		return nil
	}

	stride := c.Stride()
	var chunks []models.Chunk
	for offset := 0; offset < len(body); offset += stride {
		end := offset + c.size
		if end > len(body) {
			end = len(body)
		}
		overlap := 0
		if offset > 0 {
			overlap = c.overlap
		}
		chunks = append(chunks, models.Chunk{
			DocumentID:      docID,
			SectionHeading:  section.Heading,
			Text:            string(body[offset:end]),
			Offset:          offset,
			OverlapWithPrev: overlap,
		})
		if end == len(body) {
			break
		}
	}
	return chunks
}
