package chunker

import (
	"fmt"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
)

// Chunker splits raw text into fixed-size overlapping windows. Boundaries are
// a pure function of the input and the configuration, so re-ingesting the same
// document always produces identical chunks.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", apperrors.ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", apperrors.ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", apperrors.ErrInvalidConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns ordered windows over text. Every window is at most size runes,
// consecutive windows share overlap runes, and the final window may be shorter.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.size - c.overlap
	var out []string
	for start := 0; ; start += step {
		end := start + c.size
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// ChunkDocument splits every page of doc, tagging each chunk with its source
// and 1-based page number. Embeddings are left empty for the embedder.
func (c *Chunker) ChunkDocument(doc domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for pageIdx, page := range doc.Pages {
		for i, segment := range c.Split(page) {
			chunks = append(chunks, domain.Chunk{
				ID:         fmt.Sprintf("%s:%d:%d", doc.ID, pageIdx+1, i),
				DocumentID: doc.ID,
				SourceName: doc.SourceName,
				PageNumber: pageIdx + 1,
				Text:       segment,
			})
		}
	}
	return chunks
}
