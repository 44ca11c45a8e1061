package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
)

// Match pairs a stored chunk with its similarity score (higher is better).
type Match struct {
	Chunk domain.Chunk
	Score float64
}

// snapshot is an immutable view of the index. Readers grab the current
// snapshot and never see in-place mutation; writers install a replacement.
type snapshot struct {
	chunks    []domain.Chunk
	dimension int
}

// Index is the in-memory vector store: brute-force cosine similarity over a
// copy-on-write snapshot. Writers are serialized; searches never block on a
// rebuild and keep serving the prior snapshot until the swap.
type Index struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

func New() *Index {
	ix := &Index{}
	ix.snap.Store(&snapshot{})
	return ix
}

func (ix *Index) Len() int {
	return len(ix.snap.Load().chunks)
}

// Dimension is zero until the first insert fixes it.
func (ix *Index) Dimension() int {
	return ix.snap.Load().dimension
}

// Insert appends chunks, all of which must carry embeddings of the index
// dimension. The first insert fixes the dimension. The index never
// deduplicates; re-ingesting a source requires Clear first.
func (ix *Index) Insert(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	cur := ix.snap.Load()
	dim := cur.dimension
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", apperrors.ErrInvalidArgument, chunk.ID)
		}
		if dim == 0 {
			dim = len(chunk.Embedding)
		}
		if len(chunk.Embedding) != dim {
			return fmt.Errorf("%w: chunk %s embedding dimension %d does not match index dimension %d", apperrors.ErrInvalidConfiguration, chunk.ID, len(chunk.Embedding), dim)
		}
	}

	next := make([]domain.Chunk, 0, len(cur.chunks)+len(chunks))
	next = append(next, cur.chunks...)
	next = append(next, chunks...)
	ix.snap.Store(&snapshot{chunks: next, dimension: dim})
	return nil
}

// Clear removes every chunk belonging to sourceName.
func (ix *Index) Clear(sourceName string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	cur := ix.snap.Load()
	next := make([]domain.Chunk, 0, len(cur.chunks))
	for _, chunk := range cur.chunks {
		if chunk.SourceName == sourceName {
			continue
		}
		next = append(next, chunk)
	}
	dim := cur.dimension
	if len(next) == 0 {
		dim = 0
	}
	ix.snap.Store(&snapshot{chunks: next, dimension: dim})
}

// Swap atomically replaces the whole index with a fully-built chunk set.
// Used by rebuild: readers keep the old snapshot until this returns.
func (ix *Index) Swap(chunks []domain.Chunk) error {
	dim := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", apperrors.ErrInvalidArgument, chunk.ID)
		}
		if dim == 0 {
			dim = len(chunk.Embedding)
		}
		if len(chunk.Embedding) != dim {
			return fmt.Errorf("%w: chunk %s embedding dimension %d does not match %d", apperrors.ErrInvalidConfiguration, chunk.ID, len(chunk.Embedding), dim)
		}
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.snap.Store(&snapshot{chunks: chunks, dimension: dim})
	return nil
}

// Search returns up to topK chunks ranked by cosine similarity, descending,
// ties keeping insertion order. An empty index yields an empty result, not an
// error; topK <= 0 is a caller error.
func (ix *Index) Search(query []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", apperrors.ErrInvalidArgument, topK)
	}
	snap := ix.snap.Load()
	if len(snap.chunks) == 0 {
		return []Match{}, nil
	}
	if len(query) != snap.dimension {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d", apperrors.ErrInvalidConfiguration, len(query), snap.dimension)
	}

	matches := make([]Match, len(snap.chunks))
	for i, chunk := range snap.chunks {
		matches[i] = Match{Chunk: chunk, Score: cosine(query, chunk.Embedding)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK > len(matches) {
		topK = len(matches)
	}
	return matches[:topK], nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
