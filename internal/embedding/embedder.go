package embedding

import "context"

// Embedder maps text to a fixed-length vector. Dimension is constant for a
// given configuration; embedding the empty string yields a zero vector, never
// an error, so empty chunks degrade gracefully during ingestion.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
