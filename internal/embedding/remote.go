package embedding

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
)

// EmbedClient is the slice of the NIM client the remote strategy needs.
type EmbedClient interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// RemoteEmbedder delegates to the configured embedding service. Failures wrap
// ErrEmbeddingUnavailable; retry policy belongs to the caller.
type RemoteEmbedder struct {
	client    EmbedClient
	dimension int
}

func NewRemoteEmbedder(client EmbedClient, dimension int) (*RemoteEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: embedding client required", apperrors.ErrInvalidConfiguration)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", apperrors.ErrInvalidConfiguration, dimension)
	}
	return &RemoteEmbedder{client: client, dimension: dimension}, nil
}

func (e *RemoteEmbedder) Name() string { return "remote" }

func (e *RemoteEmbedder) Dimension() int { return e.dimension }

func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Empty inputs embed to zero vectors locally; the service never sees them.
	remoteIdx := make([]int, 0, len(texts))
	remoteTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, e.dimension)
			continue
		}
		remoteIdx = append(remoteIdx, i)
		remoteTexts = append(remoteTexts, text)
	}
	if len(remoteTexts) == 0 {
		return out, nil
	}

	vecs, err := e.client.Embed(ctx, remoteTexts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != len(remoteTexts) {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d", apperrors.ErrEmbeddingUnavailable, len(remoteTexts), len(vecs))
	}
	for pos, i := range remoteIdx {
		if len(vecs[pos]) != e.dimension {
			return nil, fmt.Errorf("%w: embedding dimension %d does not match configured %d", apperrors.ErrInvalidConfiguration, len(vecs[pos]), e.dimension)
		}
		out[i] = vecs[pos]
	}
	return out, nil
}
