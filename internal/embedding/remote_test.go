package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
)

type fakeEmbedClient struct {
	calls  int
	inputs []string
	err    error
	dim    int
}

func (f *fakeEmbedClient) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.calls++
	f.inputs = inputs
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = make([]float32, f.dim)
		out[i][0] = 1
	}
	return out, nil
}

func TestRemoteEmbedderEmptyInputSkipsService(t *testing.T) {
	client := &fakeEmbedClient{dim: 8}
	e, err := NewRemoteEmbedder(client, 8)
	if err != nil {
		t.Fatalf("NewRemoteEmbedder: %v", err)
	}
	vec, err := e.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("service calls: want=0 got=%d", client.calls)
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("component %d not zero: %v", i, v)
		}
	}
}

func TestRemoteEmbedderWrapsServiceFailure(t *testing.T) {
	client := &fakeEmbedClient{dim: 8, err: fmt.Errorf("nim http 503: upstream down")}
	e, err := NewRemoteEmbedder(client, 8)
	if err != nil {
		t.Fatalf("NewRemoteEmbedder: %v", err)
	}
	_, err = e.Embed(context.Background(), "GPU overheating")
	if err == nil {
		t.Fatalf("Embed: expected error")
	}
	if !errors.Is(err, apperrors.ErrEmbeddingUnavailable) {
		t.Fatalf("Embed: want ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestRemoteEmbedderDimensionMismatch(t *testing.T) {
	client := &fakeEmbedClient{dim: 4}
	e, err := NewRemoteEmbedder(client, 8)
	if err != nil {
		t.Fatalf("NewRemoteEmbedder: %v", err)
	}
	_, err = e.Embed(context.Background(), "GPU overheating")
	if !errors.Is(err, apperrors.ErrInvalidConfiguration) {
		t.Fatalf("Embed: want ErrInvalidConfiguration, got %v", err)
	}
}

func TestRemoteEmbedderBatchPreservesOrder(t *testing.T) {
	client := &fakeEmbedClient{dim: 8}
	e, err := NewRemoteEmbedder(client, 8)
	if err != nil {
		t.Fatalf("NewRemoteEmbedder: %v", err)
	}
	vecs, err := e.EmbedBatch(context.Background(), []string{"first", "", "third"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("batch length: want=3 got=%d", len(vecs))
	}
	if len(client.inputs) != 2 {
		t.Fatalf("remote inputs: want=2 got=%d", len(client.inputs))
	}
	if vecs[1][0] != 0 {
		t.Fatalf("empty slot should be zero vector, got %v", vecs[1][0])
	}
	if vecs[0][0] != 1 || vecs[2][0] != 1 {
		t.Fatalf("non-empty slots should carry remote vectors")
	}
}
