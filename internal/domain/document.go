package domain

import (
	"github.com/google/uuid"
)

// Document is an ingested source (manual, ticket dump) split into ordered pages.
// Immutable once ingested; re-ingesting the same source supersedes it wholesale.
type Document struct {
	ID         uuid.UUID `json:"id"`
	SourceName string    `json:"source_name"`
	Pages      []string  `json:"pages"`
}

// Chunk is the retrieval unit: a bounded slice of page text with provenance.
// Never mutated after creation; the embedding is filled in by the embedder
// before the chunk reaches the index.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	SourceName string    `json:"source_name"`
	PageNumber int       `json:"page_number"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// Reference points a generated answer back at the chunk that grounded it.
type Reference struct {
	SourceName string  `json:"source_name"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// PlanResult is the transient output of one retrieval+generation request.
type PlanResult struct {
	Plan       string      `json:"plan"`
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
}
