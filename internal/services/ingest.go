package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	"github.com/dwoslabs/dwos-backend/internal/embedding"
	"github.com/dwoslabs/dwos-backend/internal/ingestion/chunker"
	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
	"github.com/dwoslabs/dwos-backend/internal/vectorindex"
)

const rebuildConcurrency = 4

// IngestService owns the ingestion path: chunk, embed, index. It keeps the
// source documents so the whole index can be rebuilt from scratch, for example
// after switching embedding strategies.
type IngestService struct {
	log      *logger.Logger
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	index    *vectorindex.Index

	mu   sync.Mutex
	docs map[string]domain.Document
}

func NewIngestService(log *logger.Logger, ch *chunker.Chunker, embedder embedding.Embedder, index *vectorindex.Index) (*IngestService, error) {
	if ch == nil || embedder == nil || index == nil {
		return nil, fmt.Errorf("%w: chunker, embedder and index are required", apperrors.ErrInvalidConfiguration)
	}
	return &IngestService{
		log:      log.With("service", "IngestService"),
		chunker:  ch,
		embedder: embedder,
		index:    index,
		docs:     make(map[string]domain.Document),
	}, nil
}

// IngestDocument chunks and embeds one source and installs it in the index.
// Re-ingesting a source name supersedes the prior version wholesale.
func (s *IngestService) IngestDocument(ctx context.Context, sourceName string, pages []string) (int, error) {
	sourceName = strings.TrimSpace(sourceName)
	if sourceName == "" {
		return 0, fmt.Errorf("%w: source_name must not be empty", apperrors.ErrInvalidArgument)
	}
	if len(pages) == 0 {
		return 0, fmt.Errorf("%w: document %s has no pages", apperrors.ErrInvalidArgument, sourceName)
	}

	doc := domain.Document{ID: uuid.New(), SourceName: sourceName, Pages: pages}
	chunks, err := s.embedChunks(ctx, s.chunker.ChunkDocument(doc))
	if err != nil {
		return 0, err
	}

	s.index.Clear(sourceName)
	if err := s.index.Insert(chunks); err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.docs[sourceName] = doc
	s.mu.Unlock()

	s.log.Info("document ingested", "source", sourceName, "pages", len(pages), "chunks", len(chunks))
	return len(chunks), nil
}

// IngestTickets indexes each ticket as its own single-page document so queue
// questions can be answered alongside manual content.
func (s *IngestService) IngestTickets(ctx context.Context, tickets []domain.Ticket) (int, error) {
	total := 0
	for _, ticket := range tickets {
		if strings.TrimSpace(ticket.Key) == "" {
			continue
		}
		n, err := s.IngestDocument(ctx, "jira:"+ticket.Key, []string{ticket.ToText()})
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Rebuild re-chunks and re-embeds every known document and atomically swaps
// the result in. Searches keep serving the prior snapshot until the swap.
func (s *IngestService) Rebuild(ctx context.Context) (int, error) {
	s.mu.Lock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	s.mu.Unlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].SourceName < docs[j].SourceName })

	chunksBySource := make([][]domain.Chunk, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			chunks, err := s.embedChunks(gctx, s.chunker.ChunkDocument(doc))
			if err != nil {
				return err
			}
			chunksBySource[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var all []domain.Chunk
	for _, chunks := range chunksBySource {
		all = append(all, chunks...)
	}
	if err := s.index.Swap(all); err != nil {
		return 0, err
	}
	s.log.Info("index rebuilt", "sources", len(docs), "chunks", len(all))
	return len(all), nil
}

// Sources lists the ingested source names, sorted.
func (s *IngestService) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs))
	for name := range s.docs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
	}
	return chunks, nil
}
