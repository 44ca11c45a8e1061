package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	"github.com/dwoslabs/dwos-backend/internal/embedding"
	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
	"github.com/dwoslabs/dwos-backend/internal/vectorindex"
)

// Generator is the slice of the language-model client the agent needs.
type Generator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

const (
	planSystemPrompt = "You are an analytical planner for data center operations. " +
		"Outline how you would answer the technician's question using the provided context."
	respondSystemPrompt = "You are a professional data center technician assistant. " +
		"Answer precisely, cite concrete steps, and stay within the provided context when it is relevant."
	draftSystemPrompt = "You are a data center operations planner. " +
		"Produce a remediation work order as a JSON object."
)

// Agent runs the two-stage retrieval pipeline: embed the question, pull the
// closest chunks, plan against them, then respond following the plan. Empty
// retrieval is not a failure; the agent answers ungrounded with no references.
type Agent struct {
	log      *logger.Logger
	gen      Generator
	embedder embedding.Embedder
	index    *vectorindex.Index
	topK     int
}

func NewAgent(log *logger.Logger, gen Generator, embedder embedding.Embedder, index *vectorindex.Index, topK int) (*Agent, error) {
	if embedder == nil || index == nil {
		return nil, fmt.Errorf("%w: embedder and index are required", apperrors.ErrInvalidConfiguration)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: default top_k must be positive, got %d", apperrors.ErrInvalidConfiguration, topK)
	}
	return &Agent{log: log, gen: gen, embedder: embedder, index: index, topK: topK}, nil
}

// Answer runs plan-then-respond for a free-form question. topK <= 0 falls back
// to the agent default.
func (a *Agent) Answer(ctx context.Context, question string, topK int) (domain.PlanResult, error) {
	if strings.TrimSpace(question) == "" {
		return domain.PlanResult{}, fmt.Errorf("%w: question must not be empty", apperrors.ErrInvalidArgument)
	}
	if a.gen == nil {
		return domain.PlanResult{}, fmt.Errorf("%w: generation client not configured", apperrors.ErrGenerationService)
	}
	if topK <= 0 {
		topK = a.topK
	}

	contextBlock, refs, err := a.retrieve(ctx, question, topK)
	if err != nil {
		return domain.PlanResult{}, err
	}
	if len(refs) == 0 {
		a.log.Warn("retrieval returned no chunks, answering ungrounded")
	}

	plan, err := a.gen.GenerateText(ctx, planSystemPrompt,
		fmt.Sprintf("Question: %s\nContext:\n%s\nProvide a short bullet plan.", question, contextBlock))
	if err != nil {
		return domain.PlanResult{}, fmt.Errorf("%w: plan stage: %v", apperrors.ErrGenerationService, err)
	}

	answer, err := a.gen.GenerateText(ctx, respondSystemPrompt,
		fmt.Sprintf("Question: %s\nPlan:\n%s\nContext:\n%s\nRespond clearly.", question, plan, contextBlock))
	if err != nil {
		return domain.PlanResult{}, fmt.Errorf("%w: respond stage: %v", apperrors.ErrGenerationService, err)
	}

	return domain.PlanResult{Plan: plan, Answer: answer, References: refs}, nil
}

// DraftWorkOrder retrieves context for a ticket query and asks the model for a
// work-order JSON draft. strict tightens the prompt for the single retry after
// a parse failure; parsing itself belongs to the caller.
func (a *Agent) DraftWorkOrder(ctx context.Context, query string, topK int, strict bool) (string, string, []domain.Reference, error) {
	if strings.TrimSpace(query) == "" {
		return "", "", nil, fmt.Errorf("%w: query must not be empty", apperrors.ErrInvalidArgument)
	}
	if a.gen == nil {
		return "", "", nil, fmt.Errorf("%w: generation client not configured", apperrors.ErrGenerationService)
	}
	if topK <= 0 {
		topK = a.topK
	}

	contextBlock, refs, err := a.retrieve(ctx, query, topK)
	if err != nil {
		return "", "", nil, err
	}

	plan, err := a.gen.GenerateText(ctx, planSystemPrompt,
		fmt.Sprintf("Question: %s\nContext:\n%s\nProvide a short bullet plan.", query, contextBlock))
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: plan stage: %v", apperrors.ErrGenerationService, err)
	}

	user := fmt.Sprintf("Ticket details: %s\nPlan:\n%s\nContext:\n%s\n"+
		`Produce a JSON object with keys "title" (string), "impact" (string), "steps" (array of strings), "materials" (array of strings), "validation" (array of strings), "jira_refs" (array of strings).`,
		query, plan, contextBlock)
	if strict {
		user += "\nReturn ONLY a single JSON object. No prose, no markdown fences."
	}

	raw, err := a.gen.GenerateText(ctx, draftSystemPrompt, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: draft stage: %v", apperrors.ErrGenerationService, err)
	}
	return plan, raw, refs, nil
}

func (a *Agent) retrieve(ctx context.Context, query string, topK int) (string, []domain.Reference, error) {
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return "", nil, err
	}
	matches, err := a.index.Search(vec, topK)
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 {
		return "(no relevant context found)", []domain.Reference{}, nil
	}

	refs := make([]domain.Reference, 0, len(matches))
	lines := make([]string, 0, len(matches))
	for i, m := range matches {
		refs = append(refs, domain.Reference{
			SourceName: m.Chunk.SourceName,
			PageNumber: m.Chunk.PageNumber,
			Score:      m.Score,
		})
		lines = append(lines, fmt.Sprintf("[%d] (%s p.%d)\n%s", i+1, m.Chunk.SourceName, m.Chunk.PageNumber, m.Chunk.Text))
	}
	return strings.Join(lines, "\n\n"), refs, nil
}
