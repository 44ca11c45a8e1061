package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
)

// DraftAgent is the slice of the retrieval agent the generator needs.
type DraftAgent interface {
	DraftWorkOrder(ctx context.Context, query string, topK int, strict bool) (plan string, raw string, refs []domain.Reference, err error)
}

// GenerationResult echoes the ticket and carries either a stored work order or
// the missing required fields, never both.
type GenerationResult struct {
	Ticket        domain.Ticket      `json:"ticket"`
	Plan          string             `json:"plan,omitempty"`
	WorkOrder     *domain.WorkOrder  `json:"work_order,omitempty"`
	MissingFields []string           `json:"missing_fields,omitempty"`
	References    []domain.Reference `json:"references,omitempty"`
}

// WorkOrderGenerator turns a ticket plus operator notes into a validated work
// order. Missing required ticket fields short-circuit before any model call;
// they are reported, never defaulted.
type WorkOrderGenerator struct {
	log   *logger.Logger
	agent DraftAgent
	store *WorkOrderStore
}

func NewWorkOrderGenerator(log *logger.Logger, agent DraftAgent, store *WorkOrderStore) (*WorkOrderGenerator, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: work order store required", apperrors.ErrInvalidConfiguration)
	}
	return &WorkOrderGenerator{
		log:   log.With("service", "WorkOrderGenerator"),
		agent: agent,
		store: store,
	}, nil
}

// Generate runs validation, retrieval-grounded drafting, and storage. The
// draft must parse into the work-order shape; one stricter retry is allowed
// before the request fails with ErrGenerationFormat.
func (g *WorkOrderGenerator) Generate(ctx context.Context, ticket domain.Ticket, operatorNotes string, topK int, confirmReplace bool) (GenerationResult, error) {
	result := GenerationResult{Ticket: ticket}

	if missing := ticket.MissingFields(); len(missing) > 0 {
		result.MissingFields = missing
		g.log.Info("ticket rejected, required fields missing", "key", ticket.Key, "missing", missing)
		return result, nil
	}
	if g.agent == nil {
		return result, fmt.Errorf("%w: draft agent not configured", apperrors.ErrGenerationService)
	}

	query := composeQuery(ticket, operatorNotes)

	plan, raw, refs, err := g.agent.DraftWorkOrder(ctx, query, topK, false)
	if err != nil {
		return result, err
	}
	draft, parseErr := parseDraft(raw)
	if parseErr != nil {
		g.log.Warn("work order draft failed to parse, retrying strict", "key", ticket.Key, "error", parseErr)
		plan, raw, refs, err = g.agent.DraftWorkOrder(ctx, query, topK, true)
		if err != nil {
			return result, err
		}
		draft, parseErr = parseDraft(raw)
		if parseErr != nil {
			return result, fmt.Errorf("%w: %v", apperrors.ErrGenerationFormat, parseErr)
		}
	}

	wo := buildWorkOrder(ticket, draft)
	if err := g.store.Put(ctx, wo, confirmReplace); err != nil {
		return result, err
	}

	result.Plan = plan
	result.WorkOrder = &wo
	result.References = refs
	return result, nil
}

func composeQuery(ticket domain.Ticket, operatorNotes string) string {
	parts := []string{
		fmt.Sprintf("Summary: %s", ticket.Summary),
		fmt.Sprintf("Description: %s", ticket.Description),
		fmt.Sprintf("Priority: %s", ticket.Priority),
	}
	if strings.TrimSpace(operatorNotes) != "" {
		parts = append(parts, fmt.Sprintf("Operator notes: %s", operatorNotes))
	}
	return strings.Join(parts, "\n")
}

// parseDraft tolerates markdown fences around the JSON object but nothing
// else; a draft without a title or steps is not a usable procedure.
func parseDraft(raw string) (domain.WorkOrderDraft, error) {
	cleaned := stripFences(raw)
	var draft domain.WorkOrderDraft
	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil {
		return domain.WorkOrderDraft{}, fmt.Errorf("draft is not a JSON object: %v", err)
	}
	if strings.TrimSpace(draft.Title) == "" {
		return domain.WorkOrderDraft{}, fmt.Errorf("draft has no title")
	}
	if len(draft.Steps) == 0 {
		return domain.WorkOrderDraft{}, fmt.Errorf("draft has no steps")
	}
	return draft, nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	// Some models wrap the object in prose despite instructions; take the
	// outermost braces when present.
	if start := strings.Index(cleaned, "{"); start > 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}
	return cleaned
}

func buildWorkOrder(ticket domain.Ticket, draft domain.WorkOrderDraft) domain.WorkOrder {
	steps := make([]domain.Step, 0, len(draft.Steps))
	for i, desc := range draft.Steps {
		steps = append(steps, domain.Step{Index: i, Description: desc, Status: domain.StepPending})
	}
	jiraRefs := draft.JiraRefs
	if ticket.Key != "" && !containsString(jiraRefs, ticket.Key) {
		jiraRefs = append(jiraRefs, ticket.Key)
	}
	return domain.WorkOrder{
		Ticket:     ticket,
		Title:      draft.Title,
		Impact:     draft.Impact,
		Steps:      steps,
		Materials:  draft.Materials,
		Validation: draft.Validation,
		JiraRefs:   jiraRefs,
		Status:     domain.WorkOrderQueued,
		Score:      baseScore(ticket),
	}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
