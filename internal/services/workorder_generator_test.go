package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
)

type fakeDraftAgent struct {
	calls   int
	replies []string
	err     error
	strict  []bool
}

func (f *fakeDraftAgent) DraftWorkOrder(_ context.Context, query string, topK int, strict bool) (string, string, []domain.Reference, error) {
	f.strict = append(f.strict, strict)
	if f.err != nil {
		return "", "", nil, f.err
	}
	reply := f.replies[f.calls]
	f.calls++
	refs := []domain.Reference{{SourceName: "runbook.pdf", PageNumber: 2, Score: 0.8}}
	return "- inspect cooling", reply, refs, nil
}

func validDraft() string {
	return `{"title":"Replace fan tray","impact":"GPU throttling in rack A12","steps":["drain workloads","swap tray"],"materials":["fan tray"],"validation":["temps under 70C"],"jira_refs":[]}`
}

func fullTicket() domain.Ticket {
	return domain.Ticket{
		IssueID:     "10001",
		Key:         "DWOS-1",
		Summary:     "GPU thermal alert",
		Description: "GPU 4 in rack A12 overheating",
		Priority:    "High",
	}
}

func testGenerator(t *testing.T, agent DraftAgent) (*WorkOrderGenerator, *WorkOrderStore) {
	t.Helper()
	store := testStore(t, nil)
	gen, err := NewWorkOrderGenerator(store.log, agent, store)
	if err != nil {
		t.Fatalf("NewWorkOrderGenerator: %v", err)
	}
	return gen, store
}

func TestGenerateReportsMissingFieldsWithoutModelCall(t *testing.T) {
	agent := &fakeDraftAgent{replies: []string{validDraft()}}
	gen, _ := testGenerator(t, agent)

	ticket := fullTicket()
	ticket.Description = ""
	res, err := gen.Generate(context.Background(), ticket, "", 4, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.MissingFields) != 1 || res.MissingFields[0] != "description" {
		t.Fatalf("missing fields: want=[description] got=%v", res.MissingFields)
	}
	if res.WorkOrder != nil {
		t.Fatalf("no work order should be produced for an invalid ticket")
	}
	if agent.calls != 0 {
		t.Fatalf("model invoked despite missing fields: %d calls", agent.calls)
	}
}

func TestGenerateStoresQueuedWorkOrder(t *testing.T) {
	agent := &fakeDraftAgent{replies: []string{validDraft()}}
	gen, store := testGenerator(t, agent)

	res, err := gen.Generate(context.Background(), fullTicket(), "fans audible from aisle", 4, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.WorkOrder == nil {
		t.Fatalf("work order missing from result")
	}
	if res.WorkOrder.Status != domain.WorkOrderQueued {
		t.Fatalf("status: want=queued got=%s", res.WorkOrder.Status)
	}
	if len(res.WorkOrder.Steps) != 2 || res.WorkOrder.Steps[0].Status != domain.StepPending {
		t.Fatalf("steps not ordered pending: %+v", res.WorkOrder.Steps)
	}
	if !containsString(res.WorkOrder.JiraRefs, "DWOS-1") {
		t.Fatalf("ticket key missing from jira_refs: %v", res.WorkOrder.JiraRefs)
	}
	if len(res.References) != 1 {
		t.Fatalf("references: want=1 got=%d", len(res.References))
	}

	stored, err := store.Get("DWOS-1")
	if err != nil {
		t.Fatalf("stored work order not found: %v", err)
	}
	if stored.Title != "Replace fan tray" {
		t.Fatalf("stored title: %s", stored.Title)
	}
}

func TestGenerateRetriesOnceStrictThenFails(t *testing.T) {
	agent := &fakeDraftAgent{replies: []string{"not json at all", "still not json"}}
	gen, _ := testGenerator(t, agent)

	_, err := gen.Generate(context.Background(), fullTicket(), "", 4, false)
	if !errors.Is(err, apperrors.ErrGenerationFormat) {
		t.Fatalf("Generate: want ErrGenerationFormat, got %v", err)
	}
	if agent.calls != 2 {
		t.Fatalf("draft calls: want=2 got=%d", agent.calls)
	}
	if len(agent.strict) != 2 || agent.strict[0] || !agent.strict[1] {
		t.Fatalf("retry must be strict: %v", agent.strict)
	}
}

func TestGenerateRecoversOnStrictRetry(t *testing.T) {
	fenced := "Here you go:\n```json\n" + validDraft() + "\n```"
	agent := &fakeDraftAgent{replies: []string{`{"title":"no steps"}`, fenced}}
	gen, _ := testGenerator(t, agent)

	res, err := gen.Generate(context.Background(), fullTicket(), "", 4, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.WorkOrder == nil || res.WorkOrder.Title != "Replace fan tray" {
		t.Fatalf("strict retry draft not used: %+v", res.WorkOrder)
	}
}

func TestGenerateSurfacesServiceError(t *testing.T) {
	agent := &fakeDraftAgent{err: fmt.Errorf("%w: model timeout", apperrors.ErrGenerationService)}
	gen, _ := testGenerator(t, agent)

	_, err := gen.Generate(context.Background(), fullTicket(), "", 4, false)
	if !errors.Is(err, apperrors.ErrGenerationService) {
		t.Fatalf("Generate: want ErrGenerationService, got %v", err)
	}
}

func TestGenerateRequiresConfirmReplace(t *testing.T) {
	agent := &fakeDraftAgent{replies: []string{validDraft(), validDraft(), validDraft()}}
	gen, _ := testGenerator(t, agent)
	ctx := context.Background()

	if _, err := gen.Generate(ctx, fullTicket(), "", 4, false); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := gen.Generate(ctx, fullTicket(), "", 4, false); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("regenerate without confirm: want ErrInvalidArgument, got %v", err)
	}
	if _, err := gen.Generate(ctx, fullTicket(), "", 4, true); err != nil {
		t.Fatalf("regenerate with confirm: %v", err)
	}
}

func TestParseDraftFenceAndProse(t *testing.T) {
	cases := []string{
		validDraft(),
		"```json\n" + validDraft() + "\n```",
		"Sure, here is the work order: " + validDraft(),
	}
	for i, raw := range cases {
		draft, err := parseDraft(raw)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if draft.Title != "Replace fan tray" {
			t.Fatalf("case %d title: %s", i, draft.Title)
		}
	}
	if _, err := parseDraft(`{"title":"x","steps":[]}`); err == nil {
		t.Fatalf("empty steps must fail validation")
	}
}
