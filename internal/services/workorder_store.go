package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
	"github.com/dwoslabs/dwos-backend/internal/repos"
	"github.com/dwoslabs/dwos-backend/internal/types"
)

// TrackerClient is the slice of the issue-tracker client the store needs to
// mirror lifecycle changes outward.
type TrackerClient interface {
	SearchIssues(ctx context.Context) ([]domain.Ticket, error)
	Transition(ctx context.Context, issueID string, transitionCode string) error
	Comment(ctx context.Context, issueID string, text string) error
}

// baselineSteps seed imported tickets that have no generated procedure yet.
var baselineSteps = []string{
	"Review ticket details and confirm the affected equipment",
	"Gather required tools and safety materials",
	"Execute remediation per site runbook",
	"Validate the fix and update the ticket",
}

// terminal tracker statuses map an imported ticket straight to Completed.
var completedTrackerStatuses = map[string]bool{
	"done":     true,
	"closed":   true,
	"resolved": true,
}

type storeEntry struct {
	mu sync.Mutex
	wo domain.WorkOrder
}

// WorkOrderStore owns every work order. All mutations to a single work order
// are serialized through its entry lock; operations on different work orders
// proceed independently. The in-memory state is authoritative; the repo is a
// write-through journal reloaded at startup.
type WorkOrderStore struct {
	log          *logger.Logger
	tracker      TrackerClient
	repo         repos.WorkOrderRepo
	startCode    string
	completeCode string

	mu      sync.RWMutex
	entries map[string]*storeEntry
	byKey   map[string]string
	order   []string
}

func NewWorkOrderStore(log *logger.Logger, tracker TrackerClient, repo repos.WorkOrderRepo, startCode, completeCode string) *WorkOrderStore {
	return &WorkOrderStore{
		log:          log.With("service", "WorkOrderStore"),
		tracker:      tracker,
		repo:         repo,
		startCode:    startCode,
		completeCode: completeCode,
		entries:      make(map[string]*storeEntry),
		byKey:        make(map[string]string),
	}
}

// Load replays the persisted journal into memory. Called once at startup,
// before the store is shared.
func (s *WorkOrderStore) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	records, err := s.repo.ListAll(ctx, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		wo, convErr := recordToWorkOrder(rec)
		if convErr != nil {
			s.log.Warn("skipping unreadable work order record", "issue_id", rec.IssueID, "error", convErr)
			continue
		}
		s.insertLocked(wo)
	}
	s.log.Info("work orders loaded", "count", len(s.entries))
	return nil
}

// Put inserts a work order. An existing work order for the same issue is only
// overwritten when replace is set; notes from the prior version are carried
// forward on replace.
func (s *WorkOrderStore) Put(ctx context.Context, wo domain.WorkOrder, replace bool) error {
	if strings.TrimSpace(wo.Ticket.IssueID) == "" {
		return fmt.Errorf("%w: work order requires an issue_id", apperrors.ErrInvalidArgument)
	}
	s.mu.Lock()
	existing, ok := s.entries[wo.Ticket.IssueID]
	if ok && !replace {
		s.mu.Unlock()
		return fmt.Errorf("%w: work order %s already exists, pass confirm_replace to overwrite", apperrors.ErrInvalidArgument, wo.Ticket.IssueID)
	}
	if ok {
		s.mu.Unlock()
		existing.mu.Lock()
		wo.Notes = append(existing.wo.Notes, wo.Notes...)
		existing.wo = wo
		existing.mu.Unlock()
		s.persist(ctx, wo)
		return nil
	}
	s.insertLocked(wo)
	s.mu.Unlock()
	s.persist(ctx, wo)
	return nil
}

// Get resolves ref as an issue_id first, then as a ticket key.
func (s *WorkOrderStore) Get(ref string) (domain.WorkOrder, error) {
	entry, err := s.lookup(ref)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneWorkOrder(entry.wo), nil
}

// List returns a point-in-time copy of every work order in insertion order.
func (s *WorkOrderStore) List() []domain.WorkOrder {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	entries := make([]*storeEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, s.entries[id])
	}
	s.mu.RUnlock()

	out := make([]domain.WorkOrder, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, cloneWorkOrder(e.wo))
		e.mu.Unlock()
	}
	return out
}

// Start moves Queued to InProgress. Idempotent when already InProgress. The
// tracker is signaled before any local mutation so a failed transition leaves
// the work order untouched.
func (s *WorkOrderStore) Start(ctx context.Context, ref string) (domain.WorkOrder, error) {
	entry, err := s.lookup(ref)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	switch entry.wo.Status {
	case domain.WorkOrderCompleted:
		return domain.WorkOrder{}, fmt.Errorf("%w: cannot start a completed work order", apperrors.ErrInvalidTransition)
	case domain.WorkOrderInProgress:
		return cloneWorkOrder(entry.wo), nil
	}

	if s.tracker != nil {
		if err := s.tracker.Transition(ctx, entry.wo.Ticket.IssueID, s.startCode); err != nil {
			return domain.WorkOrder{}, fmt.Errorf("tracker start transition failed: %w", err)
		}
	}
	entry.wo.Status = domain.WorkOrderInProgress
	s.persist(ctx, entry.wo)
	return cloneWorkOrder(entry.wo), nil
}

// UpdateStep toggles one step. Step completion never completes the work order;
// completion is an explicit act.
func (s *WorkOrderStore) UpdateStep(ctx context.Context, ref string, index int, status domain.StepStatus) (domain.WorkOrder, error) {
	if status != domain.StepPending && status != domain.StepDone {
		return domain.WorkOrder{}, fmt.Errorf("%w: unknown step status %q", apperrors.ErrInvalidArgument, status)
	}
	entry, err := s.lookup(ref)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.wo.Status == domain.WorkOrderCompleted {
		return domain.WorkOrder{}, fmt.Errorf("%w: work order is completed", apperrors.ErrInvalidTransition)
	}
	if index < 0 || index >= len(entry.wo.Steps) {
		return domain.WorkOrder{}, fmt.Errorf("%w: step index %d, work order has %d steps", apperrors.ErrIndexOutOfRange, index, len(entry.wo.Steps))
	}
	entry.wo.Steps[index].Status = status
	s.persist(ctx, entry.wo)
	return cloneWorkOrder(entry.wo), nil
}

// AddNote appends a technician note. Notes are append-only.
func (s *WorkOrderStore) AddNote(ctx context.Context, ref, author, text string) (domain.WorkOrder, error) {
	if strings.TrimSpace(text) == "" {
		return domain.WorkOrder{}, fmt.Errorf("%w: note text must not be empty", apperrors.ErrInvalidArgument)
	}
	entry, err := s.lookup(ref)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.wo.Status == domain.WorkOrderCompleted {
		return domain.WorkOrder{}, fmt.Errorf("%w: work order is completed", apperrors.ErrInvalidTransition)
	}
	entry.wo.Notes = append(entry.wo.Notes, domain.Note{
		Author:    strings.TrimSpace(author),
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
	s.persist(ctx, entry.wo)
	return cloneWorkOrder(entry.wo), nil
}

// Complete moves the work order to its terminal status. The resolution comment
// is posted before the tracker transition; if either outward call fails the
// work order stays untouched.
func (s *WorkOrderStore) Complete(ctx context.Context, ref, resolution string) (domain.WorkOrder, error) {
	entry, err := s.lookup(ref)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.wo.Status == domain.WorkOrderCompleted {
		return domain.WorkOrder{}, fmt.Errorf("%w: work order is already completed", apperrors.ErrInvalidTransition)
	}

	if s.tracker != nil {
		if strings.TrimSpace(resolution) != "" {
			if err := s.tracker.Comment(ctx, entry.wo.Ticket.IssueID, resolution); err != nil {
				return domain.WorkOrder{}, fmt.Errorf("tracker resolution comment failed: %w", err)
			}
		}
		if err := s.tracker.Transition(ctx, entry.wo.Ticket.IssueID, s.completeCode); err != nil {
			return domain.WorkOrder{}, fmt.Errorf("tracker complete transition failed: %w", err)
		}
	}

	if strings.TrimSpace(resolution) != "" {
		entry.wo.Notes = append(entry.wo.Notes, domain.Note{
			Author:    "system",
			Text:      fmt.Sprintf("Completed: %s", resolution),
			Timestamp: time.Now().UTC(),
		})
	}
	entry.wo.Status = domain.WorkOrderCompleted
	s.persist(ctx, entry.wo)
	return cloneWorkOrder(entry.wo), nil
}

// RefreshFromTracker pulls the configured ticket set and upserts a work order
// per ticket. Existing work orders keep their local steps and notes; imported
// tickets with no work order get the baseline procedure. Nothing is deleted.
func (s *WorkOrderStore) RefreshFromTracker(ctx context.Context) (int, []domain.Ticket, error) {
	if s.tracker == nil {
		return 0, nil, fmt.Errorf("%w: tracker client not configured", apperrors.ErrInvalidConfiguration)
	}
	tickets, err := s.tracker.SearchIssues(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("tracker search failed: %w", err)
	}

	for _, ticket := range tickets {
		s.upsertTicket(ctx, ticket)
	}
	s.log.Info("tracker refresh complete", "tickets", len(tickets))
	return len(tickets), tickets, nil
}

func (s *WorkOrderStore) upsertTicket(ctx context.Context, ticket domain.Ticket) {
	s.mu.Lock()
	entry, ok := s.entries[ticket.IssueID]
	if !ok {
		wo := importedWorkOrder(ticket)
		s.insertLocked(wo)
		s.mu.Unlock()
		s.persist(ctx, wo)
		return
	}
	s.mu.Unlock()

	entry.mu.Lock()
	entry.wo.Ticket = ticket
	entry.wo.MissingFields = ticket.MissingFields()
	entry.wo.Score = baseScore(ticket)
	if completedTrackerStatuses[strings.ToLower(ticket.Status)] {
		entry.wo.Status = domain.WorkOrderCompleted
	}
	wo := cloneWorkOrder(entry.wo)
	entry.mu.Unlock()
	s.persist(ctx, wo)
}

func importedWorkOrder(ticket domain.Ticket) domain.WorkOrder {
	steps := make([]domain.Step, 0, len(baselineSteps))
	for i, desc := range baselineSteps {
		steps = append(steps, domain.Step{Index: i, Description: desc, Status: domain.StepPending})
	}
	status := domain.WorkOrderQueued
	if completedTrackerStatuses[strings.ToLower(ticket.Status)] {
		status = domain.WorkOrderCompleted
	}
	return domain.WorkOrder{
		Ticket:        ticket,
		Title:         ticket.Summary,
		Steps:         steps,
		JiraRefs:      []string{ticket.Key},
		Status:        status,
		MissingFields: ticket.MissingFields(),
		Score:         baseScore(ticket),
	}
}

func (s *WorkOrderStore) lookup(ref string) (*storeEntry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: work order reference must not be empty", apperrors.ErrInvalidArgument)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.entries[ref]; ok {
		return entry, nil
	}
	if id, ok := s.byKey[ref]; ok {
		return s.entries[id], nil
	}
	return nil, fmt.Errorf("%w: work order %s", apperrors.ErrNotFound, ref)
}

// insertLocked requires s.mu to be held.
func (s *WorkOrderStore) insertLocked(wo domain.WorkOrder) {
	s.entries[wo.Ticket.IssueID] = &storeEntry{wo: wo}
	if wo.Ticket.Key != "" {
		s.byKey[wo.Ticket.Key] = wo.Ticket.IssueID
	}
	s.order = append(s.order, wo.Ticket.IssueID)
}

// persist journals the work order. Failures are logged, never surfaced; the
// in-memory state is authoritative.
func (s *WorkOrderStore) persist(ctx context.Context, wo domain.WorkOrder) {
	if s.repo == nil {
		return
	}
	rec, err := workOrderToRecord(wo)
	if err != nil {
		s.log.Warn("failed to encode work order for journal", "issue_id", wo.Ticket.IssueID, "error", err)
		return
	}
	if err := s.repo.Upsert(ctx, nil, rec); err != nil {
		s.log.Warn("failed to journal work order", "issue_id", wo.Ticket.IssueID, "error", err)
	}
}

func cloneWorkOrder(wo domain.WorkOrder) domain.WorkOrder {
	out := wo
	out.Steps = append([]domain.Step(nil), wo.Steps...)
	out.Materials = append([]string(nil), wo.Materials...)
	out.Validation = append([]string(nil), wo.Validation...)
	out.JiraRefs = append([]string(nil), wo.JiraRefs...)
	out.Notes = append([]domain.Note(nil), wo.Notes...)
	out.MissingFields = append([]string(nil), wo.MissingFields...)
	return out
}

func workOrderToRecord(wo domain.WorkOrder) (*types.WorkOrderRecord, error) {
	rec := &types.WorkOrderRecord{
		IssueID:           wo.Ticket.IssueID,
		Key:               wo.Ticket.Key,
		Title:             wo.Title,
		Impact:            wo.Impact,
		TicketSummary:     wo.Ticket.Summary,
		TicketDescription: wo.Ticket.Description,
		TicketPriority:    wo.Ticket.Priority,
		TicketStatus:      wo.Ticket.Status,
		TicketAssignee:    wo.Ticket.Assignee,
		TicketUpdatedAt:   wo.Ticket.UpdatedAt,
		Status:            string(wo.Status),
		Score:             wo.Score,
	}
	for _, pair := range []struct {
		dst *datatypes.JSON
		src any
	}{
		{&rec.Steps, wo.Steps},
		{&rec.Materials, wo.Materials},
		{&rec.Validation, wo.Validation},
		{&rec.JiraRefs, wo.JiraRefs},
		{&rec.Notes, wo.Notes},
		{&rec.MissingFields, wo.MissingFields},
	} {
		raw, err := json.Marshal(pair.src)
		if err != nil {
			return nil, err
		}
		*pair.dst = datatypes.JSON(raw)
	}
	return rec, nil
}

func recordToWorkOrder(rec *types.WorkOrderRecord) (domain.WorkOrder, error) {
	wo := domain.WorkOrder{
		Ticket: domain.Ticket{
			IssueID:     rec.IssueID,
			Key:         rec.Key,
			Summary:     rec.TicketSummary,
			Description: rec.TicketDescription,
			Priority:    rec.TicketPriority,
			Status:      rec.TicketStatus,
			Assignee:    rec.TicketAssignee,
			UpdatedAt:   rec.TicketUpdatedAt,
		},
		Title:  rec.Title,
		Impact: rec.Impact,
		Status: domain.WorkOrderStatus(rec.Status),
		Score:  rec.Score,
	}
	for _, pair := range []struct {
		src datatypes.JSON
		dst any
	}{
		{rec.Steps, &wo.Steps},
		{rec.Materials, &wo.Materials},
		{rec.Validation, &wo.Validation},
		{rec.JiraRefs, &wo.JiraRefs},
		{rec.Notes, &wo.Notes},
		{rec.MissingFields, &wo.MissingFields},
	} {
		if len(pair.src) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.src, pair.dst); err != nil {
			return domain.WorkOrder{}, err
		}
	}
	return wo, nil
}
