package services

import (
	"sort"
	"time"

	"github.com/dwoslabs/dwos-backend/internal/domain"
)

// PriorityQueue ranks open work orders for technician attention. It is a pure
// recomputed view: ticket fields can change externally between reads, so
// nothing here is cached or incrementally maintained.
type PriorityQueue struct{}

func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

// Rank scores every non-completed work order and returns entries sorted by
// score descending. Ties go to the older ticket, then to the smaller issue_id
// so the ordering is deterministic across calls.
func (q *PriorityQueue) Rank(orders []domain.WorkOrder, now time.Time) []domain.QueueEntry {
	entries := make([]domain.QueueEntry, 0, len(orders))
	for _, wo := range orders {
		if wo.Status == domain.WorkOrderCompleted {
			continue
		}
		entries = append(entries, q.entry(wo, now))
	}
	sortEntries(entries)
	return entries
}

// Completed returns the terminal work orders as a score-ordered view.
func (q *PriorityQueue) Completed(orders []domain.WorkOrder, now time.Time) []domain.QueueEntry {
	entries := make([]domain.QueueEntry, 0, len(orders))
	for _, wo := range orders {
		if wo.Status != domain.WorkOrderCompleted {
			continue
		}
		entries = append(entries, q.entry(wo, now))
	}
	sortEntries(entries)
	return entries
}

func (q *PriorityQueue) entry(wo domain.WorkOrder, now time.Time) domain.QueueEntry {
	score := baseScore(wo.Ticket)
	score += ageContribution(wo.Ticket.UpdatedAt, now)
	score += statusBoost(wo.Ticket.Status)
	return domain.QueueEntry{
		IssueID: wo.Ticket.IssueID,
		Key:     wo.Ticket.Key,
		Ticket:  wo.Ticket,
		Status:  wo.Status,
		Score:   round3(score),
	}
}

func sortEntries(entries []domain.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		ti, okI := parseTrackerTime(entries[i].Ticket.UpdatedAt)
		tj, okJ := parseTrackerTime(entries[j].Ticket.UpdatedAt)
		if okI && okJ && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return entries[i].IssueID < entries[j].IssueID
	})
}
