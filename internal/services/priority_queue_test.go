package services

import (
	"testing"
	"time"

	"github.com/dwoslabs/dwos-backend/internal/domain"
)

func wo(issueID, key, priority, status, updated string) domain.WorkOrder {
	return domain.WorkOrder{
		Ticket: domain.Ticket{
			IssueID:     issueID,
			Key:         key,
			Summary:     "summary",
			Description: "description",
			Priority:    priority,
			Status:      status,
			UpdatedAt:   updated,
		},
		Status: domain.WorkOrderQueued,
	}
}

func TestRankCriticalBeatsOldLow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	orders := []domain.WorkOrder{
		wo("10001", "DWOS-1", "Low", "Open", "2026-01-01T00:00:00Z"),
		wo("10002", "DWOS-2", "Critical", "Open", "2026-07-31T00:00:00Z"),
	}
	entries := NewPriorityQueue().Rank(orders, now)
	if len(entries) != 2 {
		t.Fatalf("entries: want=2 got=%d", len(entries))
	}
	if entries[0].Key != "DWOS-2" {
		t.Fatalf("critical ticket must rank first, got %s", entries[0].Key)
	}
}

func TestRankExcludesCompleted(t *testing.T) {
	now := time.Now()
	done := wo("10001", "DWOS-1", "High", "Done", "2026-07-01T00:00:00Z")
	done.Status = domain.WorkOrderCompleted
	orders := []domain.WorkOrder{
		done,
		wo("10002", "DWOS-2", "Low", "Open", "2026-07-01T00:00:00Z"),
	}
	q := NewPriorityQueue()
	entries := q.Rank(orders, now)
	if len(entries) != 1 || entries[0].Key != "DWOS-2" {
		t.Fatalf("active queue should only contain DWOS-2, got %+v", entries)
	}
	completed := q.Completed(orders, now)
	if len(completed) != 1 || completed[0].Key != "DWOS-1" {
		t.Fatalf("completed view should only contain DWOS-1, got %+v", completed)
	}
}

func TestRankTiesOlderFirstThenIssueID(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	orders := []domain.WorkOrder{
		wo("10003", "DWOS-3", "High", "Open", "2026-07-30T00:00:00Z"),
		wo("10001", "DWOS-1", "High", "Open", "2026-07-29T00:00:00Z"),
		wo("10002", "DWOS-2", "High", "Open", "2026-07-29T00:00:00Z"),
	}
	entries := NewPriorityQueue().Rank(orders, now)
	if entries[len(entries)-1].Key != "DWOS-3" {
		t.Fatalf("newest tied ticket must sort last, got %+v", entries)
	}
	// Equal timestamps fall back to issue_id.
	var first, second string
	for _, e := range entries[:2] {
		if first == "" {
			first = e.IssueID
		} else {
			second = e.IssueID
		}
	}
	if first != "10001" || second != "10002" {
		t.Fatalf("issue_id tie-break broken: %s then %s", first, second)
	}
}

func TestRankWaitingStatusBoost(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	orders := []domain.WorkOrder{
		wo("10001", "DWOS-1", "Medium", "Open", "2026-07-31T00:00:00Z"),
		wo("10002", "DWOS-2", "Medium", "Waiting Parts", "2026-07-31T00:00:00Z"),
	}
	entries := NewPriorityQueue().Rank(orders, now)
	if entries[0].Key != "DWOS-2" {
		t.Fatalf("waiting status must boost visibility, got %+v", entries)
	}
}

func TestRankAgeContributionCapped(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ancient := wo("10001", "DWOS-1", "Medium", "Open", "2020-01-01T00:00:00Z")
	recent := wo("10002", "DWOS-2", "Medium", "Open", "2026-07-31T00:00:00Z")
	entries := NewPriorityQueue().Rank([]domain.WorkOrder{ancient, recent}, now)
	var oldScore, newScore float64
	for _, e := range entries {
		if e.Key == "DWOS-1" {
			oldScore = e.Score
		} else {
			newScore = e.Score
		}
	}
	if oldScore-newScore > ageContributionCap+1e-9 {
		t.Fatalf("age gap exceeds cap: old=%v new=%v", oldScore, newScore)
	}
}

func TestBaseScoreKeywordsAndMissingFields(t *testing.T) {
	full := domain.Ticket{
		Summary:     "GPU thermal alert",
		Description: "cooling loop degraded",
		Priority:    "High",
	}
	got := baseScore(full)
	// high 0.8 + gpu 0.3 + thermal 0.2 + cool 0.25
	if got != 1.55 {
		t.Fatalf("baseScore: want=1.55 got=%v", got)
	}

	missing := domain.Ticket{Summary: "GPU thermal alert", Priority: "High"}
	if baseScore(missing) >= got {
		t.Fatalf("missing description must lower the score")
	}
}

func TestBaseScoreNeverNegative(t *testing.T) {
	if s := baseScore(domain.Ticket{}); s != 0 {
		t.Fatalf("empty ticket score: want=0 got=%v", s)
	}
}
