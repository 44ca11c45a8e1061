package domain

import "time"

type WorkOrderStatus string

const (
	WorkOrderQueued     WorkOrderStatus = "queued"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderCompleted  WorkOrderStatus = "completed"
)

type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepDone    StepStatus = "done"
)

// Step order is fixed at creation and never reindexed.
type Step struct {
	Index       int        `json:"index"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
}

// Note entries are append-only; never edited or removed.
type Note struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkOrder is the structured remediation procedure derived from a ticket.
// Owned exclusively by the work-order store; completion is a terminal status,
// not a removal.
type WorkOrder struct {
	Ticket        Ticket          `json:"ticket"`
	Title         string          `json:"title"`
	Impact        string          `json:"impact"`
	Steps         []Step          `json:"steps"`
	Materials     []string        `json:"materials"`
	Validation    []string        `json:"validation"`
	JiraRefs      []string        `json:"jira_refs"`
	Notes         []Note          `json:"notes"`
	Status        WorkOrderStatus `json:"status"`
	MissingFields []string        `json:"missing_fields,omitempty"`
	Score         float64         `json:"score"`
}

// WorkOrderDraft is the shape the generation model is asked to emit.
type WorkOrderDraft struct {
	Title      string   `json:"title"`
	Impact     string   `json:"impact"`
	Steps      []string `json:"steps"`
	Materials  []string `json:"materials"`
	Validation []string `json:"validation"`
	JiraRefs   []string `json:"jira_refs"`
}

// QueueEntry is a derived, recomputable ranking view over one ticket and its
// work order. Never cached beyond a single queue read.
type QueueEntry struct {
	IssueID string          `json:"issue_id"`
	Key     string          `json:"key"`
	Ticket  Ticket          `json:"ticket"`
	Status  WorkOrderStatus `json:"status"`
	Score   float64         `json:"score"`
}
