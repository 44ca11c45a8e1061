package domain

import (
	"fmt"
	"strings"
)

// Ticket is a read-only view of an issue owned by the external tracker.
type Ticket struct {
	IssueID     string `json:"issue_id"`
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Assignee    string `json:"assignee"`
	UpdatedAt   string `json:"updated_at"`
}

// MissingFields returns the required-but-absent fields for work-order
// generation, in a fixed order. Missing fields are reported, never defaulted.
func (t Ticket) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(t.Summary) == "" {
		missing = append(missing, "summary")
	}
	if strings.TrimSpace(t.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(t.Priority) == "" {
		missing = append(missing, "priority")
	}
	return missing
}

// ToText renders the ticket as indexable prose, one field per line.
func (t Ticket) ToText() string {
	parts := []string{
		fmt.Sprintf("Ticket: %s", t.Key),
		fmt.Sprintf("Summary: %s", t.Summary),
	}
	if t.Status != "" {
		parts = append(parts, fmt.Sprintf("Status: %s", t.Status))
	}
	if t.Priority != "" {
		parts = append(parts, fmt.Sprintf("Priority: %s", t.Priority))
	}
	if t.Assignee != "" {
		parts = append(parts, fmt.Sprintf("Assignee: %s", t.Assignee))
	}
	if t.UpdatedAt != "" {
		parts = append(parts, fmt.Sprintf("Updated: %s", t.UpdatedAt))
	}
	if t.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", t.Description))
	}
	return strings.Join(parts, "\n")
}
