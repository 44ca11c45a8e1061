package types

import (
	"time"

	"gorm.io/datatypes"
)

// WorkOrderRecord is the persisted journal row for one work order. The
// in-memory store stays authoritative; rows exist so state survives restarts.
type WorkOrderRecord struct {
	IssueID           string         `gorm:"column:issue_id;primaryKey" json:"issue_id"`
	Key               string         `gorm:"column:key;index" json:"key"`
	Title             string         `gorm:"column:title" json:"title"`
	Impact            string         `gorm:"column:impact" json:"impact"`
	TicketSummary     string         `gorm:"column:ticket_summary" json:"ticket_summary"`
	TicketDescription string         `gorm:"column:ticket_description" json:"ticket_description"`
	TicketPriority    string         `gorm:"column:ticket_priority" json:"ticket_priority"`
	TicketStatus      string         `gorm:"column:ticket_status" json:"ticket_status"`
	TicketAssignee    string         `gorm:"column:ticket_assignee" json:"ticket_assignee"`
	TicketUpdatedAt   string         `gorm:"column:ticket_updated_at" json:"ticket_updated_at"`
	Status            string         `gorm:"column:status;index" json:"status"`
	Score             float64        `gorm:"column:score" json:"score"`
	Steps             datatypes.JSON `gorm:"column:steps" json:"steps"`
	Materials         datatypes.JSON `gorm:"column:materials" json:"materials"`
	Validation        datatypes.JSON `gorm:"column:validation" json:"validation"`
	JiraRefs          datatypes.JSON `gorm:"column:jira_refs" json:"jira_refs"`
	Notes             datatypes.JSON `gorm:"column:notes" json:"notes"`
	MissingFields     datatypes.JSON `gorm:"column:missing_fields" json:"missing_fields"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (WorkOrderRecord) TableName() string { return "work_order" }
