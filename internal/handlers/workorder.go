package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	"github.com/dwoslabs/dwos-backend/internal/services"
)

type WorkOrderHandler struct {
	generator *services.WorkOrderGenerator
	store     *services.WorkOrderStore
	queue     *services.PriorityQueue
}

func NewWorkOrderHandler(generator *services.WorkOrderGenerator, store *services.WorkOrderStore, queue *services.PriorityQueue) *WorkOrderHandler {
	return &WorkOrderHandler{generator: generator, store: store, queue: queue}
}

type generateRequest struct {
	IssueID        string `json:"issue_id"`
	Key            string `json:"key"`
	Summary        string `json:"summary"`
	Description    string `json:"description"`
	Priority       string `json:"priority"`
	Status         string `json:"status"`
	Assignee       string `json:"assignee"`
	Updated        string `json:"updated"`
	OperatorNotes  string `json:"operator_notes"`
	TopK           int    `json:"top_k"`
	ConfirmReplace bool   `json:"confirm_replace"`
}

func (h *WorkOrderHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	ticket := domain.Ticket{
		IssueID:     req.IssueID,
		Key:         req.Key,
		Summary:     req.Summary,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		Assignee:    req.Assignee,
		UpdatedAt:   req.Updated,
	}
	if ticket.IssueID == "" {
		ticket.IssueID = ticket.Key
	}
	res, err := h.generator.Generate(c.Request.Context(), ticket, req.OperatorNotes, req.TopK, req.ConfirmReplace)
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, res)
}

func (h *WorkOrderHandler) Refresh(c *gin.Context) {
	count, tickets, err := h.store.RefreshFromTracker(c.Request.Context())
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"tickets": count, "imported": tickets})
}

func (h *WorkOrderHandler) Queue(c *gin.Context) {
	entries := h.queue.Rank(h.store.List(), time.Now().UTC())
	RespondOK(c, gin.H{"queue": entries})
}

func (h *WorkOrderHandler) Completed(c *gin.Context) {
	entries := h.queue.Completed(h.store.List(), time.Now().UTC())
	RespondOK(c, gin.H{"completed": entries})
}

func (h *WorkOrderHandler) HighestPriority(c *gin.Context) {
	entries := h.queue.Rank(h.store.List(), time.Now().UTC())
	if len(entries) == 0 {
		RespondOK(c, gin.H{"entry": nil})
		return
	}
	wo, err := h.store.Get(entries[0].IssueID)
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"entry": entries[0], "work_order": wo})
}

func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, wo)
}

func (h *WorkOrderHandler) Start(c *gin.Context) {
	wo, err := h.store.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, wo)
}

type stepRequest struct {
	Status string `json:"status"`
}

func (h *WorkOrderHandler) UpdateStep(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	wo, err := h.store.UpdateStep(c.Request.Context(), c.Param("id"), index, domain.StepStatus(req.Status))
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, wo)
}

type noteRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

func (h *WorkOrderHandler) AddNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	wo, err := h.store.AddNote(c.Request.Context(), c.Param("id"), req.Author, req.Text)
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, wo)
}

type completeRequest struct {
	Resolution string `json:"resolution"`
}

func (h *WorkOrderHandler) Complete(c *gin.Context) {
	var req completeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}
	wo, err := h.store.Complete(c.Request.Context(), c.Param("id"), req.Resolution)
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, wo)
}
