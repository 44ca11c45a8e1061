package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	"github.com/dwoslabs/dwos-backend/internal/retrieval"
	"github.com/dwoslabs/dwos-backend/internal/services"
)

type RAGHandler struct {
	agent  *retrieval.Agent
	ingest *services.IngestService
	store  *services.WorkOrderStore
}

func NewRAGHandler(agent *retrieval.Agent, ingest *services.IngestService, store *services.WorkOrderStore) *RAGHandler {
	return &RAGHandler{agent: agent, ingest: ingest, store: store}
}

type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

func (h *RAGHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := h.agent.Answer(c.Request.Context(), req.Question, req.TopK)
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{
		"question":   req.Question,
		"plan":       res.Plan,
		"answer":     res.Answer,
		"references": res.References,
	})
}

type ingestManualRequest struct {
	Documents []struct {
		SourceName string   `json:"source_name"`
		Pages      []string `json:"pages"`
	} `json:"documents"`
}

func (h *RAGHandler) IngestManual(c *gin.Context) {
	var req ingestManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	total := 0
	for _, doc := range req.Documents {
		n, err := h.ingest.IngestDocument(c.Request.Context(), doc.SourceName, doc.Pages)
		if err != nil {
			respondMapped(c, err)
			return
		}
		total += n
	}
	RespondOK(c, gin.H{
		"documents": len(req.Documents),
		"chunks":    total,
		"sources":   h.ingest.Sources(),
	})
}

// IngestTickets indexes the tickets currently known to the work-order store.
func (h *RAGHandler) IngestTickets(c *gin.Context) {
	orders := h.store.List()
	tickets := make([]domain.Ticket, 0, len(orders))
	for _, wo := range orders {
		tickets = append(tickets, wo.Ticket)
	}
	n, err := h.ingest.IngestTickets(c.Request.Context(), tickets)
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"tickets": len(tickets), "chunks": n})
}

func (h *RAGHandler) Refresh(c *gin.Context) {
	n, err := h.ingest.Rebuild(c.Request.Context())
	if err != nil {
		respondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"chunks": n, "sources": h.ingest.Sources()})
}
