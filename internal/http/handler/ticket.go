package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"deflect.app/relay/internal/http/dto"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/service"
)

type TicketHandler struct {
	service     service.TicketService
	traceHeader string
}

func NewTicketHandler(service service.TicketService, traceHeader string) *TicketHandler {
	return &TicketHandler{
		service:     service,
		traceHeader: traceHeader,
	}
}

func (h *TicketHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid ticket request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Ingest(ctx, service.TicketIngestParams{
		AccountID:         req.AccountID,
		Subject:           req.Subject,
		Content:           req.Content,
		CustomerContact:   req.CustomerContact,
		Category:          req.Category,
		Priority:          req.Priority,
		ChannelRef:        req.ChannelRef,
		HandleTimeMinutes: req.HandleTimeMinutes,
		Sentiment:         req.Sentiment,
		TraceID:           traceID(c, h.traceHeader),
	})
	if err != nil {
		if errors.Is(err, model.ErrEmptyContent) || errors.Is(err, service.ErrInvalidPriority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest ticket", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest ticket"})
		return
	}

	c.JSON(http.StatusAccepted, dto.CreateTicketResponse{
		TicketID: result.Ticket.ID,
		Status:   result.Ticket.Status,
		Enqueued: result.Enqueued,
	})
}

func (h *TicketHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	ticketID, ok := int64Param(c, "id")
	if !ok {
		return
	}

	view, err := h.service.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to fetch ticket", "error", err, "ticket_id", ticketID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ticket"})
		return
	}

	c.JSON(http.StatusOK, dto.TicketResponse{Ticket: view.Ticket, Response: view.Response})
}
