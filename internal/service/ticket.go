package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"deflect.app/relay/common/id"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/queue"
	"deflect.app/relay/internal/store"
)

type TicketIngestParams struct {
	AccountID         int64                `json:"account_id"`
	Subject           *string              `json:"subject,omitempty"`
	Content           string               `json:"content"`
	CustomerContact   string               `json:"customer_contact"`
	Category          *string              `json:"category,omitempty"`
	Priority          model.TicketPriority `json:"priority,omitempty"`
	ChannelRef        *string              `json:"channel_ref,omitempty"`
	HandleTimeMinutes *float64             `json:"handle_time_minutes,omitempty"`
	Sentiment         *model.Sentiment     `json:"sentiment,omitempty"`

	TraceID *string `json:"trace_id,omitempty"`
}

type TicketIngestResult struct {
	Ticket   *model.Ticket
	Enqueued bool
}

// TicketView is a ticket with the latest candidate response, if any.
type TicketView struct {
	Ticket   *model.Ticket
	Response *model.CandidateResponse
}

type TicketService interface {
	Ingest(ctx context.Context, params TicketIngestParams) (*TicketIngestResult, error)
	Get(ctx context.Context, ticketID int64) (*TicketView, error)
}

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrInvalidPriority = errors.New("invalid priority")
)

type ticketService struct {
	tickets   store.TicketStore
	responses store.ResponseStore
	queue     queue.Producer
	logger    *slog.Logger
}

func NewTicketService(tickets store.TicketStore, responses store.ResponseStore, queue queue.Producer, logger *slog.Logger) TicketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ticketService{
		tickets:   tickets,
		responses: responses,
		queue:     queue,
		logger:    logger,
	}
}

func (s *ticketService) Ingest(ctx context.Context, params TicketIngestParams) (*TicketIngestResult, error) {
	if params.AccountID == 0 {
		return nil, fmt.Errorf("account_id is required")
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, model.ErrEmptyContent
	}

	priority := params.Priority
	switch priority {
	case "":
		priority = model.TicketPriorityNormal
	case model.TicketPriorityLow, model.TicketPriorityNormal, model.TicketPriorityHigh, model.TicketPriorityUrgent:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	now := time.Now()
	ticket := &model.Ticket{
		ID:                id.New(),
		AccountID:         params.AccountID,
		Subject:           params.Subject,
		Content:           params.Content,
		CustomerContact:   params.CustomerContact,
		Category:          params.Category,
		Priority:          priority,
		Status:            model.TicketStatusOpen,
		ChannelRef:        params.ChannelRef,
		HandleTimeMinutes: params.HandleTimeMinutes,
		Sentiment:         params.Sentiment,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("creating ticket: %w", err)
	}

	if err := s.queue.Enqueue(ctx, queue.Task{
		TaskType:  queue.TaskTypeTicketDeflection,
		AccountID: ticket.AccountID,
		TicketID:  &ticket.ID,
		TraceID:   params.TraceID,
		Attempt:   1,
	}); err != nil {
		return nil, fmt.Errorf("enqueueing ticket: %w", err)
	}

	s.logger.InfoContext(ctx, "ticket ingested", "ticket_id", ticket.ID, "account_id", ticket.AccountID)

	return &TicketIngestResult{Ticket: ticket, Enqueued: true}, nil
}

func (s *ticketService) Get(ctx context.Context, ticketID int64) (*TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("fetching ticket: %w", err)
	}

	resp, err := s.responses.LatestByTicket(ctx, ticketID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("fetching latest response: %w", err)
	}

	return &TicketView{Ticket: ticket, Response: resp}, nil
}
