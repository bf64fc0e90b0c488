package dto

import "deflect.app/relay/internal/model"

type CreateTicketRequest struct {
	AccountID         int64                `json:"account_id" binding:"required"`
	Subject           *string              `json:"subject,omitempty"`
	Content           string               `json:"content" binding:"required"`
	CustomerContact   string               `json:"customer_contact"`
	Category          *string              `json:"category,omitempty"`
	Priority          model.TicketPriority `json:"priority,omitempty"`
	ChannelRef        *string              `json:"channel_ref,omitempty"`
	HandleTimeMinutes *float64             `json:"handle_time_minutes,omitempty" binding:"omitempty,gte=0"`
	Sentiment         *model.Sentiment     `json:"sentiment,omitempty"`
}

type CreateTicketResponse struct {
	TicketID int64              `json:"ticket_id"`
	Status   model.TicketStatus `json:"status"`
	Enqueued bool               `json:"enqueued"`
}

type TicketResponse struct {
	Ticket   *model.Ticket            `json:"ticket"`
	Response *model.CandidateResponse `json:"response,omitempty"`
}
