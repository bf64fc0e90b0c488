package model

import (
	"errors"
	"strings"
	"time"
)

type (
	TicketPriority string
	TicketStatus   string
	Sentiment      string
)

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	// TicketPriorityUrgent is the sentinel that always requires a human.
	TicketPriorityUrgent TicketPriority = "priority"
)

const (
	TicketStatusOpen         TicketStatus = "open"
	TicketStatusAutoResolved TicketStatus = "auto_resolved"
	TicketStatusEscalated    TicketStatus = "escalated"
)

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

var ErrEmptyContent = errors.New("ticket content is empty")

// DefaultHandleTimeMinutes is assumed for tickets without a recorded handle time.
const DefaultHandleTimeMinutes = 15.0

type Ticket struct {
	ID              int64          `json:"id"`
	AccountID       int64          `json:"account_id"`
	Subject         *string        `json:"subject,omitempty"`
	Content         string         `json:"content"`
	CustomerContact string         `json:"customer_contact"`
	Category        *string        `json:"category,omitempty"`
	Priority        TicketPriority `json:"priority"`
	Status          TicketStatus   `json:"status"`
	ChannelRef      *string        `json:"channel_ref,omitempty"`

	// Embedding is set by the ingest source or backfilled during analysis.
	// All embeddings in one clustering run share a single dimensionality.
	Embedding []float64 `json:"-"`

	HandleTimeMinutes *float64   `json:"handle_time_minutes,omitempty"`
	Sentiment         *Sentiment `json:"sentiment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryValue returns the category or "" when absent.
func (t *Ticket) CategoryValue() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

// Text is the subject and body joined, used for embedding and keyword mining.
func (t *Ticket) Text() string {
	if t.Subject == nil || strings.TrimSpace(*t.Subject) == "" {
		return t.Content
	}
	return *t.Subject + "\n\n" + t.Content
}

// HandleTime returns the recorded handle time or the default.
func (t *Ticket) HandleTime() float64 {
	if t.HandleTimeMinutes == nil {
		return DefaultHandleTimeMinutes
	}
	return *t.HandleTimeMinutes
}

func (t *Ticket) IsNegative() bool {
	return t.Sentiment != nil && *t.Sentiment == SentimentNegative
}

// ConversationTurn is one message on the ticket's originating channel.
type ConversationTurn struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
