package store

import (
	"context"
	"errors"
	"time"

	"deflect.app/relay/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// TicketStore defines the contract for ticket data access
type TicketStore interface {
	GetByID(ctx context.Context, id int64) (*model.Ticket, error)
	Create(ctx context.Context, ticket *model.Ticket) error
	UpdateStatus(ctx context.Context, id int64, status model.TicketStatus) error
	SetEmbedding(ctx context.Context, id int64, embedding []float64) error
	// ListForAnalysis returns the account's tickets created in [since, until)
	// ordered by creation time, oldest first.
	ListForAnalysis(ctx context.Context, accountID int64, since, until time.Time) ([]model.Ticket, error)
}

// PolicyStore defines the contract for per-account deflection policies
type PolicyStore interface {
	GetByAccount(ctx context.Context, accountID int64) (*model.DeflectionPolicy, error)
	Upsert(ctx context.Context, policy *model.DeflectionPolicy) error
}

// ResponseStore defines the contract for candidate response data access
type ResponseStore interface {
	Create(ctx context.Context, resp *model.CandidateResponse) error
	MarkSent(ctx context.Context, id int64) error
	LatestByTicket(ctx context.Context, ticketID int64) (*model.CandidateResponse, error)
}

// InsightStore defines the contract for deflection insight data access
type InsightStore interface {
	ReplaceForAccount(ctx context.Context, accountID int64, insights []model.DeflectionInsight) error
	ListByAccount(ctx context.Context, accountID int64) ([]model.DeflectionInsight, error)
}

// AnalysisRunStore defines the contract for pattern analysis run records
type AnalysisRunStore interface {
	Create(ctx context.Context, run *model.AnalysisRun) error
	GetByID(ctx context.Context, id int64) (*model.AnalysisRun, error)
	// Claim moves a pending run, or a running one whose lease has expired, to
	// running under a fresh lease. It reports false when another worker holds it.
	Claim(ctx context.Context, id int64, lease time.Duration) (*model.AnalysisRun, bool, error)
	// Renew extends the lease of a running run.
	Renew(ctx context.Context, id int64, lease time.Duration) error
	Complete(ctx context.Context, run *model.AnalysisRun) error
	Fail(ctx context.Context, id int64, errMsg string) error
	LatestByAccount(ctx context.Context, accountID int64) (*model.AnalysisRun, error)
}

// FAQStore defines the contract for generated knowledge-base drafts
type FAQStore interface {
	Create(ctx context.Context, draft *model.FAQDraft) error
	ListByAccount(ctx context.Context, accountID int64) ([]model.FAQDraft, error)
}

// LLMEvalStore defines the contract for LLM call records
type LLMEvalStore interface {
	Create(ctx context.Context, eval *model.LLMEval) (*model.LLMEval, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]model.LLMEval, error)
}

// TemplateStore defines the contract for account response templates
type TemplateStore interface {
	ListByCategory(ctx context.Context, accountID int64, category string, limit int) ([]string, error)
}

// MessageStore defines the contract for a ticket's conversation history
type MessageStore interface {
	ListRecent(ctx context.Context, ticketID int64, limit int) ([]model.ConversationTurn, error)
}
