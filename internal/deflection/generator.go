package deflection

import (
	"context"
	"fmt"
	"math"
	"strings"

	"deflect.app/relay/internal/model"
)

// SupportingContext is account-scoped material handed to the generator.
// Every block is optional.
type SupportingContext struct {
	KnowledgeSnippets []string                 `json:"knowledge_snippets,omitempty"`
	Templates         []string                 `json:"templates,omitempty"`
	RecentTurns       []model.ConversationTurn `json:"recent_turns,omitempty"`
}

func (c SupportingContext) Empty() bool {
	return len(c.KnowledgeSnippets) == 0 && len(c.Templates) == 0 && len(c.RecentTurns) == 0
}

type GenerationRequest struct {
	TicketID  int64
	AccountID int64

	Content  string
	Subject  string
	Category string
	Priority model.TicketPriority

	CustomInstructions string
	Language           string
	HumanAvailable     bool

	Context SupportingContext
}

// NewGenerationRequest builds a request from a ticket and its account policy.
func NewGenerationRequest(ticket *model.Ticket, policy *model.DeflectionPolicy, sc SupportingContext, humanAvailable bool) GenerationRequest {
	req := GenerationRequest{
		TicketID:       ticket.ID,
		AccountID:      ticket.AccountID,
		Content:        ticket.Content,
		Category:       ticket.CategoryValue(),
		Priority:       ticket.Priority,
		Language:       policy.ResponseLanguage,
		HumanAvailable: humanAvailable,
		Context:        sc,
	}
	if ticket.Subject != nil {
		req.Subject = *ticket.Subject
	}
	if policy.CustomInstructions != nil {
		req.CustomInstructions = *policy.CustomInstructions
	}
	return req
}

// Generator produces exactly one candidate response for a ticket. Live
// implementations call an LLM; tests use stubs.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*model.CandidateResponse, error)
}

// ContextSource gathers supporting context for a ticket.
type ContextSource interface {
	Gather(ctx context.Context, ticket *model.Ticket) (SupportingContext, error)
}

// GenerationError is any failure of the generation step: upstream errors,
// timeouts, rate limits and malformed output. Msg is surfaced verbatim as
// the pipeline reason.
type GenerationError struct {
	Msg string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "generation failed"
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func invalidOutput(format string, args ...any) *GenerationError {
	return &GenerationError{Msg: "invalid generator output: " + fmt.Sprintf(format, args...)}
}

// ValidateCandidate rejects output that does not satisfy the response
// contract instead of defaulting missing fields.
func ValidateCandidate(c *model.CandidateResponse) error {
	if c == nil {
		return invalidOutput("no response")
	}
	if strings.TrimSpace(c.Content) == "" {
		return invalidOutput("empty content")
	}
	if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
		return invalidOutput("confidence %v outside [0,1]", c.Confidence)
	}
	if !c.Type.Valid() {
		return invalidOutput("unknown response type %q", c.Type)
	}
	if c.TokensUsed < 0 {
		return invalidOutput("negative token usage %d", c.TokensUsed)
	}
	return nil
}
