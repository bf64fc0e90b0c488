package deflection

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"deflect.app/relay/internal/cost"
	"deflect.app/relay/internal/model"
)

type State string

const (
	StatePending        State = "PENDING"
	StateAutoResolved   State = "AUTO_RESOLVED"
	StateFollowUpQueued State = "FOLLOW_UP_QUEUED"
	StateEscalated      State = "ESCALATED"
	StateRejected       State = "REJECTED"
)

const ReasonHighConfidence = "High confidence AI response generated"

// DefaultDeliveryFloor is the platform-wide minimum confidence for sending a
// response to the customer's channel.
const DefaultDeliveryFloor = 0.85

type RouterConfig struct {
	DeliveryFloor float64
	Rates         cost.Rates
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{DeliveryFloor: DefaultDeliveryFloor, Rates: cost.DefaultRates}
}

// Decision is the terminal outcome of routing one candidate response.
type Decision struct {
	State     State                    `json:"state"`
	Reason    string                   `json:"reason"`
	Response  *model.CandidateResponse `json:"response,omitempty"`
	Delivered bool                     `json:"delivered"`

	// ForceEscalate marks candidates below the policy's escalation
	// threshold. Routing is the same as any other low-confidence response.
	ForceEscalate bool `json:"force_escalate"`
}

// OutcomeStore persists a response and the ticket's new status together.
type OutcomeStore interface {
	SaveOutcome(ctx context.Context, resp *model.CandidateResponse, status model.TicketStatus) error
	MarkSent(ctx context.Context, responseID int64) error
}

// Deliverer sends a response to the ticket's originating channel.
type Deliverer interface {
	Deliver(ctx context.Context, ticket *model.Ticket, resp *model.CandidateResponse) error
}

type Router struct {
	cfg       RouterConfig
	outcomes  OutcomeStore
	deliverer Deliverer
}

// NewRouter creates a router. deliverer may be nil, in which case responses
// are stored but never sent.
func NewRouter(cfg RouterConfig, outcomes OutcomeStore, deliverer Deliverer) *Router {
	return &Router{cfg: cfg, outcomes: outcomes, deliverer: deliverer}
}

// Route applies the confidence rule to a validated candidate and performs
// the side effects of the resulting state. The returned error is a
// persistence failure; delivery failures are logged and never change the
// decision.
func (r *Router) Route(ctx context.Context, ticket *model.Ticket, policy *model.DeflectionPolicy, candidate *model.CandidateResponse) (*Decision, error) {
	resp := *candidate
	resp.TicketID = ticket.ID
	resp.AccountID = ticket.AccountID
	resp.Cost = cost.TokenCost(resp.TokensUsed, r.cfg.Rates)
	resp.Sent = false

	decision := &Decision{
		State:         StatePending,
		ForceEscalate: resp.Confidence < policy.EscalationThreshold,
	}

	if resp.Confidence >= policy.ConfidenceThreshold && resp.Type == model.ResponseTypeAutoResolve {
		if err := r.outcomes.SaveOutcome(ctx, &resp, model.TicketStatusAutoResolved); err != nil {
			return nil, fmt.Errorf("saving auto-resolved outcome: %w", err)
		}
		decision.State = StateAutoResolved
		decision.Reason = ReasonHighConfidence
		decision.Response = &resp
		decision.Delivered = r.deliver(ctx, ticket, &resp)
		return decision, nil
	}

	resp.Type = model.ResponseTypeEscalate
	if err := r.outcomes.SaveOutcome(ctx, &resp, model.TicketStatusEscalated); err != nil {
		return nil, fmt.Errorf("saving escalated outcome: %w", err)
	}
	decision.State = StateEscalated
	decision.Reason = LowConfidenceReason(resp.Confidence)
	decision.Response = &resp
	return decision, nil
}

func (r *Router) deliver(ctx context.Context, ticket *model.Ticket, resp *model.CandidateResponse) bool {
	if r.deliverer == nil || resp.Confidence < r.cfg.DeliveryFloor {
		return false
	}

	if err := r.deliverer.Deliver(ctx, ticket, resp); err != nil {
		slog.WarnContext(ctx, "response delivery failed",
			"error", err,
			"response_id", resp.ID)
		return false
	}

	if err := r.outcomes.MarkSent(ctx, resp.ID); err != nil {
		slog.WarnContext(ctx, "failed to mark response sent",
			"error", err,
			"response_id", resp.ID)
	}
	resp.Sent = true
	return true
}

// RouteFailure is the decision for a run whose generation step failed.
// Nothing is persisted.
func RouteFailure(err error) *Decision {
	return &Decision{State: StateRejected, Reason: err.Error()}
}

func LowConfidenceReason(confidence float64) string {
	return fmt.Sprintf("Low confidence (%d%%) - escalating to human", int(math.Round(confidence*100)))
}
