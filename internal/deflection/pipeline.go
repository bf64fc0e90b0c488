package deflection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"deflect.app/relay/common/logger"
	"deflect.app/relay/internal/model"
)

// MeterAIResponses is the quota meter charged once per generated response.
const MeterAIResponses = "ai_responses"

const DefaultGenerationTimeout = 30 * time.Second

type QuotaStatus struct {
	Allowed bool
	Used    int64
	Limit   int64
}

// Quota is the account usage meter. Track must be idempotent per key.
type Quota interface {
	CheckLimit(ctx context.Context, accountID int64, meter string) (QuotaStatus, error)
	Track(ctx context.Context, accountID int64, meter string, delta int64, key string) error
}

type PolicySource interface {
	// PolicyFor returns the account's policy, or the default policy when the
	// account has none.
	PolicyFor(ctx context.Context, accountID int64) (*model.DeflectionPolicy, error)
}

type ProcessingResult struct {
	Success       bool                     `json:"success"`
	ShouldRespond bool                     `json:"should_respond"`
	Response      *model.CandidateResponse `json:"response,omitempty"`
	Reason        string                   `json:"reason"`
	UsageTracked  bool                     `json:"usage_tracked"`
	Decision      *Decision                `json:"decision,omitempty"`
}

type PipelineConfig struct {
	GenerationTimeout time.Duration
}

type Pipeline struct {
	cfg       PipelineConfig
	quota     Quota
	policies  PolicySource
	contexts  ContextSource
	generator Generator
	router    *Router
	now       func() time.Time
}

// NewPipeline wires the per-ticket deflection steps. contexts may be nil.
func NewPipeline(cfg PipelineConfig, quota Quota, policies PolicySource, contexts ContextSource, generator Generator, router *Router) *Pipeline {
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	return &Pipeline{
		cfg:       cfg,
		quota:     quota,
		policies:  policies,
		contexts:  contexts,
		generator: generator,
		router:    router,
		now:       time.Now,
	}
}

// Process runs quota, eligibility, generation, usage tracking and routing for
// one ticket, in that order. Expected outcomes, including generation
// failures, are reported in the result. The error return is reserved for
// infrastructure failures the caller should retry.
func (p *Pipeline) Process(ctx context.Context, ticket *model.Ticket) (*ProcessingResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TicketID:  &ticket.ID,
		AccountID: &ticket.AccountID,
		Component: "deflection.pipeline",
	})

	if strings.TrimSpace(ticket.Content) == "" {
		return &ProcessingResult{Success: false, Reason: model.ErrEmptyContent.Error()}, nil
	}

	quota, err := p.quota.CheckLimit(ctx, ticket.AccountID, MeterAIResponses)
	if err != nil {
		return nil, fmt.Errorf("checking quota: %w", err)
	}
	if !quota.Allowed {
		slog.InfoContext(ctx, "quota exhausted, skipping ticket",
			"used", quota.Used,
			"limit", quota.Limit)
		return &ProcessingResult{
			Success: true,
			Reason:  fmt.Sprintf("AI response limit reached (%d/%d)", quota.Used, quota.Limit),
		}, nil
	}

	policy, err := p.policies.PolicyFor(ctx, ticket.AccountID)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}

	eligibility := Evaluate(ticket, policy)
	if !eligibility.Allowed {
		slog.InfoContext(ctx, "ticket not eligible for auto-response", "reason", eligibility.Reason)
		return &ProcessingResult{Success: true, Reason: eligibility.Reason}, nil
	}

	candidate, genErr := p.generate(ctx, ticket, policy)
	if genErr != nil {
		decision := RouteFailure(genErr)
		slog.WarnContext(ctx, "response generation failed", "error", genErr)
		return &ProcessingResult{
			Success:  false,
			Reason:   decision.Reason,
			Decision: decision,
		}, nil
	}

	if err := p.quota.Track(ctx, ticket.AccountID, MeterAIResponses, 1, strconv.FormatInt(ticket.ID, 10)); err != nil {
		return nil, fmt.Errorf("tracking usage: %w", err)
	}

	decision, err := p.router.Route(ctx, ticket, policy, candidate)
	if err != nil {
		return nil, fmt.Errorf("routing response: %w", err)
	}

	slog.InfoContext(ctx, "ticket routed",
		"state", decision.State,
		"confidence", decision.Response.Confidence,
		"delivered", decision.Delivered)

	return &ProcessingResult{
		Success:       true,
		ShouldRespond: decision.State == StateAutoResolved,
		Response:      decision.Response,
		Reason:        decision.Reason,
		UsageTracked:  true,
		Decision:      decision,
	}, nil
}

func (p *Pipeline) generate(ctx context.Context, ticket *model.Ticket, policy *model.DeflectionPolicy) (*model.CandidateResponse, *GenerationError) {
	var sc SupportingContext
	if p.contexts != nil {
		gathered, err := p.contexts.Gather(ctx, ticket)
		if err != nil {
			slog.WarnContext(ctx, "failed to gather supporting context", "error", err)
		} else {
			sc = gathered
		}
	}

	humanAvailable, err := policy.WithinBusinessHours(p.now())
	if err != nil {
		slog.WarnContext(ctx, "invalid business hours, assuming open", "error", err)
		humanAvailable = true
	}

	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
	defer cancel()

	candidate, err := p.generator.Generate(genCtx, NewGenerationRequest(ticket, policy, sc, humanAvailable))
	if err != nil {
		return nil, asGenerationError(err, p.cfg.GenerationTimeout)
	}
	if err := ValidateCandidate(candidate); err != nil {
		return nil, asGenerationError(err, p.cfg.GenerationTimeout)
	}
	return candidate, nil
}

func asGenerationError(err error, timeout time.Duration) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Msg: fmt.Sprintf("generation timed out after %s", timeout), Err: err}
	}
	return &GenerationError{Err: err}
}
