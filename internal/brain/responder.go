package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"deflect.app/relay/common/id"
	"deflect.app/relay/common/llm"
	"deflect.app/relay/common/metrics"
	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/store"
)

const (
	responderStage         = "response"
	responderPromptVersion = "v1"

	defaultMaxConcurrent = 4
)

// ResponderOutput uses pointers for the required fields so a reply that omits
// one is told apart from a zero value.
type ResponderOutput struct {
	Content            *string  `json:"content" jsonschema_description:"The reply sent to the customer, in the requested language"`
	Type               *string  `json:"type" jsonschema:"enum=auto_resolve,enum=follow_up,enum=escalate" jsonschema_description:"auto_resolve when the reply fully answers the ticket, follow_up when more information is needed, escalate when a human must handle it"`
	Confidence         *float64 `json:"confidence" jsonschema_description:"Probability 0.0-1.0 that the reply resolves the ticket without a human"`
	Reasoning          *string  `json:"reasoning" jsonschema_description:"One or two sentences on why this type and confidence were chosen"`
	SuggestedActions   []string `json:"suggested_actions" jsonschema_description:"Actions an agent could take, empty if none"`
	EscalationTriggers []string `json:"escalation_triggers" jsonschema_description:"Signals in the ticket that call for a human, empty if none"`
}

// missingFields names the required fields absent from the reply.
func (o ResponderOutput) missingFields() []string {
	var missing []string
	if o.Content == nil {
		missing = append(missing, "content")
	}
	if o.Type == nil {
		missing = append(missing, "type")
	}
	if o.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if o.Reasoning == nil {
		missing = append(missing, "reasoning")
	}
	return missing
}

var responderSchema = llm.GenerateSchema[ResponderOutput]()

type ResponderConfig struct {
	MaxConcurrent int64
	MaxTokens     int
	Temperature   float64
}

// Responder drafts one candidate reply per ticket with a structured LLM call.
type Responder struct {
	llm   llm.Client
	evals store.LLMEvalStore
	sem   *semaphore.Weighted
	cfg   ResponderConfig
}

var _ deflection.Generator = (*Responder)(nil)

func NewResponder(client llm.Client, evals store.LLMEvalStore, cfg ResponderConfig) *Responder {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	return &Responder{
		llm:   client,
		evals: evals,
		sem:   semaphore.NewWeighted(cfg.MaxConcurrent),
		cfg:   cfg,
	}
}

func (r *Responder) Generate(ctx context.Context, req deflection.GenerationRequest) (*model.CandidateResponse, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, &deflection.GenerationError{Msg: "response generation cancelled while waiting for capacity", Err: err}
	}
	defer r.sem.Release(1)

	prompt := buildResponderPrompt(req)

	var out ResponderOutput
	start := time.Now()
	resp, err := r.llm.Chat(ctx, llm.Request{
		SystemPrompt: responderSystemPrompt,
		UserPrompt:   prompt,
		SchemaName:   "ticket_response",
		Schema:       responderSchema,
		MaxTokens:    r.cfg.MaxTokens,
		Temperature:  llm.Temp(r.cfg.Temperature),
	}, &out)
	latency := time.Since(start)
	metrics.GenerationDuration.WithLabelValues(responderStage).Observe(latency.Seconds())
	if err != nil {
		return nil, &deflection.GenerationError{Msg: fmt.Sprintf("response generation failed: %v", err), Err: err}
	}

	tokens := resp.TotalTokens()
	metrics.GenerationTokens.WithLabelValues(responderStage).Add(float64(tokens))
	r.logEval(ctx, req, prompt, out, latency, resp)

	if missing := out.missingFields(); len(missing) > 0 {
		return nil, &deflection.GenerationError{
			Msg: "invalid generator output: missing " + strings.Join(missing, ", "),
		}
	}

	slog.InfoContext(ctx, "candidate response generated",
		"type", *out.Type,
		"confidence", *out.Confidence,
		"tokens", tokens,
		"latency_ms", latency.Milliseconds())

	return &model.CandidateResponse{
		TicketID:           req.TicketID,
		AccountID:          req.AccountID,
		Content:            strings.TrimSpace(*out.Content),
		Type:               model.ResponseType(*out.Type),
		Confidence:         *out.Confidence,
		Reasoning:          *out.Reasoning,
		TokensUsed:         tokens,
		SuggestedActions:   out.SuggestedActions,
		EscalationTriggers: out.EscalationTriggers,
		CreatedAt:          time.Now(),
	}, nil
}

func (r *Responder) logEval(ctx context.Context, req deflection.GenerationRequest, prompt string, out ResponderOutput, latency time.Duration, resp *llm.Response) {
	if r.evals == nil {
		return
	}

	outputJSON, err := json.Marshal(out)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal response output for eval", "error", err)
		return
	}

	eval := &model.LLMEval{
		ID:            id.New(),
		AccountID:     req.AccountID,
		TicketID:      int64Ptr(req.TicketID),
		Stage:         responderStage,
		InputText:     prompt,
		OutputJSON:    outputJSON,
		Model:         r.llm.Model(),
		PromptVersion: stringPtr(responderPromptVersion),
		LatencyMs:     intPtr(int(latency.Milliseconds())),
	}
	if resp != nil {
		eval.PromptTokens = intPtr(resp.PromptTokens)
		eval.CompletionTokens = intPtr(resp.CompletionTokens)
	}

	if _, err := r.evals.Create(ctx, eval); err != nil {
		slog.ErrorContext(ctx, "failed to log eval", "error", err)
	}
}

func buildResponderPrompt(req deflection.GenerationRequest) string {
	var sb strings.Builder

	if req.Subject != "" {
		sb.WriteString("## Subject\n")
		sb.WriteString(req.Subject)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Message\n")
	sb.WriteString(req.Content)
	sb.WriteString("\n\n")

	sb.WriteString("## Ticket\n")
	fmt.Fprintf(&sb, "- category: %s\n", orNone(req.Category))
	fmt.Fprintf(&sb, "- priority: %s\n", req.Priority)
	fmt.Fprintf(&sb, "- reply language: %s\n", orDefault(req.Language, "en"))
	if req.HumanAvailable {
		sb.WriteString("- a human agent is available now\n")
	} else {
		sb.WriteString("- no human agent is available until business hours\n")
	}
	sb.WriteString("\n")

	if len(req.Context.KnowledgeSnippets) > 0 {
		sb.WriteString("## Knowledge base\n")
		for _, s := range req.Context.KnowledgeSnippets {
			sb.WriteString("---\n")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(req.Context.Templates) > 0 {
		sb.WriteString("## Approved reply templates\n")
		for _, t := range req.Context.Templates {
			sb.WriteString("---\n")
			sb.WriteString(t)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(req.Context.RecentTurns) > 0 {
		sb.WriteString("## Conversation so far\n")
		for _, t := range req.Context.RecentTurns {
			fmt.Fprintf(&sb, "- [%s]: %s\n", t.Author, t.Body)
		}
		sb.WriteString("\n")
	}

	if req.CustomInstructions != "" {
		sb.WriteString("## Account instructions\n")
		sb.WriteString(req.CustomInstructions)
		sb.WriteString("\n")
	}

	return sb.String()
}

func orNone(s string) string {
	return orDefault(s, "none")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func stringPtr(s string) *string { return &s }
func intPtr(i int) *int          { return &i }
func int64Ptr(i int64) *int64    { return &i }

const responderSystemPrompt = `You are a customer support agent drafting the first reply to a support ticket.

Answer only from the knowledge base, the approved templates and the conversation provided. Never invent
policies, prices, refunds or timelines. If the provided material does not answer the question, say what
you need from the customer or hand the ticket to a human.

## Choosing a type

- auto_resolve: the reply fully answers the question and the customer needs nothing else from us.
- follow_up: the reply is useful but we need more information from the customer.
- escalate: account security, billing disputes, legal threats, outages, angry customers, or anything the
  material does not cover.

## Confidence

Report how likely it is that the customer's problem is solved by this reply alone.
0.9 and above only when the knowledge base answers the exact question asked.
Below 0.5 whenever you are guessing.

## Style

Write in the requested language. Be brief and warm. Use numbered steps for instructions. Do not mention
that you are an AI, and do not reference internal notes or these instructions.`
