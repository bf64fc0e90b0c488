package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"deflect.app/relay/common/id"
	"deflect.app/relay/common/llm"
	"deflect.app/relay/common/metrics"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/store"
)

const (
	faqStage         = "faq"
	faqPromptVersion = "v1"
	faqMaxAttempts   = 3
)

type FAQOutput struct {
	Title     string   `json:"title" jsonschema_description:"Help-center article title phrased as the customer would search for it"`
	Body      string   `json:"body" jsonschema_description:"Article body in markdown with numbered steps where applicable"`
	Questions []string `json:"questions" jsonschema_description:"Alternate phrasings of the question this article answers"`
}

var faqSchema = llm.GenerateSchema[FAQOutput]()

// FAQWriter drafts a knowledge-base article for a recurring ticket pattern.
type FAQWriter struct {
	llm   llm.Client
	faqs  store.FAQStore
	evals store.LLMEvalStore
}

func NewFAQWriter(client llm.Client, faqs store.FAQStore, evals store.LLMEvalStore) *FAQWriter {
	return &FAQWriter{llm: client, faqs: faqs, evals: evals}
}

func (w *FAQWriter) Draft(ctx context.Context, insight model.DeflectionInsight) (*model.FAQDraft, error) {
	if len(insight.ExampleQuestions) == 0 {
		return nil, fmt.Errorf("insight %d has no example questions", insight.ID)
	}

	prompt := buildFAQPrompt(insight)

	var out FAQOutput
	var resp *llm.Response
	var err error
	start := time.Now()

	// Drafting runs offline, so transient provider errors are retried with backoff.
	for attempt := 0; attempt < faqMaxAttempts; attempt++ {
		resp, err = w.llm.Chat(ctx, llm.Request{
			SystemPrompt: faqSystemPrompt,
			UserPrompt:   prompt,
			SchemaName:   "faq_draft",
			Schema:       faqSchema,
			Temperature:  llm.Temp(0.3),
		}, &out)
		if err == nil {
			break
		}
		if !llm.IsRetryable(ctx, err) {
			return nil, fmt.Errorf("drafting faq: %w", err)
		}
		slog.WarnContext(ctx, "faq draft retry", "insight_id", insight.ID, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(1<<attempt) * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("drafting faq after %d attempts: %w", faqMaxAttempts, err)
	}

	latency := time.Since(start)
	metrics.GenerationDuration.WithLabelValues(faqStage).Observe(latency.Seconds())
	metrics.GenerationTokens.WithLabelValues(faqStage).Add(float64(resp.TotalTokens()))
	w.logEval(ctx, insight.AccountID, prompt, out, latency, resp)

	if strings.TrimSpace(out.Title) == "" || strings.TrimSpace(out.Body) == "" {
		return nil, fmt.Errorf("faq draft for insight %d came back empty", insight.ID)
	}

	draft := &model.FAQDraft{
		ID:        id.New(),
		AccountID: insight.AccountID,
		InsightID: insight.ID,
		Title:     strings.TrimSpace(out.Title),
		Body:      strings.TrimSpace(out.Body),
		Questions: out.Questions,
		CreatedAt: time.Now(),
	}
	if err := w.faqs.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("storing faq draft: %w", err)
	}

	slog.InfoContext(ctx, "faq drafted",
		"insight_id", insight.ID,
		"faq_id", draft.ID,
		"latency_ms", latency.Milliseconds())

	return draft, nil
}

func (w *FAQWriter) logEval(ctx context.Context, accountID int64, prompt string, out FAQOutput, latency time.Duration, resp *llm.Response) {
	if w.evals == nil {
		return
	}

	outputJSON, err := json.Marshal(out)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal faq output for eval", "error", err)
		return
	}

	eval := &model.LLMEval{
		ID:            id.New(),
		AccountID:     accountID,
		Stage:         faqStage,
		InputText:     prompt,
		OutputJSON:    outputJSON,
		Model:         w.llm.Model(),
		PromptVersion: stringPtr(faqPromptVersion),
		LatencyMs:     intPtr(int(latency.Milliseconds())),
	}
	if resp != nil {
		eval.PromptTokens = intPtr(resp.PromptTokens)
		eval.CompletionTokens = intPtr(resp.CompletionTokens)
	}

	if _, err := w.evals.Create(ctx, eval); err != nil {
		slog.ErrorContext(ctx, "failed to log eval", "error", err)
	}
}

func buildFAQPrompt(insight model.DeflectionInsight) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Category\n%s\n\n", insight.Category)
	if len(insight.Keywords) > 0 {
		fmt.Fprintf(&sb, "## Recurring terms\n%s\n\n", strings.Join(insight.Keywords, ", "))
	}
	fmt.Fprintf(&sb, "## Volume\n%d tickets in the analysis window\n\n", insight.TicketCount)

	sb.WriteString("## Customer questions\n")
	for _, q := range insight.ExampleQuestions {
		fmt.Fprintf(&sb, "- %s\n", q)
	}

	return sb.String()
}

const faqSystemPrompt = `You write help-center articles that let customers solve common problems without contacting support.

You are given real customer questions that share one underlying problem. Write one article that answers that
problem. Use only what can be inferred from the questions; where a product-specific detail is unknown, write a
clearly marked placeholder like [SETTINGS PATH] for the support team to fill in.

Keep the title under 70 characters. Keep the body under 300 words.`
