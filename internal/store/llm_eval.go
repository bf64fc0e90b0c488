package store

import (
	"context"
	"fmt"

	"deflect.app/relay/common/id"
	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/model"
)

type llmEvalStore struct {
	q db.Querier
}

func newLLMEvalStore(q db.Querier) LLMEvalStore {
	return &llmEvalStore{q: q}
}

func (s *llmEvalStore) Create(ctx context.Context, eval *model.LLMEval) (*model.LLMEval, error) {
	if eval.ID == 0 {
		eval.ID = id.New()
	}

	err := s.q.QueryRow(ctx, `
		INSERT INTO llm_evals (
			id, account_id, ticket_id, stage, input_text, output_json, model,
			prompt_version, latency_ms, prompt_tokens, completion_tokens
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		eval.ID, eval.AccountID, eval.TicketID, eval.Stage, eval.InputText, eval.OutputJSON,
		eval.Model, eval.PromptVersion, eval.LatencyMs, eval.PromptTokens, eval.CompletionTokens,
	).Scan(&eval.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting llm eval: %w", err)
	}
	return eval, nil
}

func (s *llmEvalStore) ListByTicket(ctx context.Context, ticketID int64) ([]model.LLMEval, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, account_id, ticket_id, stage, input_text, output_json, model,
		       prompt_version, latency_ms, prompt_tokens, completion_tokens, created_at
		FROM llm_evals
		WHERE ticket_id = $1
		ORDER BY created_at`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("listing llm evals: %w", err)
	}
	defer rows.Close()

	evals := make([]model.LLMEval, 0)
	for rows.Next() {
		var e model.LLMEval
		if err := rows.Scan(
			&e.ID, &e.AccountID, &e.TicketID, &e.Stage, &e.InputText, &e.OutputJSON, &e.Model,
			&e.PromptVersion, &e.LatencyMs, &e.PromptTokens, &e.CompletionTokens, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning llm eval: %w", err)
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}
