package store

import (
	"context"
	"fmt"
	"time"

	"deflect.app/relay/common/id"
	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/model"
)

type responseStore struct {
	q db.Querier
}

func newResponseStore(q db.Querier) ResponseStore {
	return &responseStore{q: q}
}

// Create assigns an id when the response has none.
func (s *responseStore) Create(ctx context.Context, r *model.CandidateResponse) error {
	if r.ID == 0 {
		r.ID = id.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO candidate_responses (
			id, ticket_id, account_id, content, type, confidence, reasoning,
			tokens_used, cost, suggested_actions, escalation_triggers, sent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.TicketID, r.AccountID, r.Content, string(r.Type), r.Confidence, r.Reasoning,
		r.TokensUsed, r.Cost, nonNil(r.SuggestedActions), nonNil(r.EscalationTriggers), r.Sent, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting response: %w", err)
	}
	return nil
}

func (s *responseStore) MarkSent(ctx context.Context, responseID int64) error {
	tag, err := s.q.Exec(ctx, `UPDATE candidate_responses SET sent = true WHERE id = $1`, responseID)
	if err != nil {
		return fmt.Errorf("marking response sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *responseStore) LatestByTicket(ctx context.Context, ticketID int64) (*model.CandidateResponse, error) {
	var (
		r     model.CandidateResponse
		rtype string
	)
	err := s.q.QueryRow(ctx, `
		SELECT id, ticket_id, account_id, content, type, confidence, reasoning,
		       tokens_used, cost, suggested_actions, escalation_triggers, sent, created_at
		FROM candidate_responses
		WHERE ticket_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, ticketID).Scan(
		&r.ID, &r.TicketID, &r.AccountID, &r.Content, &rtype, &r.Confidence, &r.Reasoning,
		&r.TokensUsed, &r.Cost, &r.SuggestedActions, &r.EscalationTriggers, &r.Sent, &r.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	r.Type = model.ResponseType(rtype)
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
