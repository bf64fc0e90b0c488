package store

import (
	"context"
	"fmt"
	"slices"

	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/model"
)

type templateStore struct {
	q db.Querier
}

func newTemplateStore(q db.Querier) TemplateStore {
	return &templateStore{q: q}
}

// ListByCategory returns template bodies for the category first, then the
// account's general templates.
func (s *templateStore) ListByCategory(ctx context.Context, accountID int64, category string, limit int) ([]string, error) {
	rows, err := s.q.Query(ctx, `
		SELECT body
		FROM response_templates
		WHERE account_id = $1 AND (category = $2 OR category IS NULL)
		ORDER BY (category = $2) DESC NULLS LAST, updated_at DESC
		LIMIT $3`, accountID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		bodies = append(bodies, body)
	}
	return bodies, rows.Err()
}

type messageStore struct {
	q db.Querier
}

func newMessageStore(q db.Querier) MessageStore {
	return &messageStore{q: q}
}

// ListRecent returns up to limit turns, oldest first.
func (s *messageStore) ListRecent(ctx context.Context, ticketID int64, limit int) ([]model.ConversationTurn, error) {
	rows, err := s.q.Query(ctx, `
		SELECT author, body, created_at
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, ticketID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing ticket messages: %w", err)
	}
	defer rows.Close()

	var turns []model.ConversationTurn
	for rows.Next() {
		var t model.ConversationTurn
		if err := rows.Scan(&t.Author, &t.Body, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ticket message: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(turns)
	return turns, nil
}
