package store

import (
	"context"
	"fmt"
	"time"

	"deflect.app/relay/common/id"
	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/model"
)

type faqStore struct {
	q db.Querier
}

func newFAQStore(q db.Querier) FAQStore {
	return &faqStore{q: q}
}

func (s *faqStore) Create(ctx context.Context, d *model.FAQDraft) error {
	if d.ID == 0 {
		d.ID = id.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO faq_drafts (id, account_id, insight_id, title, body, questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.AccountID, d.InsightID, d.Title, d.Body, nonNil(d.Questions), d.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting faq draft: %w", err)
	}
	return nil
}

func (s *faqStore) ListByAccount(ctx context.Context, accountID int64) ([]model.FAQDraft, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, account_id, insight_id, title, body, questions, created_at
		FROM faq_drafts
		WHERE account_id = $1
		ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing faq drafts: %w", err)
	}
	defer rows.Close()

	drafts := make([]model.FAQDraft, 0)
	for rows.Next() {
		var d model.FAQDraft
		if err := rows.Scan(&d.ID, &d.AccountID, &d.InsightID, &d.Title, &d.Body, &d.Questions, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning faq draft: %w", err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}
