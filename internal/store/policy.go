package store

import (
	"context"
	"encoding/json"
	"fmt"

	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/model"
)

type policyStore struct {
	q db.Querier
}

func newPolicyStore(q db.Querier) PolicyStore {
	return &policyStore{q: q}
}

func (s *policyStore) GetByAccount(ctx context.Context, accountID int64) (*model.DeflectionPolicy, error) {
	var (
		p             model.DeflectionPolicy
		businessHours []byte
	)
	err := s.q.QueryRow(ctx, `
		SELECT account_id, auto_response_enabled, confidence_threshold, escalation_threshold,
		       excluded_categories, escalation_keywords, business_hours, custom_instructions,
		       response_language, updated_at
		FROM deflection_policies
		WHERE account_id = $1`, accountID).Scan(
		&p.AccountID, &p.AutoResponseEnabled, &p.ConfidenceThreshold, &p.EscalationThreshold,
		&p.ExcludedCategories, &p.EscalationKeywords, &businessHours, &p.CustomInstructions,
		&p.ResponseLanguage, &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	if len(businessHours) > 0 {
		if err := json.Unmarshal(businessHours, &p.BusinessHours); err != nil {
			return nil, fmt.Errorf("decoding business hours: %w", err)
		}
	}
	return &p, nil
}

func (s *policyStore) Upsert(ctx context.Context, p *model.DeflectionPolicy) error {
	businessHours, err := json.Marshal(p.BusinessHours)
	if err != nil {
		return fmt.Errorf("encoding business hours: %w", err)
	}

	excluded := p.ExcludedCategories
	if excluded == nil {
		excluded = []string{}
	}
	keywords := p.EscalationKeywords
	if keywords == nil {
		keywords = []string{}
	}

	err = s.q.QueryRow(ctx, `
		INSERT INTO deflection_policies (
			account_id, auto_response_enabled, confidence_threshold, escalation_threshold,
			excluded_categories, escalation_keywords, business_hours, custom_instructions,
			response_language, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (account_id) DO UPDATE SET
			auto_response_enabled = EXCLUDED.auto_response_enabled,
			confidence_threshold  = EXCLUDED.confidence_threshold,
			escalation_threshold  = EXCLUDED.escalation_threshold,
			excluded_categories   = EXCLUDED.excluded_categories,
			escalation_keywords   = EXCLUDED.escalation_keywords,
			business_hours        = EXCLUDED.business_hours,
			custom_instructions   = EXCLUDED.custom_instructions,
			response_language     = EXCLUDED.response_language,
			updated_at            = now()
		RETURNING updated_at`,
		p.AccountID, p.AutoResponseEnabled, p.ConfidenceThreshold, p.EscalationThreshold,
		excluded, keywords, businessHours, p.CustomInstructions, p.ResponseLanguage,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting policy: %w", err)
	}
	return nil
}
