package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/store"
)

var ErrInvalidPolicy = errors.New("invalid policy")

type PolicyService interface {
	Get(ctx context.Context, accountID int64) (*model.DeflectionPolicy, error)
	Update(ctx context.Context, policy *model.DeflectionPolicy) (*model.DeflectionPolicy, error)
}

// PolicyResolver serves account policies to the pipeline, falling back to
// the default policy for accounts that never saved one.
type PolicyResolver struct {
	policies store.PolicyStore
}

var _ deflection.PolicySource = (*PolicyResolver)(nil)

func NewPolicyResolver(policies store.PolicyStore) *PolicyResolver {
	return &PolicyResolver{policies: policies}
}

func (r *PolicyResolver) PolicyFor(ctx context.Context, accountID int64) (*model.DeflectionPolicy, error) {
	policy, err := r.policies.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.DebugContext(ctx, "no saved policy, using default", "account_id", accountID)
			return model.DefaultPolicy(accountID), nil
		}
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	return policy, nil
}

type policyService struct {
	resolver *PolicyResolver
	policies store.PolicyStore
}

func NewPolicyService(policies store.PolicyStore) PolicyService {
	return &policyService{
		resolver: NewPolicyResolver(policies),
		policies: policies,
	}
}

func (s *policyService) Get(ctx context.Context, accountID int64) (*model.DeflectionPolicy, error) {
	return s.resolver.PolicyFor(ctx, accountID)
}

func (s *policyService) Update(ctx context.Context, policy *model.DeflectionPolicy) (*model.DeflectionPolicy, error) {
	if policy.AccountID == 0 {
		return nil, fmt.Errorf("%w: account_id is required", ErrInvalidPolicy)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if policy.ResponseLanguage == "" {
		policy.ResponseLanguage = "en"
	}
	policy.UpdatedAt = time.Now()

	if err := s.policies.Upsert(ctx, policy); err != nil {
		return nil, fmt.Errorf("saving policy: %w", err)
	}

	slog.InfoContext(ctx, "policy updated",
		"account_id", policy.AccountID,
		"auto_response_enabled", policy.AutoResponseEnabled)
	return policy, nil
}
