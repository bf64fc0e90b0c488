package dto

import "deflect.app/relay/internal/model"

// PolicyRequest replaces an account's policy. Omitted thresholds and
// language keep their defaults.
type PolicyRequest struct {
	AutoResponseEnabled bool                `json:"auto_response_enabled"`
	ConfidenceThreshold *float64            `json:"confidence_threshold,omitempty"`
	EscalationThreshold *float64            `json:"escalation_threshold,omitempty"`
	ExcludedCategories  []string            `json:"excluded_categories,omitempty"`
	EscalationKeywords  []string            `json:"escalation_keywords,omitempty"`
	BusinessHours       model.BusinessHours `json:"business_hours"`
	CustomInstructions  *string             `json:"custom_instructions,omitempty"`
	ResponseLanguage    string              `json:"response_language,omitempty"`
}

func (r PolicyRequest) ToModel(accountID int64) *model.DeflectionPolicy {
	p := model.DefaultPolicy(accountID)
	p.AutoResponseEnabled = r.AutoResponseEnabled
	if r.ConfidenceThreshold != nil {
		p.ConfidenceThreshold = *r.ConfidenceThreshold
	}
	if r.EscalationThreshold != nil {
		p.EscalationThreshold = *r.EscalationThreshold
	}
	p.ExcludedCategories = r.ExcludedCategories
	p.EscalationKeywords = r.EscalationKeywords
	p.BusinessHours = r.BusinessHours
	p.CustomInstructions = r.CustomInstructions
	if r.ResponseLanguage != "" {
		p.ResponseLanguage = r.ResponseLanguage
	}
	return p
}
