package model

import (
	"fmt"
	"time"
)

type BusinessHours struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"` // "09:00", local to Timezone
	End      string `json:"end"`   // "17:00"
	Timezone string `json:"timezone"`
}

// DeflectionPolicy is the per-account configuration of automated responses.
//
// ConfidenceThreshold >= EscalationThreshold is the expected configuration but
// is not enforced; an inverted pair still routes through the low-confidence
// branch.
type DeflectionPolicy struct {
	AccountID           int64         `json:"account_id"`
	AutoResponseEnabled bool          `json:"auto_response_enabled"`
	ConfidenceThreshold float64       `json:"confidence_threshold"`
	EscalationThreshold float64       `json:"escalation_threshold"`
	ExcludedCategories  []string      `json:"excluded_categories"`
	EscalationKeywords  []string      `json:"escalation_keywords"`
	BusinessHours       BusinessHours `json:"business_hours"`
	CustomInstructions  *string       `json:"custom_instructions,omitempty"`
	ResponseLanguage    string        `json:"response_language"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// DefaultPolicy is used for accounts that never saved a policy. Auto-response
// stays off until an account opts in.
func DefaultPolicy(accountID int64) *DeflectionPolicy {
	return &DeflectionPolicy{
		AccountID:           accountID,
		AutoResponseEnabled: false,
		ConfidenceThreshold: 0.8,
		EscalationThreshold: 0.3,
		ResponseLanguage:    "en",
	}
}

// WithinBusinessHours reports whether t falls inside the configured window.
// A disabled window counts as always open.
func (p *DeflectionPolicy) WithinBusinessHours(t time.Time) (bool, error) {
	bh := p.BusinessHours
	if !bh.Enabled {
		return true, nil
	}

	loc := time.UTC
	if bh.Timezone != "" {
		l, err := time.LoadLocation(bh.Timezone)
		if err != nil {
			return false, fmt.Errorf("loading timezone %q: %w", bh.Timezone, err)
		}
		loc = l
	}

	start, err := minuteOfDay(bh.Start)
	if err != nil {
		return false, err
	}
	end, err := minuteOfDay(bh.End)
	if err != nil {
		return false, err
	}

	local := t.In(loc)
	now := local.Hour()*60 + local.Minute()
	if start <= end {
		return now >= start && now < end, nil
	}
	// Overnight window, e.g. 22:00-06:00.
	return now >= start || now < end, nil
}

func minuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("parsing business hours %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Validate checks ranges and the business-hours window.
func (p *DeflectionPolicy) Validate() error {
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold %v outside [0,1]", p.ConfidenceThreshold)
	}
	if p.EscalationThreshold < 0 || p.EscalationThreshold > 1 {
		return fmt.Errorf("escalation_threshold %v outside [0,1]", p.EscalationThreshold)
	}
	if !p.BusinessHours.Enabled {
		return nil
	}
	if _, err := minuteOfDay(p.BusinessHours.Start); err != nil {
		return err
	}
	if _, err := minuteOfDay(p.BusinessHours.End); err != nil {
		return err
	}
	if p.BusinessHours.Timezone != "" {
		if _, err := time.LoadLocation(p.BusinessHours.Timezone); err != nil {
			return fmt.Errorf("loading timezone %q: %w", p.BusinessHours.Timezone, err)
		}
	}
	return nil
}
