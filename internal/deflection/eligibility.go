package deflection

import (
	"fmt"
	"slices"
	"strings"

	"deflect.app/relay/internal/model"
)

const (
	ReasonAutoResponseDisabled = "Auto-response disabled"
	ReasonEscalationKeyword    = "Contains escalation keyword"
	ReasonHighPriority         = "High priority ticket - human escalation required"
	ReasonEligible             = "All checks passed"
)

// Eligibility is the outcome of the policy preflight for one ticket.
type Eligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Evaluate runs the preflight checks in order and stops at the first one
// that denies. It has no side effects.
func Evaluate(ticket *model.Ticket, policy *model.DeflectionPolicy) Eligibility {
	if !policy.AutoResponseEnabled {
		return deny(ReasonAutoResponseDisabled)
	}

	if category := ticket.CategoryValue(); ticket.Category != nil && slices.Contains(policy.ExcludedCategories, category) {
		return deny(fmt.Sprintf("Category %q is excluded", category))
	}

	if containsKeyword(ticket.Content, policy.EscalationKeywords) {
		return deny(ReasonEscalationKeyword)
	}

	if ticket.Priority == model.TicketPriorityUrgent {
		return deny(ReasonHighPriority)
	}

	return Eligibility{Allowed: true, Reason: ReasonEligible}
}

func deny(reason string) Eligibility {
	return Eligibility{Allowed: false, Reason: reason}
}

func containsKeyword(content string, keywords []string) bool {
	lower := strings.ToLower(content)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
