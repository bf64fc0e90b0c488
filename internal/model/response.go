package model

import "time"

type ResponseType string

const (
	ResponseTypeAutoResolve ResponseType = "auto_resolve"
	ResponseTypeFollowUp    ResponseType = "follow_up"
	ResponseTypeEscalate    ResponseType = "escalate"
)

func (t ResponseType) Valid() bool {
	switch t {
	case ResponseTypeAutoResolve, ResponseTypeFollowUp, ResponseTypeEscalate:
		return true
	}
	return false
}

// CandidateResponse is produced once per ticket per pipeline run. Only Sent
// changes after creation.
type CandidateResponse struct {
	ID                 int64        `json:"id"`
	TicketID           int64        `json:"ticket_id"`
	AccountID          int64        `json:"account_id"`
	Content            string       `json:"content"`
	Type               ResponseType `json:"type"`
	Confidence         float64      `json:"confidence"`
	Reasoning          string       `json:"reasoning"`
	TokensUsed         int          `json:"tokens_used"`
	Cost               float64      `json:"cost"`
	SuggestedActions   []string     `json:"suggested_actions,omitempty"`
	EscalationTriggers []string     `json:"escalation_triggers,omitempty"`
	Sent               bool         `json:"sent"`
	CreatedAt          time.Time    `json:"created_at"`
}
