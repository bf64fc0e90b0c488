package model

import "time"

type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusRunning   AnalysisStatus = "running"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

type AnalysisRun struct {
	ID                    int64          `json:"id"`
	AccountID             int64          `json:"account_id"`
	WindowStart           time.Time      `json:"window_start"`
	WindowEnd             time.Time      `json:"window_end"`
	Status                AnalysisStatus `json:"status"`
	TicketCount           int            `json:"ticket_count"`
	ClusterCount          int            `json:"cluster_count"`
	InsightCount          int            `json:"insight_count"`
	TotalPotentialSavings float64        `json:"total_potential_savings"`
	Error                 *string        `json:"error,omitempty"`
	StartedAt             time.Time      `json:"started_at"`
	FinishedAt            *time.Time     `json:"finished_at,omitempty"`
	LeaseUntil            *time.Time     `json:"lease_until,omitempty"` // set while a worker holds the run
}

// Finished reports whether the run reached a terminal status.
func (r *AnalysisRun) Finished() bool {
	return r.Status == AnalysisStatusCompleted || r.Status == AnalysisStatusFailed
}

// FAQDraft is a generated knowledge-base article for a quick-win insight.
type FAQDraft struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	InsightID int64     `json:"insight_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Questions []string  `json:"questions"`
	CreatedAt time.Time `json:"created_at"`
}

// LLMEval records one generator call for offline quality review.
type LLMEval struct {
	ID               int64     `json:"id"`
	AccountID        int64     `json:"account_id"`
	TicketID         *int64    `json:"ticket_id,omitempty"`
	Stage            string    `json:"stage"`
	InputText        string    `json:"input_text"`
	OutputJSON       []byte    `json:"output_json"`
	Model            string    `json:"model"`
	PromptVersion    *string   `json:"prompt_version,omitempty"`
	LatencyMs        *int      `json:"latency_ms,omitempty"`
	PromptTokens     *int      `json:"prompt_tokens,omitempty"`
	CompletionTokens *int      `json:"completion_tokens,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
