package model

import "time"

type (
	InsightPriority          string
	ImpactLevel              string
	ImplementationDifficulty string
)

const (
	InsightPriorityHigh   InsightPriority = "high"
	InsightPriorityMedium InsightPriority = "medium"
	InsightPriorityLow    InsightPriority = "low"
)

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

const (
	DifficultyEasy   ImplementationDifficulty = "easy"
	DifficultyMedium ImplementationDifficulty = "medium"
	DifficultyHard   ImplementationDifficulty = "hard"
)

// DeflectionInsight summarises one qualifying cluster. Read-only once built.
type DeflectionInsight struct {
	ID                       int64                    `json:"id"`
	AccountID                int64                    `json:"account_id"`
	RunID                    int64                    `json:"run_id"`
	ClusterID                int                      `json:"cluster_id"`
	Category                 string                   `json:"category"`
	Keywords                 []string                 `json:"keywords"`
	TicketCount              int                      `json:"ticket_count"`
	AvgHandleTimeMinutes     float64                  `json:"avg_handle_time_minutes"`
	AnnualCost               float64                  `json:"annual_cost"`
	MonthlyCost              float64                  `json:"monthly_cost"`
	ExampleQuestions         []string                 `json:"example_questions"`
	RecommendedAction        string                   `json:"recommended_action"`
	Confidence               float64                  `json:"confidence"`
	Priority                 InsightPriority          `json:"priority"`
	DeflectionPotential      int                      `json:"deflection_potential"`
	CustomerImpact           ImpactLevel              `json:"customer_impact"`
	ImplementationDifficulty ImplementationDifficulty `json:"implementation_difficulty"`
	CreatedAt                time.Time                `json:"created_at"`
}
