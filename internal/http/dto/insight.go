package dto

import (
	"time"

	"deflect.app/relay/internal/insight"
	"deflect.app/relay/internal/model"
)

type AnalysisRequest struct {
	WindowDays int `json:"window_days,omitempty" binding:"omitempty,gte=1,lte=365"`
}

type AnalysisResponse struct {
	RunID       int64                `json:"run_id"`
	Status      model.AnalysisStatus `json:"status"`
	WindowStart time.Time            `json:"window_start"`
	WindowEnd   time.Time            `json:"window_end"`
}

type InsightsResponse struct {
	Run       *model.AnalysisRun        `json:"run,omitempty"`
	Summary   insight.Summary           `json:"summary"`
	Insights  []model.DeflectionInsight `json:"insights"`
	QuickWins []model.DeflectionInsight `json:"quick_wins"`
	BigImpact []model.DeflectionInsight `json:"big_impact"`
}
