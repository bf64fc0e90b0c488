package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"deflect.app/relay/internal/http/dto"
	"deflect.app/relay/internal/service"
)

// AccountHandler serves per-account policy and analysis endpoints.
type AccountHandler struct {
	policies service.PolicyService
	analysis service.AnalysisService
}

func NewAccountHandler(policies service.PolicyService, analysis service.AnalysisService) *AccountHandler {
	return &AccountHandler{
		policies: policies,
		analysis: analysis,
	}
}

func (h *AccountHandler) GetPolicy(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, ok := int64Param(c, "id")
	if !ok {
		return
	}

	policy, err := h.policies.Get(ctx, accountID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load policy", "error", err, "account_id", accountID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load policy"})
		return
	}

	c.JSON(http.StatusOK, policy)
}

func (h *AccountHandler) PutPolicy(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req dto.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.policies.Update(ctx, req.ToModel(accountID))
	if err != nil {
		if errors.Is(err, service.ErrInvalidPolicy) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to save policy", "error", err, "account_id", accountID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save policy"})
		return
	}

	c.JSON(http.StatusOK, policy)
}

func (h *AccountHandler) RequestAnalysis(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req dto.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.analysis.Request(ctx, accountID, req.WindowDays)
	if err != nil {
		slog.ErrorContext(ctx, "failed to request analysis", "error", err, "account_id", accountID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request analysis"})
		return
	}

	c.JSON(http.StatusAccepted, dto.AnalysisResponse{
		RunID:       run.ID,
		Status:      run.Status,
		WindowStart: run.WindowStart,
		WindowEnd:   run.WindowEnd,
	})
}

func (h *AccountHandler) Insights(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, ok := int64Param(c, "id")
	if !ok {
		return
	}

	report, err := h.analysis.Report(ctx, accountID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load insights", "error", err, "account_id", accountID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load insights"})
		return
	}

	c.JSON(http.StatusOK, dto.InsightsResponse{
		Run:       report.Run,
		Summary:   report.Summary,
		Insights:  report.Insights,
		QuickWins: report.QuickWins,
		BigImpact: report.BigImpact,
	})
}
