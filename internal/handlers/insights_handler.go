package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"plata/internal/services"
)

// InsightsHandler serves the read-only aggregation endpoints.
type InsightsHandler struct {
	insightsService services.InsightsServicer
}

// NewInsightsHandler creates a new InsightsHandler.
func NewInsightsHandler(insightsService services.InsightsServicer) *InsightsHandler {
	return &InsightsHandler{insightsService: insightsService}
}

// GetNetWorth returns the user's net worth breakdown.
// @Summary     Net worth
// @Description Assets plus active account balances minus pending debt, with a per-category breakdown
// @Tags        insights
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.NetWorthSummary "Net worth"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /insights/net-worth [get]
func (h *InsightsHandler) GetNetWorth(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.insightsService.NetWorth(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetScore returns the user's financial score.
// @Summary     Financial score
// @Description Advisory score over the last quarter's activity, recomputed on every call
// @Tags        insights
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.FinancialScore "Score"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /insights/score [get]
func (h *InsightsHandler) GetScore(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	score, err := h.insightsService.Score(userID, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, score)
}
