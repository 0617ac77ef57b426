package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "plata/internal/errors"
	"plata/internal/services"
)

// RuleHandler handles rule allocation requests.
type RuleHandler struct {
	ruleService  services.RuleServicer
	auditService services.AuditServicer
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleService services.RuleServicer, auditService services.AuditServicer) *RuleHandler {
	return &RuleHandler{ruleService: ruleService, auditService: auditService}
}

// CreateRuleRequest represents the request payload for adding a rule.
type CreateRuleRequest struct {
	Name       string  `json:"name" binding:"required,min=1,max=100"`
	Percentage float64 `json:"percentage" binding:"required,gt=0,lte=100"`
}

// UpdateRuleRequest represents the request payload for editing a rule.
type UpdateRuleRequest struct {
	Name       string   `json:"name" binding:"omitempty,min=1,max=100"`
	Percentage *float64 `json:"percentage" binding:"omitempty,gt=0,lte=100"`
}

// CreateRule adds a rule to a board.
// @Summary     Create rule
// @Description Add an allocation rule to a board (at most 4 per board, sum capped at 100%)
// @Tags        rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Board ID"
// @Param       request body CreateRuleRequest true "Rule details"
// @Success     201 {object} models.Rule "Rule created"
// @Failure     400 {object} ErrorResponse "Percentage exceeds headroom"
// @Failure     409 {object} ErrorResponse "Rule limit reached"
// @Router      /boards/{id}/rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	boardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, validity, err := h.ruleService.CreateRule(userID, boardID, req.Name, req.Percentage)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "rule", rule.ID, c.ClientIP(), map[string]interface{}{
		"board_id":   boardID,
		"percentage": req.Percentage,
	})

	c.JSON(http.StatusCreated, gin.H{"rule": rule, "validity": validity})
}

// GetRules lists a board's rules with the board's validity state.
// @Summary     List rules
// @Description Get a board's rules along with the rule-set validity
// @Tags        rules
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Board ID"
// @Success     200 {object} map[string]interface{} "Rules and validity"
// @Failure     404 {object} ErrorResponse "Board not found"
// @Router      /boards/{id}/rules [get]
func (h *RuleHandler) GetRules(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	boardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rules, validity, err := h.ruleService.GetBoardRules(userID, boardID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules, "validity": validity})
}

// UpdateRule edits a rule's name or percentage.
// @Summary     Update rule
// @Description Edit a rule; raising the percentage is capped by the board's remaining headroom
// @Tags        rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Rule ID"
// @Param       request body UpdateRuleRequest true "Fields to update"
// @Success     200 {object} models.Rule "Rule updated"
// @Failure     400 {object} ErrorResponse "Percentage exceeds headroom"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Router      /rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, validity, err := h.ruleService.UpdateRule(userID, ruleID, req.Name, req.Percentage)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "update", "rule", ruleID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"rule": rule, "validity": validity})
}

// DeleteRule removes a rule from its board.
// @Summary     Delete rule
// @Description Delete a rule; a board always keeps at least 2 rules
// @Tags        rules
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Rule ID"
// @Success     200 {object} MessageResponse "Rule deleted"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     409 {object} ErrorResponse "Minimum rule count reached"
// @Router      /rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	validity, err := h.ruleService.DeleteRule(userID, ruleID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "rule", ruleID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted successfully", "validity": validity})
}
