package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "plata/internal/errors"
	"plata/internal/pagination"
	"plata/internal/services"
)

// IncomeHandler handles income requests.
type IncomeHandler struct {
	incomeService services.IncomeServicer
	auditService  services.AuditServicer
}

// NewIncomeHandler creates a new IncomeHandler.
func NewIncomeHandler(incomeService services.IncomeServicer, auditService services.AuditServicer) *IncomeHandler {
	return &IncomeHandler{incomeService: incomeService, auditService: auditService}
}

// CreateIncomeRequest represents the request payload for recording an income.
type CreateIncomeRequest struct {
	Amount      float64    `json:"amount" binding:"required,gt=0"`
	Description string     `json:"description" binding:"omitempty,max=255"`
	Source      string     `json:"source" binding:"omitempty,max=100"`
	Date        *time.Time `json:"date"`
	BoardID     *uint      `json:"board_id"`
}

// UpdateIncomeRequest represents the request payload for editing an income.
type UpdateIncomeRequest struct {
	Amount      *float64   `json:"amount" binding:"omitempty,gt=0"`
	Description *string    `json:"description" binding:"omitempty,max=255"`
	Date        *time.Time `json:"date"`
}

// AssignIncomeRequest represents the request payload for assigning an income
// to a board. A null board_id unassigns it.
type AssignIncomeRequest struct {
	BoardID *uint `json:"board_id"`
}

// CreateIncome records an income event.
// @Summary     Create income
// @Description Record an income, optionally assigned to a board
// @Tags        incomes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateIncomeRequest true "Income details"
// @Success     201 {object} models.Income "Income created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /incomes [post]
func (h *IncomeHandler) CreateIncome(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var date time.Time
	if req.Date != nil {
		date = *req.Date
	}

	income, err := h.incomeService.CreateIncome(userID, req.BoardID, req.Amount, req.Description, req.Source, date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "income", income.ID, c.ClientIP(), map[string]interface{}{
		"amount": income.Amount,
	})

	c.JSON(http.StatusCreated, gin.H{"income": income})
}

// GetIncomes lists the user's incomes.
// @Summary     List incomes
// @Description Get the authenticated user's incomes, newest first
// @Tags        incomes
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       unassigned query bool false "Only incomes not assigned to a board"
// @Success     200 {object} pagination.PageResponse[models.Income] "Incomes"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /incomes [get]
func (h *IncomeHandler) GetIncomes(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	unassignedOnly := c.Query("unassigned") == "true"

	incomes, err := h.incomeService.GetUserIncomes(userID, page, unassignedOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, incomes)
}

// UpdateIncome edits an income.
// @Summary     Update income
// @Description Edit an income's amount, description or date
// @Tags        incomes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Income ID"
// @Param       request body UpdateIncomeRequest true "Fields to update"
// @Success     200 {object} models.Income "Income updated"
// @Failure     404 {object} ErrorResponse "Income not found"
// @Router      /incomes/{id} [put]
func (h *IncomeHandler) UpdateIncome(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	incomeID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	income, err := h.incomeService.UpdateIncome(userID, incomeID, req.Amount, req.Description, req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "update", "income", incomeID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"income": income})
}

// AssignIncome assigns or unassigns an income to a board.
// @Summary     Assign income
// @Description Assign an income to a board, or unassign it with a null board_id
// @Tags        incomes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Income ID"
// @Param       request body AssignIncomeRequest true "Target board"
// @Success     200 {object} models.Income "Income reassigned"
// @Failure     404 {object} ErrorResponse "Income or board not found"
// @Router      /incomes/{id}/assign [put]
func (h *IncomeHandler) AssignIncome(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	incomeID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AssignIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	income, err := h.incomeService.AssignToBoard(userID, incomeID, req.BoardID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "assign", "income", incomeID, c.ClientIP(), map[string]interface{}{
		"board_id": req.BoardID,
	})

	c.JSON(http.StatusOK, gin.H{"income": income})
}

// DeleteIncome removes an income.
// @Summary     Delete income
// @Description Delete an income and refresh its board totals
// @Tags        incomes
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Income ID"
// @Success     200 {object} MessageResponse "Income deleted"
// @Failure     404 {object} ErrorResponse "Income not found"
// @Router      /incomes/{id} [delete]
func (h *IncomeHandler) DeleteIncome(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	incomeID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.incomeService.DeleteIncome(userID, incomeID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "income", incomeID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Income deleted successfully"})
}
