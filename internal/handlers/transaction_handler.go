package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "plata/internal/errors"
	"plata/internal/models"
	"plata/internal/pagination"
	"plata/internal/services"
)

// TransactionHandler handles transaction requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for recording a
// transaction. Board, rule, debt and account links are all optional; a debt
// link requires an expense type and a rule link requires a board link.
type CreateTransactionRequest struct {
	Type           string     `json:"type" binding:"required,transaction_type"`
	Amount         float64    `json:"amount" binding:"required,gt=0"`
	Description    string     `json:"description" binding:"omitempty,max=255"`
	Date           *time.Time `json:"date"`
	BoardID        *uint      `json:"board_id"`
	RuleID         *uint      `json:"rule_id"`
	DebtID         *uint      `json:"debt_id"`
	AccountID      *uint      `json:"account_id"`
	IsFixedExpense bool       `json:"is_fixed_expense"`
}

// UpdateTransactionRequest represents the request payload for editing a
// transaction. board_id and rule_id are applied only when their set flag is
// true, so links can be explicitly cleared with a null value.
type UpdateTransactionRequest struct {
	Amount         *float64   `json:"amount" binding:"omitempty,gt=0"`
	Description    *string    `json:"description" binding:"omitempty,max=255"`
	Date           *time.Time `json:"date"`
	BoardID        *uint      `json:"board_id"`
	SetBoard       bool       `json:"set_board"`
	RuleID         *uint      `json:"rule_id"`
	SetRule        bool       `json:"set_rule"`
	IsFixedExpense *bool      `json:"is_fixed_expense"`
}

// CreateTransaction records a transaction and runs the recompute cascade.
// @Summary     Create transaction
// @Description Record a transaction; linked account, board, rules and debt are updated in one unit
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or incoherent links"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.TransactionInput{
		Type:           models.TransactionType(req.Type),
		Amount:         req.Amount,
		Description:    req.Description,
		BoardID:        req.BoardID,
		RuleID:         req.RuleID,
		DebtID:         req.DebtID,
		AccountID:      req.AccountID,
		IsFixedExpense: req.IsFixedExpense,
	}
	if req.Date != nil {
		input.Date = *req.Date
	}

	transaction, err := h.transactionService.CreateTransaction(userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "transaction", transaction.ID, c.ClientIP(), map[string]interface{}{
		"type":   req.Type,
		"amount": transaction.Amount,
	})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions lists the user's transactions with optional filters.
// @Summary     List transactions
// @Description Get the authenticated user's transactions, newest first
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       type query string false "income or expense"
// @Param       board_id query int false "Filter by board"
// @Param       rule_id query int false "Filter by rule"
// @Param       debt_id query int false "Filter by debt"
// @Param       from query string false "From date (RFC 3339)"
// @Param       to query string false "To date (RFC 3339)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
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

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("type"); v != "" {
		t := models.TransactionType(v)
		if t != models.TransactionTypeIncome && t != models.TransactionTypeExpense {
			return filter, apperrors.ErrInvalidTransactionType
		}
		filter.Type = &t
	}
	for param, dest := range map[string]**uint{
		"board_id": &filter.BoardID,
		"rule_id":  &filter.RuleID,
		"debt_id":  &filter.DebtID,
	} {
		if c.Query(param) == "" {
			continue
		}
		id, err := parseQueryID(c, param)
		if err != nil {
			return filter, err
		}
		*dest = &id
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid from date")
		}
		filter.FromDate = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid to date")
		}
		filter.ToDate = &t
	}
	return filter, nil
}

// GetTransaction returns a single transaction.
// @Summary     Get transaction
// @Description Get a transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction edits a transaction and re-runs the cascade.
// @Summary     Update transaction
// @Description Edit a transaction; every aggregate the edit touches is recomputed
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Transaction updated"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, transactionID, services.TransactionUpdate{
		Amount:      req.Amount,
		Description: req.Description,
		Date:        req.Date,
		BoardID:     req.BoardID,
		SetBoard:    req.SetBoard,
		RuleID:      req.RuleID,
		SetRule:     req.SetRule,
		IsFixed:     req.IsFixedExpense,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "update", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction removes a transaction, reversing its effects.
// @Summary     Delete transaction
// @Description Delete a transaction; auto-payments and account effects are reversed
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
