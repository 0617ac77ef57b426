package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "plata/internal/errors"
	"plata/internal/pagination"
	"plata/internal/services"
)

// DebtHandler handles debt and payment requests.
type DebtHandler struct {
	debtService  services.DebtServicer
	auditService services.AuditServicer
}

// NewDebtHandler creates a new DebtHandler.
func NewDebtHandler(debtService services.DebtServicer, auditService services.AuditServicer) *DebtHandler {
	return &DebtHandler{debtService: debtService, auditService: auditService}
}

// DebtRequest represents the request payload for creating or updating a debt.
// At least two of total_amount / installment_count / fixed_installment must be
// given so the amortization schedule can be derived; a fixed installment alone
// creates an open-ended debt.
type DebtRequest struct {
	Name             string   `json:"name" binding:"required,min=1,max=100"`
	Creditor         string   `json:"creditor" binding:"omitempty,max=100"`
	TotalAmount      *float64 `json:"total_amount" binding:"omitempty,gt=0"`
	InstallmentCount *int     `json:"installment_count" binding:"omitempty,gt=0"`
	FixedInstallment *float64 `json:"fixed_installment" binding:"omitempty,gt=0"`
	InterestRate     float64  `json:"interest_rate" binding:"omitempty,gte=0,lte=100"`
	DueDay           int      `json:"due_day" binding:"omitempty,min=1,max=31"`
}

// RegisterPaymentRequest represents the request payload for a manual payment.
// When installment_number is omitted the next unpaid installment is used.
type RegisterPaymentRequest struct {
	Amount            float64    `json:"amount" binding:"required,gt=0"`
	InstallmentNumber *int       `json:"installment_number" binding:"omitempty,gt=0"`
	Date              *time.Time `json:"date"`
}

func (r DebtRequest) toInput() services.DebtInput {
	return services.DebtInput{
		Name:             r.Name,
		Creditor:         r.Creditor,
		TotalAmount:      r.TotalAmount,
		InstallmentCount: r.InstallmentCount,
		FixedInstallment: r.FixedInstallment,
		InterestRate:     r.InterestRate,
		DueDay:           r.DueDay,
	}
}

// CreateDebt creates a debt with a derived amortization schedule.
// @Summary     Create debt
// @Description Create a debt; the installment schedule is derived from the supplied fields
// @Tags        debts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body DebtRequest true "Debt details"
// @Success     201 {object} models.Debt "Debt created"
// @Failure     400 {object} ErrorResponse "Underspecified amortization"
// @Router      /debts [post]
func (h *DebtHandler) CreateDebt(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	debt, err := h.debtService.CreateDebt(userID, req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "debt", debt.ID, c.ClientIP(), map[string]interface{}{
		"name": debt.Name,
	})

	c.JSON(http.StatusCreated, gin.H{"debt": debt})
}

// GetDebts lists the user's debts with their effective (read-time) state.
// @Summary     List debts
// @Description Get the authenticated user's debts; state may report overdue at read time
// @Tags        debts
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Debt] "Debts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /debts [get]
func (h *DebtHandler) GetDebts(c *gin.Context) {
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

	debts, err := h.debtService.GetUserDebts(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := time.Now()
	for i := range debts.Data {
		state, err := h.debtService.EffectiveState(&debts.Data[i], now)
		if err != nil {
			respondWithError(c, err)
			return
		}
		debts.Data[i].State = state
	}

	c.JSON(http.StatusOK, debts)
}

// GetDebt returns a single debt with its effective state.
// @Summary     Get debt
// @Description Get a debt by ID; state may report overdue at read time
// @Tags        debts
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Debt ID"
// @Success     200 {object} models.Debt "Debt"
// @Failure     404 {object} ErrorResponse "Debt not found"
// @Router      /debts/{id} [get]
func (h *DebtHandler) GetDebt(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	debtID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	debt, err := h.debtService.GetDebtByID(userID, debtID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	state, err := h.debtService.EffectiveState(debt, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	debt.State = state

	c.JSON(http.StatusOK, gin.H{"debt": debt})
}

// UpdateDebt edits a debt and rebases its schedule and balances.
// @Summary     Update debt
// @Description Edit a debt; the schedule is re-derived and the pending balance rebased against payments
// @Tags        debts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Debt ID"
// @Param       request body DebtRequest true "Debt details"
// @Success     200 {object} models.Debt "Debt updated"
// @Failure     404 {object} ErrorResponse "Debt not found"
// @Router      /debts/{id} [put]
func (h *DebtHandler) UpdateDebt(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	debtID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	debt, err := h.debtService.UpdateDebt(userID, debtID, req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "update", "debt", debtID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"debt": debt})
}

// DeleteDebt removes a debt and its payments.
// @Summary     Delete debt
// @Description Delete a debt; its payment history goes with it
// @Tags        debts
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Debt ID"
// @Success     200 {object} MessageResponse "Debt deleted"
// @Failure     404 {object} ErrorResponse "Debt not found"
// @Router      /debts/{id} [delete]
func (h *DebtHandler) DeleteDebt(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	debtID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.debtService.DeleteDebt(userID, debtID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "debt", debtID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Debt deleted successfully"})
}

// RegisterPayment records a manual payment against a debt.
// @Summary     Register payment
// @Description Record a payment against an installment; an already settled installment is rejected
// @Tags        debts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Debt ID"
// @Param       request body RegisterPaymentRequest true "Payment details"
// @Success     201 {object} models.Payment "Payment registered"
// @Failure     404 {object} ErrorResponse "Debt not found"
// @Failure     409 {object} ErrorResponse "Installment already settled"
// @Router      /debts/{id}/payments [post]
func (h *DebtHandler) RegisterPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	debtID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	payment, err := h.debtService.RegisterPayment(userID, debtID, req.Amount, req.InstallmentNumber, req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "create", "payment", payment.ID, c.ClientIP(), map[string]interface{}{
		"debt_id":            debtID,
		"installment_number": payment.InstallmentNumber,
		"amount":             payment.Amount,
	})

	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// GetPayments lists a debt's payments in installment order.
// @Summary     List payments
// @Description Get a debt's payments ordered by installment number
// @Tags        debts
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Debt ID"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Payment] "Payments"
// @Failure     404 {object} ErrorResponse "Debt not found"
// @Router      /debts/{id}/payments [get]
func (h *DebtHandler) GetPayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	debtID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	payments, err := h.debtService.GetDebtPayments(userID, debtID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// DeletePayment reverses a payment.
// @Summary     Delete payment
// @Description Delete a payment, moving its amount back to the pending balance
// @Tags        debts
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Payment ID"
// @Success     200 {object} MessageResponse "Payment deleted"
// @Failure     404 {object} ErrorResponse "Payment not found"
// @Router      /payments/{id} [delete]
func (h *DebtHandler) DeletePayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.debtService.DeletePayment(userID, paymentID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "delete", "payment", paymentID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted successfully"})
}
