package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "plata/internal/errors"
	"plata/internal/models"
	"plata/internal/money"
	"plata/internal/pagination"
)

// debtService handles debt amortization bookkeeping and payment
// reconciliation. Invariant maintained throughout: for debts with a total,
// paid + pending == total after every registration and reversal.
type debtService struct {
	db *gorm.DB
}

// NewDebtService creates a new DebtServicer.
func NewDebtService(db *gorm.DB) DebtServicer {
	return &debtService{db: db}
}

// deriveInstallments resolves the mutually derivable trio of total amount,
// installment count and installment amount from whichever subset the caller
// supplied:
//
//   - total + count: amount = total / count, rounded to 2 decimals
//   - fixed installment only: open-ended debt, count stays nil
//   - total + fixed installment: count = ceil(total / fixed)
func deriveInstallments(input DebtInput) (total *float64, count *int, amount float64, err error) {
	if input.TotalAmount != nil && *input.TotalAmount <= 0 {
		return nil, nil, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "total amount must be greater than zero")
	}
	if input.InstallmentCount != nil && *input.InstallmentCount <= 0 {
		return nil, nil, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "installment count must be greater than zero")
	}
	if input.FixedInstallment != nil && *input.FixedInstallment <= 0 {
		return nil, nil, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "fixed installment must be greater than zero")
	}

	switch {
	case input.TotalAmount != nil && input.InstallmentCount != nil:
		t := money.Round2(*input.TotalAmount)
		c := *input.InstallmentCount
		return &t, &c, money.DivRound(t, c), nil

	case input.TotalAmount == nil && input.FixedInstallment != nil:
		// Open-ended: no total, no term.
		return nil, nil, money.Round2(*input.FixedInstallment), nil

	case input.TotalAmount != nil && input.FixedInstallment != nil:
		t := money.Round2(*input.TotalAmount)
		a := money.Round2(*input.FixedInstallment)
		c := money.CeilDiv(t, a)
		return &t, &c, a, nil

	default:
		return nil, nil, 0, apperrors.ErrDebtUnderspecified
	}
}

// CreateDebt creates a debt with derived installment bookkeeping. Pending
// starts at the total amount (0 for open-ended debts), paid at zero.
func (s *debtService) CreateDebt(userID uint, input DebtInput) (*models.Debt, error) {
	total, count, amount, err := deriveInstallments(input)
	if err != nil {
		return nil, err
	}

	debt := &models.Debt{
		UserID:            userID,
		Name:              input.Name,
		Creditor:          input.Creditor,
		TotalAmount:       total,
		InstallmentCount:  count,
		InstallmentAmount: amount,
		PaidBalance:       0,
		InterestRate:      input.InterestRate,
		DueDay:            input.DueDay,
		State:             models.DebtStateActive,
	}
	if total != nil {
		debt.PendingBalance = *total
	}

	if err := s.db.Create(debt).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return debt, nil
}

// UpdateDebt re-derives the installment trio from the new input and rebases
// the pending balance against what has already been paid.
func (s *debtService) UpdateDebt(userID, debtID uint, input DebtInput) (*models.Debt, error) {
	debt, err := s.GetDebtByID(userID, debtID)
	if err != nil {
		return nil, err
	}

	total, count, amount, err := deriveInstallments(input)
	if err != nil {
		return nil, err
	}

	debt.TotalAmount = total
	debt.InstallmentCount = count
	debt.InstallmentAmount = amount
	if input.Name != "" {
		debt.Name = input.Name
	}
	if input.Creditor != "" {
		debt.Creditor = input.Creditor
	}
	debt.InterestRate = input.InterestRate
	debt.DueDay = input.DueDay

	// Rebase balances so paid + pending == total still holds.
	if total != nil {
		debt.PendingBalance = money.ClampFloor(money.Sub(*total, debt.PaidBalance), 0)
		if debt.PendingBalance == 0 {
			debt.State = models.DebtStatePaid
		} else {
			debt.State = models.DebtStateActive
		}
	} else {
		debt.PendingBalance = 0
		debt.State = models.DebtStateActive
	}

	if err := s.db.Save(debt).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return debt, nil
}

// DeleteDebt removes a debt along with its payments; transactions that
// referenced the debt are detached.
func (s *debtService) DeleteDebt(userID, debtID uint) error {
	debt, err := s.GetDebtByID(userID, debtID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("debt_id = ?", debt.ID).
			Update("debt_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("debt_id = ?", debt.ID).Delete(&models.Payment{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(debt).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetUserDebts returns a paginated list of the user's debts.
func (s *debtService) GetUserDebts(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Debt], error) {
	page.Defaults()

	base := s.db.Model(&models.Debt{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var debts []models.Debt
	if err := base.Scopes(pagination.Paginate(page)).Order("id").Find(&debts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(debts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetDebtByID returns a debt by ID if it belongs to the user.
func (s *debtService) GetDebtByID(userID, debtID uint) (*models.Debt, error) {
	var debt models.Debt
	if err := s.db.Where("id = ? AND user_id = ?", debtID, userID).First(&debt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDebtNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &debt, nil
}

// EffectiveState derives the debt's read-time state; a debt past its due day
// with no payment this month reports as overdue without being persisted so.
func (s *debtService) EffectiveState(debt *models.Debt, now time.Time) (models.DebtState, error) {
	var last models.Payment
	err := s.db.Where("debt_id = ? AND state = ?", debt.ID, models.PaymentStatePaid).
		Order("date DESC").First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return debt.EffectiveState(now, nil), nil
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return debt.EffectiveState(now, &last.Date), nil
}

// paidNumbers returns the set of already-settled installment numbers.
func (s *debtService) paidNumbers(tx *gorm.DB, debtID uint) (map[int]bool, error) {
	var numbers []int
	if err := tx.Model(&models.Payment{}).
		Where("debt_id = ? AND state = ?", debtID, models.PaymentStatePaid).
		Pluck("installment_number", &numbers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	set := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		set[n] = true
	}
	return set, nil
}

// RegisterPayment settles one installment. With no installment number given,
// the next one after the count of settled payments is used. A collision with
// an already-settled number is a conflict; the error message carries the
// first unpaid number so the caller can retry.
func (s *debtService) RegisterPayment(userID, debtID uint, amount float64, installmentNumber *int, date *time.Time) (*models.Payment, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if _, err := s.GetDebtByID(userID, debtID); err != nil {
		return nil, err
	}

	when := time.Now()
	if date != nil {
		when = *date
	}

	var payment *models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Re-fetch inside the unit of work; balances may have moved.
		var debt models.Debt
		if err := tx.First(&debt, debtID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		var err error
		payment, err = s.registerPayment(tx, &debt, amount, installmentNumber, when, nil, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// RegisterAutoPayment is the transaction-cascade entry point. It runs inside
// the caller's open gorm transaction, scans forward past settled installment
// numbers instead of failing, and links the payment to its transaction.
func (s *debtService) RegisterAutoPayment(tx *gorm.DB, debt *models.Debt, amount float64, date time.Time, transactionID uint) (*models.Payment, error) {
	return s.registerPayment(tx, debt, amount, nil, date, &transactionID, true)
}

func (s *debtService) registerPayment(tx *gorm.DB, debt *models.Debt, amount float64, installmentNumber *int, date time.Time, transactionID *uint, scanForward bool) (*models.Payment, error) {
	settled, err := s.paidNumbers(tx, debt.ID)
	if err != nil {
		return nil, err
	}

	number := len(settled) + 1
	if installmentNumber != nil {
		number = *installmentNumber
	}

	if settled[number] {
		if !scanForward {
			next := number
			for settled[next] {
				next++
			}
			return nil, apperrors.WithMessage(apperrors.ErrInstallmentSettled,
				fmt.Sprintf("Installment %d already settled; next unpaid is %d", number, next))
		}
		// Conflict-avoidance policy for auto-payments: take the first
		// unpaid installment number instead of failing.
		for settled[number] {
			number++
		}
	}

	payment := &models.Payment{
		DebtID:            debt.ID,
		TransactionID:     transactionID,
		InstallmentNumber: number,
		Amount:            money.Round2(amount),
		Date:              date,
		State:             models.PaymentStatePaid,
	}
	if err := tx.Create(payment).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.applyPaymentToDebt(tx, debt, payment.Amount); err != nil {
		return nil, err
	}
	return payment, nil
}

// applyPaymentToDebt moves the debt balances for a settled payment and flips
// the state to paid when nothing is left pending. Open-ended debts track
// paid balance only and never auto-transition to paid.
func (s *debtService) applyPaymentToDebt(tx *gorm.DB, debt *models.Debt, amount float64) error {
	debt.PaidBalance = money.Add(debt.PaidBalance, amount)
	if debt.TotalAmount != nil {
		debt.PendingBalance = money.ClampFloor(money.Sub(debt.PendingBalance, amount), 0)
		if debt.PendingBalance == 0 {
			debt.State = models.DebtStatePaid
		}
	}

	if err := tx.Model(debt).Updates(map[string]interface{}{
		"paid_balance":    debt.PaidBalance,
		"pending_balance": debt.PendingBalance,
		"state":           debt.State,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// reversePayment undoes a payment's effect on the debt and removes the
// payment row. The exact mirror of applyPaymentToDebt.
func (s *debtService) reversePayment(tx *gorm.DB, debt *models.Debt, payment *models.Payment) error {
	debt.PaidBalance = money.ClampFloor(money.Sub(debt.PaidBalance, payment.Amount), 0)
	if debt.TotalAmount != nil {
		debt.PendingBalance = money.Add(debt.PendingBalance, payment.Amount)
		if debt.PendingBalance > *debt.TotalAmount {
			debt.PendingBalance = *debt.TotalAmount
		}
		if debt.State == models.DebtStatePaid && debt.PendingBalance > 0 {
			debt.State = models.DebtStateActive
		}
	}

	if err := tx.Model(debt).Updates(map[string]interface{}{
		"paid_balance":    debt.PaidBalance,
		"pending_balance": debt.PendingBalance,
		"state":           debt.State,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := tx.Delete(payment).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeletePayment reverses a payment registration symmetrically.
func (s *debtService) DeletePayment(userID, paymentID uint) error {
	var payment models.Payment
	err := s.db.Joins("JOIN debts ON debts.id = payments.debt_id AND debts.deleted_at IS NULL").
		Where("payments.id = ? AND debts.user_id = ?", paymentID, userID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPaymentNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var debt models.Debt
		if err := tx.First(&debt, payment.DebtID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.reversePayment(tx, &debt, &payment)
	})
}

// ReversePaymentForTransaction undoes the auto-payment linked to a deleted
// transaction. Missing payment is not an error: the transaction may have
// been created before the debt link existed.
func (s *debtService) ReversePaymentForTransaction(tx *gorm.DB, transactionID uint) error {
	var payment models.Payment
	err := tx.Where("transaction_id = ?", transactionID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var debt models.Debt
	if err := tx.First(&debt, payment.DebtID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.reversePayment(tx, &debt, &payment)
}

// AdjustPaymentForTransaction amends the linked auto-payment after its
// transaction changed, shifting the debt balances by the amount difference.
func (s *debtService) AdjustPaymentForTransaction(tx *gorm.DB, transactionID uint, newAmount float64, newDate time.Time) error {
	var payment models.Payment
	err := tx.Where("transaction_id = ?", transactionID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var debt models.Debt
	if err := tx.First(&debt, payment.DebtID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	newAmount = money.Round2(newAmount)
	delta := money.Sub(newAmount, payment.Amount)

	if err := tx.Model(&payment).Updates(map[string]interface{}{
		"amount": newAmount,
		"date":   newDate,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	debt.PaidBalance = money.ClampFloor(money.Add(debt.PaidBalance, delta), 0)
	if debt.TotalAmount != nil {
		debt.PendingBalance = money.ClampFloor(money.Sub(*debt.TotalAmount, debt.PaidBalance), 0)
		switch {
		case debt.PendingBalance == 0:
			debt.State = models.DebtStatePaid
		case debt.State == models.DebtStatePaid:
			debt.State = models.DebtStateActive
		}
	}

	if err := tx.Model(&debt).Updates(map[string]interface{}{
		"paid_balance":    debt.PaidBalance,
		"pending_balance": debt.PendingBalance,
		"state":           debt.State,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetDebtPayments lists a debt's payments ordered by installment number.
func (s *debtService) GetDebtPayments(userID, debtID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Payment], error) {
	if _, err := s.GetDebtByID(userID, debtID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Payment{}).Where("debt_id = ?", debtID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var payments []models.Payment
	if err := base.Scopes(pagination.Paginate(page)).
		Order("installment_number").Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(payments, page.Page, page.PageSize, totalItems)
	return &result, nil
}
