package models

import "time"

// DebtState represents the lifecycle state of a debt. Only "active" and
// "paid" are persisted; "overdue" is derived at read time by EffectiveState.
type DebtState string

const (
	DebtStateActive  DebtState = "active"
	DebtStatePaid    DebtState = "paid"
	DebtStateOverdue DebtState = "overdue"
)

// Debt represents an amortizing or open-ended obligation (pasivo).
// Invariant: PaidBalance + PendingBalance == *TotalAmount whenever
// TotalAmount is set.
type Debt struct {
	Base
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	Name     string `gorm:"not null" json:"name"`
	Creditor string `json:"creditor"`

	// TotalAmount is nil for open-ended debts (fixed installment, no term).
	TotalAmount       *float64 `json:"total_amount,omitempty"`
	InstallmentCount  *int     `json:"installment_count,omitempty"`
	InstallmentAmount float64  `gorm:"not null;default:0" json:"installment_amount"`

	PaidBalance    float64 `gorm:"not null;default:0" json:"paid_balance"`
	PendingBalance float64 `gorm:"not null;default:0" json:"pending_balance"`

	InterestRate float64 `json:"interest_rate,omitempty"`
	// DueDay is the day of month a payment is expected; 0 means no due date.
	DueDay int       `gorm:"not null;default:0" json:"due_day,omitempty"`
	State  DebtState `gorm:"not null;default:'active'" json:"state"`

	Payments []Payment `gorm:"foreignKey:DebtID" json:"payments,omitempty"`
}

// EffectiveState derives the read-time state of the debt. A debt is overdue
// when it is active, the due day for the current month has passed, and no
// payment has been registered within the current month. lastPaidAt is the
// date of the most recent paid payment, nil when none exists.
func (d *Debt) EffectiveState(now time.Time, lastPaidAt *time.Time) DebtState {
	if d.State != DebtStateActive || d.DueDay == 0 {
		return d.State
	}
	if now.Day() <= d.DueDay {
		return DebtStateActive
	}
	if lastPaidAt != nil && lastPaidAt.Year() == now.Year() && lastPaidAt.Month() == now.Month() {
		return DebtStateActive
	}
	return DebtStateOverdue
}
