package models

import "time"

// PaymentState represents the settlement state of a payment.
type PaymentState string

const (
	PaymentStatePaid PaymentState = "paid"
)

// Payment is a single installment settlement against a debt. At most one
// paid payment may exist per (debt, installment number) pair.
type Payment struct {
	Base
	DebtID            uint         `gorm:"not null;index" json:"debt_id"`
	TransactionID     *uint        `gorm:"index" json:"transaction_id,omitempty"`
	InstallmentNumber int          `gorm:"not null" json:"installment_number"`
	Amount            float64      `gorm:"not null" json:"amount"`
	Date              time.Time    `gorm:"not null" json:"date"`
	State             PaymentState `gorm:"not null;default:'paid'" json:"state"`
}
