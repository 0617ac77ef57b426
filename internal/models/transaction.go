package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents a financial movement. Board, rule, debt and account
// links are all optional; an expense transaction carrying a DebtID triggers
// automatic payment registration against that debt.
type Transaction struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      float64         `gorm:"not null" json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null" json:"date"`

	BoardID   *uint `gorm:"index" json:"board_id,omitempty"`
	RuleID    *uint `gorm:"index" json:"rule_id,omitempty"`
	DebtID    *uint `gorm:"index" json:"debt_id,omitempty"`
	AccountID *uint `gorm:"index" json:"account_id,omitempty"`

	// Fixed expenses are copied forward into the next month's board.
	IsFixedExpense bool `gorm:"not null;default:false" json:"is_fixed_expense"`
}
