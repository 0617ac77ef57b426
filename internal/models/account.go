package models

// Account is a cash-equivalent holding (bank account, wallet). Balances feed
// the net worth calculation and move with account-linked transactions.
type Account struct {
	Base
	UserID   uint    `gorm:"not null;index" json:"user_id"`
	Name     string  `gorm:"not null" json:"name"`
	Balance  float64 `gorm:"not null;default:0" json:"balance"`
	Currency string  `gorm:"size:3;not null;default:'COP'" json:"currency"`
	IsActive bool    `gorm:"default:true" json:"is_active"`
}
