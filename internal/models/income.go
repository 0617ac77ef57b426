package models

import "time"

// Income is a credit event. BoardID is nil while the income is unassigned;
// incomes are never auto-split across boards, assignment is always explicit.
type Income struct {
	Base
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	BoardID     *uint     `gorm:"index" json:"board_id,omitempty"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	Date        time.Time `gorm:"not null" json:"date"`
}
