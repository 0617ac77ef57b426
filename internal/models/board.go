package models

import "fmt"

// Board represents a monthly budget board (presupuesto). Income, Expense and
// Balance are cached aggregates maintained by the recompute cascade; they are
// never written directly by handlers.
type Board struct {
	Base
	UserID   uint   `gorm:"not null;index;uniqueIndex:idx_boards_user_month" json:"user_id"`
	Year     int    `gorm:"not null" json:"year"`
	Month    int    `gorm:"not null" json:"month"`
	MonthKey string `gorm:"size:7;not null;uniqueIndex:idx_boards_user_month" json:"month_key"`
	Currency string `gorm:"size:3;not null;default:'COP'" json:"currency"`

	Income  float64 `gorm:"not null;default:0" json:"income"`
	Expense float64 `gorm:"not null;default:0" json:"expense"`
	Balance float64 `gorm:"not null;default:0" json:"balance"`

	// Advisory rule-set validity: sum == 100 and 2 <= count <= 4.
	TotalPercentage float64 `gorm:"not null;default:0" json:"total_percentage"`
	IsValid         bool    `gorm:"not null;default:false" json:"is_valid"`

	Rules []Rule `gorm:"foreignKey:BoardID" json:"rules,omitempty"`
}

// MonthKey builds the canonical "YYYY-MM" key for a board month.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
