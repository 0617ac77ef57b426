package models

// Rule is a percentage-based spending envelope inside a board, in the style
// of the 50/30/20 method. AllocatedAmount, SpentAmount and AvailableAmount
// are derived from the board's income and the expense transactions tagged
// with the rule, and are refreshed by the recompute cascade.
type Rule struct {
	Base
	BoardID    uint    `gorm:"not null;index" json:"board_id"`
	Name       string  `gorm:"not null" json:"name"`
	Percentage float64 `gorm:"not null" json:"percentage"`

	AllocatedAmount float64 `gorm:"not null;default:0" json:"allocated_amount"`
	SpentAmount     float64 `gorm:"not null;default:0" json:"spent_amount"`
	AvailableAmount float64 `gorm:"not null;default:0" json:"available_amount"`
}

// Rule-set bounds per board.
const (
	MinRulesPerBoard = 2
	MaxRulesPerBoard = 4
)
