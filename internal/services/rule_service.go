package services

import (
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	apperrors "plata/internal/errors"
	"plata/internal/models"
	"plata/internal/money"
)

// percentage sums are float64; tolerate representation noise when comparing
// against the 100% target.
const percentEpsilon = 1e-9

// ruleService enforces the rule allocation invariants: 2-4 rules per board,
// percentage sum never above 100 on writes, derived amounts recomputed from
// the board's current income.
type ruleService struct {
	db *gorm.DB
}

// NewRuleService creates a new RuleServicer.
func NewRuleService(db *gorm.DB) RuleServicer {
	return &ruleService{db: db}
}

// getBoardOwned fetches a board checking ownership.
func (s *ruleService) getBoardOwned(tx *gorm.DB, userID, boardID uint) (*models.Board, error) {
	var board models.Board
	if err := tx.Where("id = ? AND user_id = ?", boardID, userID).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBoardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &board, nil
}

// getRuleOwned fetches a rule checking ownership through its board.
func (s *ruleService) getRuleOwned(tx *gorm.DB, userID, ruleID uint) (*models.Rule, error) {
	var rule models.Rule
	err := tx.Joins("JOIN boards ON boards.id = rules.board_id AND boards.deleted_at IS NULL").
		Where("rules.id = ? AND boards.user_id = ?", ruleID, userID).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rule, nil
}

// sumAndCount returns the percentage sum and rule count for a board,
// optionally excluding one rule.
func (s *ruleService) sumAndCount(tx *gorm.DB, boardID uint, excludeRuleID *uint) (float64, int, error) {
	scope := func() *gorm.DB {
		q := tx.Model(&models.Rule{}).Where("board_id = ?", boardID)
		if excludeRuleID != nil {
			q = q.Where("id <> ?", *excludeRuleID)
		}
		return q
	}

	var count int64
	if err := scope().Count(&count).Error; err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var sum float64
	if err := scope().Select("COALESCE(SUM(percentage), 0)").Scan(&sum).Error; err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sum, int(count), nil
}

// CreateRule adds a rule to a board. Rejects a 5th rule or a percentage that
// would push the sum above 100. The returned validity is advisory: a sum
// below 100 is allowed and merely reported.
func (s *ruleService) CreateRule(userID, boardID uint, name string, percentage float64) (*models.Rule, *BoardValidity, error) {
	board, err := s.getBoardOwned(s.db, userID, boardID)
	if err != nil {
		return nil, nil, err
	}

	sum, count, err := s.sumAndCount(s.db, boardID, nil)
	if err != nil {
		return nil, nil, err
	}
	if count >= models.MaxRulesPerBoard {
		return nil, nil, apperrors.ErrRuleLimitReached
	}
	if sum+percentage > 100+percentEpsilon {
		return nil, nil, apperrors.WithMessage(apperrors.ErrPercentageExceeds,
			fmt.Sprintf("Rule percentages cannot sum above 100 (current sum %.2f, at most %.2f available)", sum, 100-sum))
	}

	allocated := money.Percentage(board.Income, percentage)
	rule := &models.Rule{
		BoardID:         boardID,
		Name:            name,
		Percentage:      percentage,
		AllocatedAmount: allocated,
		SpentAmount:     0,
		AvailableAmount: allocated,
	}

	var validity *BoardValidity
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rule).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		validity, err = s.RefreshValidity(tx, boardID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rule, validity, nil
}

// UpdateRule edits a rule's name or percentage. The sum check excludes the
// rule being edited.
func (s *ruleService) UpdateRule(userID, ruleID uint, name string, percentage *float64) (*models.Rule, *BoardValidity, error) {
	rule, err := s.getRuleOwned(s.db, userID, ruleID)
	if err != nil {
		return nil, nil, err
	}

	if percentage != nil {
		sum, _, err := s.sumAndCount(s.db, rule.BoardID, &rule.ID)
		if err != nil {
			return nil, nil, err
		}
		if sum+*percentage > 100+percentEpsilon {
			return nil, nil, apperrors.WithMessage(apperrors.ErrPercentageExceeds,
				fmt.Sprintf("Rule percentages cannot sum above 100 (other rules sum %.2f)", sum))
		}
	}

	var validity *BoardValidity
	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := make(map[string]interface{})
		if name != "" {
			updates["name"] = name
		}
		if percentage != nil {
			updates["percentage"] = *percentage
		}
		if len(updates) > 0 {
			if err := tx.Model(rule).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if rule, err = s.RecomputeRule(tx, ruleID); err != nil {
			return err
		}
		validity, err = s.RefreshValidity(tx, rule.BoardID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rule, validity, nil
}

// DeleteRule removes a rule, rejecting the deletion when fewer than 2 rules
// would remain. Transactions tagged with the rule are detached, not deleted.
func (s *ruleService) DeleteRule(userID, ruleID uint) (*BoardValidity, error) {
	rule, err := s.getRuleOwned(s.db, userID, ruleID)
	if err != nil {
		return nil, err
	}

	_, count, err := s.sumAndCount(s.db, rule.BoardID, nil)
	if err != nil {
		return nil, err
	}
	if count <= models.MinRulesPerBoard {
		return nil, apperrors.ErrRuleMinimum
	}

	var validity *BoardValidity
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("rule_id = ?", rule.ID).
			Update("rule_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(rule).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		validity, err = s.RefreshValidity(tx, rule.BoardID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return validity, nil
}

// GetBoardRules lists a board's rules together with the advisory validity.
func (s *ruleService) GetBoardRules(userID, boardID uint) ([]models.Rule, *BoardValidity, error) {
	board, err := s.getBoardOwned(s.db, userID, boardID)
	if err != nil {
		return nil, nil, err
	}

	var rules []models.Rule
	if err := s.db.Where("board_id = ?", boardID).Order("id").Find(&rules).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	sum, count, err := s.sumAndCount(s.db, boardID, nil)
	if err != nil {
		return nil, nil, err
	}
	return rules, &BoardValidity{
		BoardID:         board.ID,
		RuleCount:       count,
		TotalPercentage: money.Round2(sum),
		IsValid:         isValidRuleSet(sum, count),
	}, nil
}

// RecomputeRule re-reads the parent board's income, re-sums the expense
// transactions tagged with the rule, and rewrites the derived amounts.
// Idempotent: repeated calls without intervening mutations are no-ops.
func (s *ruleService) RecomputeRule(tx *gorm.DB, ruleID uint) (*models.Rule, error) {
	var rule models.Rule
	if err := tx.First(&rule, ruleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var board models.Board
	if err := tx.First(&board, rule.BoardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBoardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var spent float64
	err := tx.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("rule_id = ? AND type = ?", rule.ID, models.TransactionTypeExpense).
		Scan(&spent).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rule.AllocatedAmount = money.Percentage(board.Income, rule.Percentage)
	rule.SpentAmount = money.Round2(spent)
	// Overspending is allowed; available never goes negative.
	rule.AvailableAmount = money.ClampFloor(money.Sub(rule.AllocatedAmount, rule.SpentAmount), 0)

	if err := tx.Model(&rule).Updates(map[string]interface{}{
		"allocated_amount": rule.AllocatedAmount,
		"spent_amount":     rule.SpentAmount,
		"available_amount": rule.AvailableAmount,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rule, nil
}

// RecomputeBoardRules recomputes every rule of a board. Callers must have
// already recomputed the board itself: allocation reads the board's income.
func (s *ruleService) RecomputeBoardRules(tx *gorm.DB, boardID uint) error {
	var ruleIDs []uint
	if err := tx.Model(&models.Rule{}).Where("board_id = ?", boardID).
		Order("id").Pluck("id", &ruleIDs).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, id := range ruleIDs {
		if _, err := s.RecomputeRule(tx, id); err != nil {
			return err
		}
	}
	return nil
}

// RefreshValidity re-derives and persists the board's advisory validity.
func (s *ruleService) RefreshValidity(tx *gorm.DB, boardID uint) (*BoardValidity, error) {
	sum, count, err := s.sumAndCount(tx, boardID, nil)
	if err != nil {
		return nil, err
	}

	validity := &BoardValidity{
		BoardID:         boardID,
		RuleCount:       count,
		TotalPercentage: money.Round2(sum),
		IsValid:         isValidRuleSet(sum, count),
	}
	if err := tx.Model(&models.Board{}).Where("id = ?", boardID).Updates(map[string]interface{}{
		"total_percentage": validity.TotalPercentage,
		"is_valid":         validity.IsValid,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return validity, nil
}

func isValidRuleSet(sum float64, count int) bool {
	return math.Abs(sum-100) < percentEpsilon &&
		count >= models.MinRulesPerBoard && count <= models.MaxRulesPerBoard
}
