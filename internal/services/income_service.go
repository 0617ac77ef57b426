package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "plata/internal/errors"
	"plata/internal/models"
	"plata/internal/money"
	"plata/internal/pagination"
)

// incomeService handles income events. Every mutation that touches a board
// runs the recompute cascade: board totals first, then the board's rules.
type incomeService struct {
	db     *gorm.DB
	boards BoardServicer
	rules  RuleServicer
}

// NewIncomeService creates a new IncomeServicer.
func NewIncomeService(db *gorm.DB, boards BoardServicer, rules RuleServicer) IncomeServicer {
	return &incomeService{db: db, boards: boards, rules: rules}
}

// recomputeBoardCascade refreshes the board aggregate and then its rules.
// Ordering matters: rule allocation reads the board's recomputed income.
func (s *incomeService) recomputeBoardCascade(tx *gorm.DB, boardID uint) error {
	if _, err := s.boards.RecomputeBoard(tx, boardID); err != nil {
		return err
	}
	return s.rules.RecomputeBoardRules(tx, boardID)
}

// CreateIncome records a credit event, optionally tagged to a board.
// Untagged incomes stay unassigned until explicitly assigned.
func (s *incomeService) CreateIncome(userID uint, boardID *uint, amount float64, description, source string, date time.Time) (*models.Income, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if boardID != nil {
		if _, err := s.boards.GetBoardByID(userID, *boardID); err != nil {
			return nil, err
		}
	}
	if date.IsZero() {
		date = time.Now()
	}

	income := &models.Income{
		UserID:      userID,
		BoardID:     boardID,
		Amount:      money.Round2(amount),
		Description: description,
		Source:      source,
		Date:        date,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(income).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if boardID != nil {
			return s.recomputeBoardCascade(tx, *boardID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return income, nil
}

// UpdateIncome edits an income's amount, description or date, then refreshes
// the board it is assigned to.
func (s *incomeService) UpdateIncome(userID, incomeID uint, amount *float64, description *string, date *time.Time) (*models.Income, error) {
	income, err := s.GetIncomeByID(userID, incomeID)
	if err != nil {
		return nil, err
	}
	if amount != nil && *amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := make(map[string]interface{})
		if amount != nil {
			updates["amount"] = money.Round2(*amount)
		}
		if description != nil {
			updates["description"] = *description
		}
		if date != nil {
			updates["date"] = *date
		}
		if len(updates) > 0 {
			if err := tx.Model(income).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if income.BoardID != nil {
			return s.recomputeBoardCascade(tx, *income.BoardID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return income, nil
}

// AssignToBoard moves an income between boards (or unassigns it with nil).
// Both the previous and the new board are recomputed.
func (s *incomeService) AssignToBoard(userID, incomeID uint, boardID *uint) (*models.Income, error) {
	income, err := s.GetIncomeByID(userID, incomeID)
	if err != nil {
		return nil, err
	}
	if boardID != nil {
		if _, err := s.boards.GetBoardByID(userID, *boardID); err != nil {
			return nil, err
		}
	}

	oldBoardID := income.BoardID
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(income).Update("board_id", boardID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if oldBoardID != nil {
			if err := s.recomputeBoardCascade(tx, *oldBoardID); err != nil {
				return err
			}
		}
		if boardID != nil && (oldBoardID == nil || *oldBoardID != *boardID) {
			return s.recomputeBoardCascade(tx, *boardID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	income.BoardID = boardID
	return income, nil
}

// DeleteIncome removes an income and refreshes its board.
func (s *incomeService) DeleteIncome(userID, incomeID uint) error {
	income, err := s.GetIncomeByID(userID, incomeID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(income).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if income.BoardID != nil {
			return s.recomputeBoardCascade(tx, *income.BoardID)
		}
		return nil
	})
}

// GetUserIncomes lists the user's incomes, optionally only unassigned ones.
func (s *incomeService) GetUserIncomes(userID uint, page pagination.PageRequest, unassignedOnly bool) (*pagination.PageResponse[models.Income], error) {
	page.Defaults()

	base := s.db.Model(&models.Income{}).Where("user_id = ?", userID)
	if unassignedOnly {
		base = base.Where("board_id IS NULL")
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var incomes []models.Income
	if err := base.Scopes(pagination.Paginate(page)).Order("date DESC").Find(&incomes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(incomes, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetIncomeByID returns an income by ID if it belongs to the user.
func (s *incomeService) GetIncomeByID(userID, incomeID uint) (*models.Income, error) {
	var income models.Income
	if err := s.db.Where("id = ? AND user_id = ?", incomeID, userID).First(&income).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIncomeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &income, nil
}
