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

// defaultRules is the 50/30/20 split seeded when a board is created without
// an explicit rule set.
var defaultRules = []RuleInput{
	{Name: "Necesidades", Percentage: 50},
	{Name: "Deseos", Percentage: 30},
	{Name: "Ahorro", Percentage: 20},
}

// boardService owns the monthly budget board aggregate and its cached
// income/expense/balance totals.
type boardService struct {
	db    *gorm.DB
	rules RuleServicer
}

// NewBoardService creates a new BoardServicer.
func NewBoardService(db *gorm.DB, rules RuleServicer) BoardServicer {
	return &boardService{db: db, rules: rules}
}

// CreateBoard creates the board for a given month. When no rules are
// supplied it seeds the three 50/30/20 defaults. Fixed expenses from the
// previous month's board are copied forward, re-dated into the new month.
func (s *boardService) CreateBoard(userID uint, year, month int, currency string, rules []RuleInput) (*models.Board, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}

	monthKey := models.MonthKey(year, month)
	var existing models.Board
	err := s.db.Where("user_id = ? AND month_key = ?", userID, monthKey).First(&existing).Error
	if err == nil {
		return nil, apperrors.ErrDuplicateBoard
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if len(rules) == 0 {
		rules = defaultRules
	}
	if len(rules) < models.MinRulesPerBoard || len(rules) > models.MaxRulesPerBoard {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a board needs between 2 and 4 rules")
	}
	var sum float64
	for _, r := range rules {
		sum += r.Percentage
	}
	if sum > 100+percentEpsilon {
		return nil, apperrors.ErrPercentageExceeds
	}

	board := &models.Board{
		UserID:   userID,
		Year:     year,
		Month:    month,
		MonthKey: monthKey,
		Currency: currency,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, r := range rules {
			rule := &models.Rule{BoardID: board.ID, Name: r.Name, Percentage: r.Percentage}
			if err := tx.Create(rule).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if err := s.carryForwardFixedExpenses(tx, userID, board); err != nil {
			return err
		}

		// Board totals first, then rule allocations that read them.
		if _, err := s.RecomputeBoard(tx, board.ID); err != nil {
			return err
		}
		if err := s.rules.RecomputeBoardRules(tx, board.ID); err != nil {
			return err
		}
		if _, err := s.rules.RefreshValidity(tx, board.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetBoardByID(userID, board.ID)
}

// carryForwardFixedExpenses copies transactions flagged as fixed expenses
// from the previous month's board into the new board, re-dated into the new
// month. Rule, debt and account links are not carried: rules belong to the
// old board, and a copied row must not re-trigger payments or move balances.
func (s *boardService) carryForwardFixedExpenses(tx *gorm.DB, userID uint, board *models.Board) error {
	prevYear, prevMonth := board.Year, board.Month-1
	if prevMonth == 0 {
		prevYear, prevMonth = prevYear-1, 12
	}

	var prev models.Board
	err := tx.Where("user_id = ? AND month_key = ?", userID, models.MonthKey(prevYear, prevMonth)).
		First(&prev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var fixed []models.Transaction
	if err := tx.Where("board_id = ? AND is_fixed_expense = ? AND type = ?",
		prev.ID, true, models.TransactionTypeExpense).Find(&fixed).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	lastDay := time.Date(board.Year, time.Month(board.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	for _, t := range fixed {
		day := t.Date.Day()
		if day > lastDay {
			day = lastDay
		}
		carried := models.Transaction{
			UserID:         userID,
			Type:           t.Type,
			Amount:         t.Amount,
			Description:    t.Description,
			Date:           time.Date(board.Year, time.Month(board.Month), day, 0, 0, 0, 0, time.UTC),
			BoardID:        &board.ID,
			IsFixedExpense: true,
		}
		if err := tx.Create(&carried).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// GetUserBoards returns a paginated list of boards, newest month first.
func (s *boardService) GetUserBoards(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Board], error) {
	page.Defaults()

	base := s.db.Model(&models.Board{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var boards []models.Board
	if err := base.Preload("Rules").Scopes(pagination.Paginate(page)).
		Order("month_key DESC").Find(&boards).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(boards, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBoardByID returns a board with its rules if it belongs to the user.
func (s *boardService) GetBoardByID(userID, boardID uint) (*models.Board, error) {
	var board models.Board
	if err := s.db.Preload("Rules").Where("id = ? AND user_id = ?", boardID, userID).
		First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBoardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &board, nil
}

// DeleteBoard removes a board. Transactions and incomes tagged to it are
// detached, never deleted; the board's rules go with the board.
func (s *boardService) DeleteBoard(userID, boardID uint) error {
	board, err := s.GetBoardByID(userID, boardID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("board_id = ?", board.ID).
			Updates(map[string]interface{}{"board_id": nil, "rule_id": nil}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Income{}).Where("board_id = ?", board.ID).
			Update("board_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("board_id = ?", board.ID).Delete(&models.Rule{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(board).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// RecomputeBoard re-derives income, expense and balance from the income and
// transaction rows tagged to the board. Idempotent. Must complete before any
// rule recompute that reads the board's income.
func (s *boardService) RecomputeBoard(tx *gorm.DB, boardID uint) (*models.Board, error) {
	var board models.Board
	if err := tx.First(&board, boardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBoardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var income float64
	if err := tx.Model(&models.Income{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("board_id = ?", board.ID).
		Scan(&income).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var expense float64
	if err := tx.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("board_id = ? AND type = ?", board.ID, models.TransactionTypeExpense).
		Scan(&expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	board.Income = money.Round2(income)
	board.Expense = money.Round2(expense)
	board.Balance = money.Sub(board.Income, board.Expense)

	if err := tx.Model(&board).Updates(map[string]interface{}{
		"income":  board.Income,
		"expense": board.Expense,
		"balance": board.Balance,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &board, nil
}
