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

// transactionService is the cascade orchestrator: every mutating operation
// persists the transaction and re-invokes the recompute methods of the
// affected board, rules, debt and account in a fixed order, all inside one
// gorm transaction so a failing step rolls back the root mutation.
type transactionService struct {
	db       *gorm.DB
	boards   BoardServicer
	rules    RuleServicer
	debts    DebtServicer
	accounts AccountServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, boards BoardServicer, rules RuleServicer, debts DebtServicer, accounts AccountServicer) TransactionServicer {
	return &transactionService{db: db, boards: boards, rules: rules, debts: debts, accounts: accounts}
}

// recomputeBoardCascade refreshes the board aggregate and then its rules.
// Board first: rule allocation is a function of the board's income.
func (s *transactionService) recomputeBoardCascade(tx *gorm.DB, boardID uint) error {
	if _, err := s.boards.RecomputeBoard(tx, boardID); err != nil {
		return err
	}
	return s.rules.RecomputeBoardRules(tx, boardID)
}

// validateLinks checks ownership and coherence of the optional board, rule,
// debt and account references.
func (s *transactionService) validateLinks(userID uint, input TransactionInput) error {
	if input.BoardID != nil {
		if _, err := s.boards.GetBoardByID(userID, *input.BoardID); err != nil {
			return err
		}
	}
	if input.RuleID != nil {
		if input.BoardID == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "a rule link requires a board link")
		}
		var rule models.Rule
		if err := s.db.First(&rule, *input.RuleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrRuleNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if rule.BoardID != *input.BoardID {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "rule does not belong to the linked board")
		}
	}
	if input.DebtID != nil {
		if input.Type != models.TransactionTypeExpense {
			return apperrors.ErrDebtRequiresExpense
		}
		if _, err := s.debts.GetDebtByID(userID, *input.DebtID); err != nil {
			return err
		}
	}
	if input.AccountID != nil {
		if _, err := s.accounts.GetAccountByID(userID, *input.AccountID); err != nil {
			return err
		}
	}
	return nil
}

// CreateTransaction persists a transaction and runs the full cascade:
// account balance, board totals, rule allocations, and — for expense
// transactions linked to a debt — automatic payment registration.
func (s *transactionService) CreateTransaction(userID uint, input TransactionInput) (*models.Transaction, error) {
	if input.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if input.Type != models.TransactionTypeIncome && input.Type != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if err := s.validateLinks(userID, input); err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}

	transaction := &models.Transaction{
		UserID:         userID,
		Type:           input.Type,
		Amount:         money.Round2(input.Amount),
		Description:    input.Description,
		Date:           input.Date,
		BoardID:        input.BoardID,
		RuleID:         input.RuleID,
		DebtID:         input.DebtID,
		AccountID:      input.AccountID,
		IsFixedExpense: input.IsFixedExpense,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if input.AccountID != nil {
			if err := s.accounts.ApplyTransaction(tx, *input.AccountID, input.Type, transaction.Amount, false); err != nil {
				return err
			}
		}

		if input.BoardID != nil {
			if err := s.recomputeBoardCascade(tx, *input.BoardID); err != nil {
				return err
			}
		}

		if input.DebtID != nil {
			var debt models.Debt
			if err := tx.First(&debt, *input.DebtID).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if _, err := s.debts.RegisterAutoPayment(tx, &debt, transaction.Amount, transaction.Date, transaction.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// UpdateTransaction edits a transaction and re-runs the cascade for every
// aggregate the edit touches, including the board it is moving away from.
func (s *transactionService) UpdateTransaction(userID, transactionID uint, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	if update.Amount != nil && *update.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	oldBoardID := transaction.BoardID
	oldAmount := transaction.Amount

	newBoardID := oldBoardID
	if update.SetBoard {
		newBoardID = update.BoardID
	}
	newRuleID := transaction.RuleID
	if update.SetRule {
		newRuleID = update.RuleID
	}
	if update.SetBoard && newBoardID == nil {
		// Detaching from a board detaches from its rule too.
		newRuleID = nil
	}

	// Validate the resulting link set before writing anything.
	checkInput := TransactionInput{
		Type:    transaction.Type,
		BoardID: newBoardID,
		RuleID:  newRuleID,
		DebtID:  transaction.DebtID,
	}
	if err := s.validateLinks(userID, checkInput); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"board_id": newBoardID,
			"rule_id":  newRuleID,
		}
		if update.Amount != nil {
			updates["amount"] = money.Round2(*update.Amount)
		}
		if update.Description != nil {
			updates["description"] = *update.Description
		}
		if update.Date != nil {
			updates["date"] = *update.Date
		}
		if update.IsFixed != nil {
			updates["is_fixed_expense"] = *update.IsFixed
		}
		if err := tx.Model(transaction).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// Account balance: remove the old effect, apply the new amount.
		if transaction.AccountID != nil && update.Amount != nil && *update.Amount != oldAmount {
			if err := s.accounts.ApplyTransaction(tx, *transaction.AccountID, transaction.Type, oldAmount, true); err != nil {
				return err
			}
			if err := s.accounts.ApplyTransaction(tx, *transaction.AccountID, transaction.Type, money.Round2(*update.Amount), false); err != nil {
				return err
			}
		}

		// Linked auto-payment follows the transaction's amount and date.
		if transaction.DebtID != nil && (update.Amount != nil || update.Date != nil) {
			amount := transaction.Amount
			if update.Amount != nil {
				amount = money.Round2(*update.Amount)
			}
			date := transaction.Date
			if update.Date != nil {
				date = *update.Date
			}
			if err := s.debts.AdjustPaymentForTransaction(tx, transaction.ID, amount, date); err != nil {
				return err
			}
		}

		if oldBoardID != nil {
			if err := s.recomputeBoardCascade(tx, *oldBoardID); err != nil {
				return err
			}
		}
		if newBoardID != nil && (oldBoardID == nil || *oldBoardID != *newBoardID) {
			if err := s.recomputeBoardCascade(tx, *newBoardID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction removes a transaction, reversing its auto-payment and
// account effect, then refreshes the board it was tagged to.
func (s *transactionService) DeleteTransaction(userID, transactionID uint) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if transaction.DebtID != nil {
			if err := s.debts.ReversePaymentForTransaction(tx, transaction.ID); err != nil {
				return err
			}
		}
		if transaction.AccountID != nil {
			if err := s.accounts.ApplyTransaction(tx, *transaction.AccountID, transaction.Type, transaction.Amount, true); err != nil {
				return err
			}
		}
		if err := tx.Delete(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if transaction.BoardID != nil {
			return s.recomputeBoardCascade(tx, *transaction.BoardID)
		}
		return nil
	})
}

// GetUserTransactions retrieves a paginated, filtered list of transactions.
func (s *transactionService) GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.BoardID != nil {
		q = q.Where("board_id = ?", *f.BoardID)
	}
	if f.RuleID != nil {
		q = q.Where("rule_id = ?", *f.RuleID)
	}
	if f.DebtID != nil {
		q = q.Where("debt_id = ?", *f.DebtID)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user.
func (s *transactionService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}
