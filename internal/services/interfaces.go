package services

import (
	"time"

	"gorm.io/gorm"

	"plata/internal/models"
	"plata/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// RuleInput describes a rule supplied at board creation time.
type RuleInput struct {
	Name       string  `json:"name" binding:"required,min=1,max=100"`
	Percentage float64 `json:"percentage" binding:"required,gt=0,lte=100"`
}

// BoardValidity is the advisory state of a board's rule set, returned to the
// caller after every rule mutation. A board is allowed to persist with a
// percentage sum != 100; IsValid only reports it.
type BoardValidity struct {
	BoardID         uint    `json:"board_id"`
	RuleCount       int     `json:"rule_count"`
	TotalPercentage float64 `json:"total_percentage"`
	IsValid         bool    `json:"is_valid"`
}

// BoardServicer defines the contract for budget board business logic.
type BoardServicer interface {
	CreateBoard(userID uint, year, month int, currency string, rules []RuleInput) (*models.Board, error)
	GetUserBoards(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Board], error)
	GetBoardByID(userID, boardID uint) (*models.Board, error)
	DeleteBoard(userID, boardID uint) error
	// RecomputeBoard re-derives income/expense/balance from the income and
	// transaction rows tagged to the board. It must run before any rule
	// recompute that reads the board's income.
	RecomputeBoard(tx *gorm.DB, boardID uint) (*models.Board, error)
}

// RuleServicer defines the contract for rule allocation business logic.
type RuleServicer interface {
	CreateRule(userID, boardID uint, name string, percentage float64) (*models.Rule, *BoardValidity, error)
	UpdateRule(userID, ruleID uint, name string, percentage *float64) (*models.Rule, *BoardValidity, error)
	DeleteRule(userID, ruleID uint) (*BoardValidity, error)
	GetBoardRules(userID, boardID uint) ([]models.Rule, *BoardValidity, error)
	// RecomputeRule re-reads the parent board's income and re-sums the
	// expense transactions tagged with the rule.
	RecomputeRule(tx *gorm.DB, ruleID uint) (*models.Rule, error)
	// RecomputeBoardRules recomputes every rule of a board, in rule order.
	RecomputeBoardRules(tx *gorm.DB, boardID uint) error
	// RefreshValidity re-derives the board's rule count / percentage sum
	// advisory state and persists it on the board row.
	RefreshValidity(tx *gorm.DB, boardID uint) (*BoardValidity, error)
}

// IncomeServicer defines the contract for income business logic.
type IncomeServicer interface {
	CreateIncome(userID uint, boardID *uint, amount float64, description, source string, date time.Time) (*models.Income, error)
	UpdateIncome(userID, incomeID uint, amount *float64, description *string, date *time.Time) (*models.Income, error)
	AssignToBoard(userID, incomeID uint, boardID *uint) (*models.Income, error)
	DeleteIncome(userID, incomeID uint) error
	GetUserIncomes(userID uint, page pagination.PageRequest, unassignedOnly bool) (*pagination.PageResponse[models.Income], error)
	GetIncomeByID(userID, incomeID uint) (*models.Income, error)
}

// TransactionInput carries the caller-supplied fields for a new transaction.
type TransactionInput struct {
	Type           models.TransactionType
	Amount         float64
	Description    string
	Date           time.Time
	BoardID        *uint
	RuleID         *uint
	DebtID         *uint
	AccountID      *uint
	IsFixedExpense bool
}

// TransactionUpdate carries optional fields for editing a transaction.
// Nil pointers leave the current value untouched; SetBoard/SetRule allow
// explicitly clearing the board or rule link.
type TransactionUpdate struct {
	Amount      *float64
	Description *string
	Date        *time.Time
	BoardID     *uint
	SetBoard    bool
	RuleID      *uint
	SetRule     bool
	IsFixed     *bool
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Type     *models.TransactionType
	BoardID  *uint
	RuleID   *uint
	DebtID   *uint
}

// TransactionServicer defines the contract for transaction business logic,
// including the recompute cascade triggered by every mutation.
type TransactionServicer interface {
	CreateTransaction(userID uint, input TransactionInput) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID uint, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
}

// DebtInput carries the caller-supplied fields for creating a debt. Any
// subset of TotalAmount / InstallmentCount / FixedInstallment may be given;
// the service derives the rest.
type DebtInput struct {
	Name             string
	Creditor         string
	TotalAmount      *float64
	InstallmentCount *int
	FixedInstallment *float64
	InterestRate     float64
	DueDay           int
}

// DebtServicer defines the contract for debt amortization and payment
// reconciliation.
type DebtServicer interface {
	CreateDebt(userID uint, input DebtInput) (*models.Debt, error)
	UpdateDebt(userID, debtID uint, input DebtInput) (*models.Debt, error)
	DeleteDebt(userID, debtID uint) error
	GetUserDebts(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Debt], error)
	GetDebtByID(userID, debtID uint) (*models.Debt, error)
	// EffectiveState derives the read-time state (may report overdue).
	EffectiveState(debt *models.Debt, now time.Time) (models.DebtState, error)

	RegisterPayment(userID, debtID uint, amount float64, installmentNumber *int, date *time.Time) (*models.Payment, error)
	// RegisterAutoPayment is invoked by the transaction cascade inside an
	// open gorm transaction. It scans forward past settled installment
	// numbers instead of failing, and links the payment to its transaction.
	RegisterAutoPayment(tx *gorm.DB, debt *models.Debt, amount float64, date time.Time, transactionID uint) (*models.Payment, error)
	DeletePayment(userID, paymentID uint) error
	// ReversePaymentForTransaction undoes the auto-payment linked to a
	// transaction, if any. Used when a debt-linked transaction is deleted.
	ReversePaymentForTransaction(tx *gorm.DB, transactionID uint) error
	// AdjustPaymentForTransaction amends the auto-payment linked to a
	// transaction after the transaction's amount or date changed, moving
	// the debt balances by the difference.
	AdjustPaymentForTransaction(tx *gorm.DB, transactionID uint, newAmount float64, newDate time.Time) error
	GetDebtPayments(userID, debtID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Payment], error)
}

// AccountServicer defines the contract for cash-equivalent accounts.
type AccountServicer interface {
	CreateAccount(userID uint, name, currency string, initialBalance float64) (*models.Account, error)
	GetUserAccounts(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID uint) (*models.Account, error)
	UpdateAccount(userID, accountID uint, name *string, isActive *bool) (*models.Account, error)
	// ApplyTransaction adjusts the account balance for a transaction within
	// an open gorm transaction. reverse undoes a previous application.
	ApplyTransaction(tx *gorm.DB, accountID uint, transactionType models.TransactionType, amount float64, reverse bool) error
}

// AssetServicer defines the contract for asset business logic.
type AssetServicer interface {
	CreateAsset(userID uint, name string, assetType models.AssetType, value float64, currency, notes string) (*models.Asset, error)
	GetUserAssets(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error)
	GetAssetByID(userID, assetID uint) (*models.Asset, error)
	UpdateAsset(userID, assetID uint, name *string, value *float64, notes *string) (*models.Asset, error)
	DeleteAsset(userID, assetID uint) error
}

// NetWorthSummary is the breakdown returned by the net worth calculator.
type NetWorthSummary struct {
	Assets       float64                      `json:"assets"`
	AssetsByType map[models.AssetType]float64 `json:"assets_by_type"`
	Accounts     float64                      `json:"accounts"`
	Debts        float64                      `json:"debts"`
	NetWorth     float64                      `json:"net_worth"`
}

// ScoreFactor is one bounded component of the financial score.
type ScoreFactor struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
	Max    float64 `json:"max"`
}

// FinancialScore is the advisory score computed on read, never cached.
type FinancialScore struct {
	Score   float64       `json:"score"`
	Grade   string        `json:"grade"`
	Factors []ScoreFactor `json:"factors"`
}

// InsightsServicer defines the contract for read-only aggregations. It
// consumes the other aggregates and mutates nothing.
type InsightsServicer interface {
	NetWorth(userID uint) (*NetWorthSummary, error)
	Score(userID uint, now time.Time) (*FinancialScore, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
