package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"plata/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestBoard creates a bare board for the given month without rules.
func CreateTestBoard(t *testing.T, db *gorm.DB, userID uint, year, month int) *models.Board {
	t.Helper()

	board := &models.Board{
		UserID:   userID,
		Year:     year,
		Month:    month,
		MonthKey: models.MonthKey(year, month),
		Currency: "COP",
	}
	if err := db.Create(board).Error; err != nil {
		t.Fatalf("failed to create test board: %v", err)
	}
	return board
}

// CreateTestRule attaches a rule to a board.
func CreateTestRule(t *testing.T, db *gorm.DB, boardID uint, name string, percentage float64) *models.Rule {
	t.Helper()

	rule := &models.Rule{
		BoardID:    boardID,
		Name:       name,
		Percentage: percentage,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test rule: %v", err)
	}
	return rule
}

// CreateTestIncome records an income, optionally assigned to a board.
func CreateTestIncome(t *testing.T, db *gorm.DB, userID uint, boardID *uint, amount float64) *models.Income {
	t.Helper()

	income := &models.Income{
		UserID:  userID,
		BoardID: boardID,
		Amount:  amount,
		Source:  fmt.Sprintf("Source %d", nextID()),
		Date:    time.Now(),
	}
	if err := db.Create(income).Error; err != nil {
		t.Fatalf("failed to create test income: %v", err)
	}
	return income
}

// CreateTestTransaction records a transaction row directly, bypassing the
// cascade. Tests exercising the cascade should go through the service.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID uint, txType models.TransactionType, amount float64, boardID, ruleID *uint) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: fmt.Sprintf("Transaction %d", nextID()),
		Date:        time.Now(),
		BoardID:     boardID,
		RuleID:      ruleID,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestDebt creates an amortizing debt with a derived installment.
func CreateTestDebt(t *testing.T, db *gorm.DB, userID uint, total float64, count int) *models.Debt {
	t.Helper()

	installment := total / float64(count)
	debt := &models.Debt{
		UserID:            userID,
		Name:              fmt.Sprintf("Debt %d", nextID()),
		TotalAmount:       &total,
		InstallmentCount:  &count,
		InstallmentAmount: installment,
		PendingBalance:    total,
		State:             models.DebtStateActive,
	}
	if err := db.Create(debt).Error; err != nil {
		t.Fatalf("failed to create test debt: %v", err)
	}
	return debt
}

// CreateTestAccount creates an active account with the given balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID uint, balance float64) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:   userID,
		Name:     fmt.Sprintf("Account %d", nextID()),
		Balance:  balance,
		Currency: "COP",
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestAsset creates an asset of the given type and value.
func CreateTestAsset(t *testing.T, db *gorm.DB, userID uint, assetType models.AssetType, value float64) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		UserID:   userID,
		Name:     fmt.Sprintf("Asset %d", nextID()),
		Type:     assetType,
		Value:    value,
		Currency: "COP",
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}
