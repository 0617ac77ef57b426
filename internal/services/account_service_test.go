package services

import (
	"testing"

	"plata/internal/models"
	"plata/internal/pagination"
	"plata/internal/testutil"
)

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestCreateAccount(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		account, err := svc.CreateAccount(user.ID, "Nómina", "COP", 1500000.555)
		testutil.AssertNoError(t, err)

		if !account.IsActive {
			t.Error("expected new account to be active")
		}
		// Balance is rounded to cents on the way in.
		testutil.AssertMoneyEqual(t, 1500000.56, account.Balance, "initial balance")
	})
}

func TestApplyTransaction(t *testing.T) {
	t.Run("income_credits_expense_debits", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, 1000000)

		testutil.AssertNoError(t, svc.ApplyTransaction(db, account.ID, models.TransactionTypeIncome, 250000, false))
		testutil.AssertNoError(t, svc.ApplyTransaction(db, account.ID, models.TransactionTypeExpense, 100000, false))

		reloaded, err := svc.GetAccountByID(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertMoneyEqual(t, 1150000, reloaded.Balance, "balance after credit and debit")
	})

	t.Run("reverse_undoes_application", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, 500000)

		testutil.AssertNoError(t, svc.ApplyTransaction(db, account.ID, models.TransactionTypeExpense, 200000, false))
		testutil.AssertNoError(t, svc.ApplyTransaction(db, account.ID, models.TransactionTypeExpense, 200000, true))

		reloaded, err := svc.GetAccountByID(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertMoneyEqual(t, 500000, reloaded.Balance, "balance after reversal")
	})

	t.Run("unknown_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)

		err := svc.ApplyTransaction(db, 9999, models.TransactionTypeIncome, 100, false)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("invalid_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, 0)

		err := svc.ApplyTransaction(db, account.ID, models.TransactionType("transfer"), 100, false)
		testutil.AssertAppError(t, err, "INVALID_TRANSACTION_TYPE")
	})
}

func TestUpdateAccount(t *testing.T) {
	t.Run("rename_and_deactivate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, 300000)

		updated, err := svc.UpdateAccount(user.ID, account.ID, strPtr("Ahorros"), boolPtr(false))
		testutil.AssertNoError(t, err)
		if updated.Name != "Ahorros" {
			t.Errorf("expected renamed account, got %q", updated.Name)
		}
		if updated.IsActive {
			t.Error("expected account deactivated")
		}
		// Balance untouched by metadata updates.
		testutil.AssertMoneyEqual(t, 300000, updated.Balance, "balance")
	})

	t.Run("nil_fields_are_no_ops", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, 0)

		updated, err := svc.UpdateAccount(user.ID, account.ID, nil, nil)
		testutil.AssertNoError(t, err)
		if updated.Name != account.Name {
			t.Errorf("expected name unchanged, got %q", updated.Name)
		}
	})
}

func TestGetAccountByID(t *testing.T) {
	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user1.ID, 100000)

		_, err := svc.GetAccountByID(user2.ID, account.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestGetUserAccounts(t *testing.T) {
	t.Run("paginated_and_scoped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)

		for i := 0; i < 3; i++ {
			testutil.CreateTestAccount(t, db, user1.ID, 100000)
		}
		testutil.CreateTestAccount(t, db, user2.ID, 999999)

		result, err := svc.GetUserAccounts(user1.ID, pagination.PageRequest{Page: 1, PageSize: 2})
		testutil.AssertNoError(t, err)
		if len(result.Data) != 2 {
			t.Errorf("expected 2 accounts on page, got %d", len(result.Data))
		}
		if result.TotalItems != 3 {
			t.Errorf("expected 3 total accounts, got %d", result.TotalItems)
		}
	})
}
