package services

import (
	"testing"

	"plata/internal/models"
	"plata/internal/testutil"
)

func TestCreateRule(t *testing.T) {
	t.Run("fourth_rule_within_headroom", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		user := testutil.CreateTestUser(t, db)

		board, err := boardSvc.CreateBoard(user.ID, 2026, 3, "COP", []RuleInput{
			{Name: "Necesidades", Percentage: 50},
			{Name: "Deseos", Percentage: 20},
			{Name: "Ahorro", Percentage: 20},
		})
		testutil.AssertNoError(t, err)

		rule, validity, err := ruleSvc.CreateRule(user.ID, board.ID, "Inversión", 10)
		testutil.AssertNoError(t, err)
		if rule.Percentage != 10 {
			t.Errorf("expected percentage 10, got %v", rule.Percentage)
		}
		if !validity.IsValid {
			t.Errorf("expected valid rule set at 100%%, got %+v", validity)
		}
		if validity.RuleCount != 4 {
			t.Errorf("expected 4 rules, got %d", validity.RuleCount)
		}
	})

	t.Run("fourth_rule_over_100_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		user := testutil.CreateTestUser(t, db)

		// Default 50/30/20 seeding leaves no headroom.
		board, err := boardSvc.CreateBoard(user.ID, 2026, 4, "COP", nil)
		testutil.AssertNoError(t, err)

		_, _, err = ruleSvc.CreateRule(user.ID, board.ID, "Extra", 10)
		testutil.AssertAppError(t, err, "PERCENTAGE_EXCEEDS")
	})

	t.Run("fifth_rule_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		user := testutil.CreateTestUser(t, db)

		board, err := boardSvc.CreateBoard(user.ID, 2026, 5, "COP", []RuleInput{
			{Name: "A", Percentage: 10},
			{Name: "B", Percentage: 10},
			{Name: "C", Percentage: 10},
			{Name: "D", Percentage: 10},
		})
		testutil.AssertNoError(t, err)

		_, _, err = ruleSvc.CreateRule(user.ID, board.ID, "E", 10)
		testutil.AssertAppError(t, err, "RULE_LIMIT_REACHED")
	})

	t.Run("allocation_follows_board_income", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		incomeSvc := NewIncomeService(db, boardSvc, ruleSvc)
		user := testutil.CreateTestUser(t, db)

		board, err := boardSvc.CreateBoard(user.ID, 2026, 6, "COP", nil)
		testutil.AssertNoError(t, err)

		_, err = incomeSvc.CreateIncome(user.ID, &board.ID, 2000000, "Salario", "Empresa", board.CreatedAt)
		testutil.AssertNoError(t, err)

		rules, _, err := ruleSvc.GetBoardRules(user.ID, board.ID)
		testutil.AssertNoError(t, err)
		if len(rules) != 3 {
			t.Fatalf("expected 3 seeded rules, got %d", len(rules))
		}
		// 50/30/20 of 2,000,000.
		testutil.AssertMoneyEqual(t, 1000000, rules[0].AllocatedAmount, "necesidades")
		testutil.AssertMoneyEqual(t, 600000, rules[1].AllocatedAmount, "deseos")
		testutil.AssertMoneyEqual(t, 400000, rules[2].AllocatedAmount, "ahorro")
	})
}

func TestUpdateRule(t *testing.T) {
	t.Run("sum_check_excludes_self", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		user := testutil.CreateTestUser(t, db)

		board, err := boardSvc.CreateBoard(user.ID, 2026, 7, "COP", nil)
		testutil.AssertNoError(t, err)
		rules, _, err := ruleSvc.GetBoardRules(user.ID, board.ID)
		testutil.AssertNoError(t, err)

		// Raising 50 to 50 again must pass even though the total is 100.
		pct := 50.0
		_, validity, err := ruleSvc.UpdateRule(user.ID, rules[0].ID, "", &pct)
		testutil.AssertNoError(t, err)
		if !validity.IsValid {
			t.Errorf("expected valid at 100%%, got %+v", validity)
		}

		// Raising it past the headroom fails.
		pct = 60
		_, _, err = ruleSvc.UpdateRule(user.ID, rules[0].ID, "", &pct)
		testutil.AssertAppError(t, err, "PERCENTAGE_EXCEEDS")
	})

	t.Run("lowering_marks_board_invalid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		user := testutil.CreateTestUser(t, db)

		board, err := boardSvc.CreateBoard(user.ID, 2026, 8, "COP", nil)
		testutil.AssertNoError(t, err)
		rules, _, err := ruleSvc.GetBoardRules(user.ID, board.ID)
		testutil.AssertNoError(t, err)

		pct := 40.0
		_, validity, err := ruleSvc.UpdateRule(user.ID, rules[0].ID, "", &pct)
		testutil.AssertNoError(t, err)
		if validity.IsValid {
			t.Errorf("expected invalid at 90%%, got %+v", validity)
		}

		// Advisory only: the board still reads fine.
		reloaded, err := boardSvc.GetBoardByID(user.ID, board.ID)
		testutil.AssertNoError(t, err)
		if reloaded.IsValid {
			t.Errorf("expected persisted is_valid false")
		}
		testutil.AssertMoneyEqual(t, 90, reloaded.TotalPercentage, "total percentage")
	})
}

func TestDeleteRule(t *testing.T) {
	t.Run("minimum_two_rules_enforced", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		user := testutil.CreateTestUser(t, db)

		board, err := boardSvc.CreateBoard(user.ID, 2026, 9, "COP", nil)
		testutil.AssertNoError(t, err)
		rules, _, err := ruleSvc.GetBoardRules(user.ID, board.ID)
		testutil.AssertNoError(t, err)

		_, err = ruleSvc.DeleteRule(user.ID, rules[0].ID)
		testutil.AssertNoError(t, err)

		_, err = ruleSvc.DeleteRule(user.ID, rules[1].ID)
		testutil.AssertAppError(t, err, "RULE_MINIMUM")
	})

	t.Run("detaches_tagged_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		user := testutil.CreateTestUser(t, db)

		board, err := boardSvc.CreateBoard(user.ID, 2026, 10, "COP", nil)
		testutil.AssertNoError(t, err)
		rules, _, err := ruleSvc.GetBoardRules(user.ID, board.ID)
		testutil.AssertNoError(t, err)

		tagged := testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, 10000, &board.ID, &rules[0].ID)

		_, err = ruleSvc.DeleteRule(user.ID, rules[0].ID)
		testutil.AssertNoError(t, err)

		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, tagged.ID).Error)
		if reloaded.RuleID != nil {
			t.Errorf("expected rule link cleared, got %v", *reloaded.RuleID)
		}
		if reloaded.BoardID == nil {
			t.Errorf("board link must survive rule deletion")
		}
	})
}

func TestRecomputeRule(t *testing.T) {
	t.Run("available_never_negative", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		incomeSvc := NewIncomeService(db, boardSvc, ruleSvc)
		txSvc := NewTransactionService(db, boardSvc, ruleSvc, NewDebtService(db), NewAccountService(db))
		user := testutil.CreateTestUser(t, db)

		board, err := boardSvc.CreateBoard(user.ID, 2026, 11, "COP", nil)
		testutil.AssertNoError(t, err)
		_, err = incomeSvc.CreateIncome(user.ID, &board.ID, 100000, "", "", board.CreatedAt)
		testutil.AssertNoError(t, err)

		rules, _, err := ruleSvc.GetBoardRules(user.ID, board.ID)
		testutil.AssertNoError(t, err)
		ahorro := rules[2] // 20% => 20,000 allocated

		// Overspend the envelope.
		_, err = txSvc.CreateTransaction(user.ID, TransactionInput{
			Type:    models.TransactionTypeExpense,
			Amount:  50000,
			BoardID: &board.ID,
			RuleID:  &ahorro.ID,
		})
		testutil.AssertNoError(t, err)

		rules, _, err = ruleSvc.GetBoardRules(user.ID, board.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertMoneyEqual(t, 50000, rules[2].SpentAmount, "spent")
		testutil.AssertMoneyEqual(t, 0, rules[2].AvailableAmount, "available clamps at zero")
	})

	t.Run("idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ruleSvc := NewRuleService(db)
		boardSvc := NewBoardService(db, ruleSvc)
		incomeSvc := NewIncomeService(db, boardSvc, ruleSvc)
		user := testutil.CreateTestUser(t, db)

		board, err := boardSvc.CreateBoard(user.ID, 2026, 12, "COP", nil)
		testutil.AssertNoError(t, err)
		_, err = incomeSvc.CreateIncome(user.ID, &board.ID, 300000, "", "", board.CreatedAt)
		testutil.AssertNoError(t, err)

		rules, _, err := ruleSvc.GetBoardRules(user.ID, board.ID)
		testutil.AssertNoError(t, err)

		first, err := ruleSvc.RecomputeRule(db, rules[0].ID)
		testutil.AssertNoError(t, err)
		second, err := ruleSvc.RecomputeRule(db, rules[0].ID)
		testutil.AssertNoError(t, err)

		if first.AllocatedAmount != second.AllocatedAmount ||
			first.SpentAmount != second.SpentAmount ||
			first.AvailableAmount != second.AvailableAmount {
			t.Errorf("recompute not idempotent: %+v vs %+v", first, second)
		}
	})
}
