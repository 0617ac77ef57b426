package services

import (
	"testing"

	"plata/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	t.Run("hashes_password", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("ana@example.com", "secreto123", "Ana", "Gómez")
		testutil.AssertNoError(t, err)

		if user.Password == "secreto123" {
			t.Error("password stored in plaintext")
		}
		if !svc.VerifyPassword(user, "secreto123") {
			t.Error("stored hash does not verify")
		}
		if svc.VerifyPassword(user, "otra") {
			t.Error("wrong password verified")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("dup@example.com", "secreto123", "", "")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser("dup@example.com", "secreto123", "", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})
}

func TestAttemptLogin(t *testing.T) {
	t.Run("valid_credentials", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		created, err := svc.CreateUser("login@example.com", "secreto123", "", "")
		testutil.AssertNoError(t, err)

		user, err := svc.AttemptLogin("login@example.com", "secreto123")
		testutil.AssertNoError(t, err)
		if user.ID != created.ID {
			t.Errorf("expected user %d, got %d", created.ID, user.ID)
		}
		if user.LastLoginAt == nil {
			t.Error("expected last login timestamp recorded")
		}
	})

	t.Run("wrong_password_indistinguishable_from_unknown_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("known@example.com", "secreto123", "", "")
		testutil.AssertNoError(t, err)

		_, err = svc.AttemptLogin("known@example.com", "mala")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")

		_, err = svc.AttemptLogin("desconocido@example.com", "secreto123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("inactive_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("inactivo@example.com", "secreto123", "", "")
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, db.Model(user).Update("is_active", false).Error)

		_, err = svc.AttemptLogin("inactivo@example.com", "secreto123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestRefreshTokenHash(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("token@example.com", "secreto123", "", "")
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "abc123"))

		hash, err := svc.GetRefreshTokenHash(user.ID)
		testutil.AssertNoError(t, err)
		if hash != "abc123" {
			t.Errorf("expected stored hash, got %q", hash)
		}
	})
}
