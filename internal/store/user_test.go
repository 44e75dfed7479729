// ABOUTME: Integration tests for store/user.go, signup.go, and token.go.
// ABOUTME: Uses testutil.NewTestDB; each test runs in its own container (t.Parallel).
package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/store"
	"github.com/pantharshit007/pms/internal/testutil"
)

func TestCreateAndGetUser(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice@example.com", "alice", "Alice A", "https://a.example/alice.svg", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.AccountRole != authz.AccountUser {
		t.Errorf("AccountRole = %q, want USER default", u.AccountRole)
	}
	if u.TokenVersion != 0 {
		t.Errorf("TokenVersion = %d, want 0", u.TokenVersion)
	}

	got, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail = %+v, want user %v", got, u.ID)
	}

	missing, err := s.GetUserByID(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetUserByID(missing): %v", err)
	}
	if missing != nil {
		t.Error("GetUserByID(missing) should return nil")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "dup@example.com", "dup1", "", "", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := s.CreateUser(ctx, "dup@example.com", "dup2", "", "", "hash")
	if !store.IsUniqueViolation(err) {
		t.Errorf("duplicate email should be a unique violation, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "carol@example.com", "carol", "", "", "oldhash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := s.SetResetToken(ctx, u.ID, "tokenhash", time.Now().Add(15*time.Minute)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}
	got, err := s.GetUserByResetTokenHash(ctx, "tokenhash")
	if err != nil {
		t.Fatalf("GetUserByResetTokenHash: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("lookup by reset token = %+v, want user %v", got, u.ID)
	}

	// Password update clears the token and bumps token_version.
	if err := s.UpdatePasswordHash(ctx, u.ID, "newhash"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	cleared, err := s.GetUserByResetTokenHash(ctx, "tokenhash")
	if err != nil {
		t.Fatalf("GetUserByResetTokenHash(cleared): %v", err)
	}
	if cleared != nil {
		t.Error("reset token should be cleared after password update")
	}
	fresh, _ := s.GetUserByID(ctx, u.ID)
	if fresh.TokenVersion != u.TokenVersion+1 {
		t.Errorf("TokenVersion = %d, want %d", fresh.TokenVersion, u.TokenVersion+1)
	}
	if fresh.PasswordHash != "newhash" {
		t.Errorf("PasswordHash = %q, want %q", fresh.PasswordHash, "newhash")
	}
}

func TestExpiredResetTokenNotReturned(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	u, _ := s.CreateUser(ctx, "dave@example.com", "dave", "", "", "hash")
	if err := s.SetResetToken(ctx, u.ID, "expiredhash", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}
	got, err := s.GetUserByResetTokenHash(ctx, "expiredhash")
	if err != nil {
		t.Fatalf("GetUserByResetTokenHash: %v", err)
	}
	if got != nil {
		t.Error("expired reset token should not resolve to a user")
	}
}

func TestPendingSignupUpsertReplacesRow(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	first, err := s.UpsertPendingSignup(ctx, "eve@example.com", "hash1", "sealed1", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("UpsertPendingSignup: %v", err)
	}

	// Re-requesting a code replaces the row in place.
	second, err := s.UpsertPendingSignup(ctx, "eve@example.com", "hash2", "sealed2", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("UpsertPendingSignup(again): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a new row: %v != %v", second.ID, first.ID)
	}
	if second.OTPHash != "hash2" {
		t.Errorf("OTPHash = %q, want %q", second.OTPHash, "hash2")
	}

	got, err := s.GetPendingSignup(ctx, "eve@example.com")
	if err != nil {
		t.Fatalf("GetPendingSignup: %v", err)
	}
	if got == nil || got.PayloadSealed != "sealed2" {
		t.Fatalf("GetPendingSignup = %+v, want sealed2 payload", got)
	}

	if err := s.DeletePendingSignup(ctx, "eve@example.com"); err != nil {
		t.Fatalf("DeletePendingSignup: %v", err)
	}
	gone, _ := s.GetPendingSignup(ctx, "eve@example.com")
	if gone != nil {
		t.Error("pending signup should be gone after delete")
	}
}

func TestExpiredPendingSignupNotReturned(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	if _, err := s.UpsertPendingSignup(ctx, "late@example.com", "h", "p", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("UpsertPendingSignup: %v", err)
	}
	got, err := s.GetPendingSignup(ctx, "late@example.com")
	if err != nil {
		t.Fatalf("GetPendingSignup: %v", err)
	}
	if got != nil {
		t.Error("expired pending signup should not be returned")
	}
}

func TestRefreshTokenRotationAndRevokeAll(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	u, _ := s.CreateUser(ctx, "frank@example.com", "frank", "", "", "hash")
	oldJTI, newJTI := uuid.New(), uuid.New()

	if err := s.CreateRefreshToken(ctx, oldJTI, u.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	if err := s.RotateRefreshToken(ctx, oldJTI, newJTI, u.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RotateRefreshToken: %v", err)
	}

	old, err := s.GetRefreshToken(ctx, oldJTI)
	if err != nil {
		t.Fatalf("GetRefreshToken(old): %v", err)
	}
	if old.RevokedAt == nil {
		t.Error("rotated-away token should be revoked")
	}
	if old.ReplacedByJTI == nil || *old.ReplacedByJTI != newJTI {
		t.Errorf("ReplacedByJTI = %v, want %v", old.ReplacedByJTI, newJTI)
	}

	fresh, err := s.GetRefreshToken(ctx, newJTI)
	if err != nil {
		t.Fatalf("GetRefreshToken(new): %v", err)
	}
	if fresh == nil || fresh.RevokedAt != nil {
		t.Fatalf("new token should exist and be live, got %+v", fresh)
	}

	if err := s.RevokeAllRefreshTokens(ctx, u.ID); err != nil {
		t.Fatalf("RevokeAllRefreshTokens: %v", err)
	}
	fresh, _ = s.GetRefreshToken(ctx, newJTI)
	if fresh.RevokedAt == nil {
		t.Error("RevokeAllRefreshTokens should revoke live tokens")
	}
}
