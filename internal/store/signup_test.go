// ABOUTME: Integration tests for store/signup.go (pending signups).
// ABOUTME: Uses testutil.NewTestDB; each test runs in its own container (t.Parallel).
package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/pantharshit007/pms/internal/testutil"
)

func TestPendingSignupUpsert(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	expires := time.Now().Add(10 * time.Minute)
	first, err := s.UpsertPendingSignup(ctx, "pia@example.com", "hash-1", "sealed-1", expires)
	if err != nil {
		t.Fatalf("UpsertPendingSignup: %v", err)
	}

	// Re-requesting a code replaces the previous pending row for the email.
	second, err := s.UpsertPendingSignup(ctx, "pia@example.com", "hash-2", "sealed-2", expires)
	if err != nil {
		t.Fatalf("UpsertPendingSignup(again): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert should keep one row per email, got new id %v", second.ID)
	}

	got, err := s.GetPendingSignup(ctx, "pia@example.com")
	if err != nil {
		t.Fatalf("GetPendingSignup: %v", err)
	}
	if got == nil || got.OTPHash != "hash-2" || got.PayloadSealed != "sealed-2" {
		t.Fatalf("GetPendingSignup = %+v, want the replaced row", got)
	}

	if err := s.DeletePendingSignup(ctx, "pia@example.com"); err != nil {
		t.Fatalf("DeletePendingSignup: %v", err)
	}
	gone, _ := s.GetPendingSignup(ctx, "pia@example.com")
	if gone != nil {
		t.Error("pending signup should be gone after delete")
	}
}

func TestPendingSignupExpiry(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	if _, err := s.UpsertPendingSignup(ctx, "old@example.com", "h", "p", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("UpsertPendingSignup: %v", err)
	}

	// Expired rows are invisible to lookups.
	got, err := s.GetPendingSignup(ctx, "old@example.com")
	if err != nil {
		t.Fatalf("GetPendingSignup: %v", err)
	}
	if got != nil {
		t.Error("expired pending signup should not be returned")
	}

	n, err := s.DeleteExpiredPendingSignups(ctx)
	if err != nil {
		t.Fatalf("DeleteExpiredPendingSignups: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d rows, want 1", n)
	}
}
