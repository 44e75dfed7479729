// ABOUTME: Tests for OTP and reset token generation and hashing.
// ABOUTME: Covers digit count, hash length, uniqueness, and HashToken consistency.
package auth_test

import (
	"testing"

	"github.com/pantharshit007/pms/internal/auth"
)

func TestGenerateOTP(t *testing.T) {
	t.Parallel()
	code, hash, err := auth.GenerateOTP()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != auth.OTPDigits {
		t.Errorf("code should be %d digits, got %q", auth.OTPDigits, code)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Errorf("code contains non-digit %q", code)
		}
	}
	if len(hash) != 64 {
		t.Errorf("hash should be 64 hex chars (sha256), got %d", len(hash))
	}
	if auth.HashToken(code) != hash {
		t.Error("HashToken(code) should match hash from GenerateOTP")
	}
}

func TestGenerateResetToken(t *testing.T) {
	t.Parallel()
	token, hash, err := auth.GenerateResetToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token should be 64 hex chars (32 bytes), got %d", len(token))
	}
	if auth.HashToken(token) != hash {
		t.Error("HashToken(token) should match hash from GenerateResetToken")
	}
}

func TestGenerateResetTokenUnique(t *testing.T) {
	t.Parallel()
	token1, _, err := auth.GenerateResetToken()
	if err != nil {
		t.Fatalf("generate 1: %v", err)
	}
	token2, _, err := auth.GenerateResetToken()
	if err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if token1 == token2 {
		t.Error("two generated tokens should differ")
	}
}
