// ABOUTME: One-time code and reset token generation for the signup and password flows.
// ABOUTME: Only sha256 hex digests are stored; raw values go out by email exactly once.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// OTPDigits is the length of signup verification codes.
const OTPDigits = 6

// GenerateOTP creates a random 6-digit verification code. Returns the raw code
// (emailed to the user once) and the sha256 hex hash (stored in DB).
func GenerateOTP() (rawCode, codeHash string, err error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", "", fmt.Errorf("generate otp: %w", err)
	}
	n := binary.BigEndian.Uint64(b[:]) % 1000000
	rawCode = fmt.Sprintf("%06d", n)
	return rawCode, HashToken(rawCode), nil
}

// GenerateResetToken creates a password reset token. Returns the raw token
// (embedded in the reset link) and the sha256 hex hash (stored in DB).
func GenerateResetToken() (rawToken, tokenHash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	rawToken = hex.EncodeToString(b)
	return rawToken, HashToken(rawToken), nil
}

// HashToken returns the sha256 hex hash of raw.
// Use subtle.ConstantTimeCompare when comparing against stored hashes.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
