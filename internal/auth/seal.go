// ABOUTME: AES-256-GCM sealing for pending-signup payloads held in the database.
// ABOUTME: Password hashes for unverified accounts are never stored in the clear.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// SealKeySize is the required AES-256 key length in bytes.
const SealKeySize = 32

var errSealKeyLength = errors.New("seal key must be 32 bytes")

// DecodeSealKey decodes a base64 seal key from configuration and checks its length.
func DecodeSealKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode seal key: %w", err)
	}
	if len(key) != SealKeySize {
		return nil, errSealKeyLength
	}
	return key, nil
}

// Seal encrypts plaintext with AES-256-GCM and returns nonce||ciphertext
// as a base64 string.
func Seal(plaintext []byte, key []byte) (string, error) {
	if len(key) != SealKeySize {
		return "", errSealKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a base64 nonce||ciphertext string produced by Seal.
func Open(sealed string, key []byte) ([]byte, error) {
	if len(key) != SealKeySize {
		return nil, errSealKeyLength
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("open sealed payload: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("open sealed payload: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("open sealed payload: %w", err)
	}
	if len(raw) < gcm.NonceSize() {
		return nil, errors.New("open sealed payload: ciphertext too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed payload: %w", err)
	}
	return plaintext, nil
}
