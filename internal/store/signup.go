// ABOUTME: Store methods for unverified registrations awaiting OTP confirmation.
// ABOUTME: One pending row per email; re-requesting a code replaces the previous row.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PendingSignup is an unverified registration. PayloadSealed carries the
// AES-GCM sealed profile fields and password hash until the OTP is confirmed.
type PendingSignup struct {
	ID            uuid.UUID
	Email         string
	OTPHash       string
	PayloadSealed string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// UpsertPendingSignup creates or replaces the pending signup for email. A
// replaced row gets a fresh OTP hash, payload, and expiry, invalidating any
// previously emailed code.
func (s *Store) UpsertPendingSignup(ctx context.Context, email, otpHash, payloadSealed string, expiresAt time.Time) (*PendingSignup, error) {
	var p PendingSignup
	err := s.pool.QueryRow(ctx, `
		INSERT INTO pending_signups (email, otp_hash, payload_sealed, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET otp_hash = EXCLUDED.otp_hash,
		    payload_sealed = EXCLUDED.payload_sealed,
		    expires_at = EXCLUDED.expires_at,
		    created_at = now()
		RETURNING id, email, otp_hash, payload_sealed, expires_at, created_at`,
		email, otpHash, payloadSealed, expiresAt,
	).Scan(&p.ID, &p.Email, &p.OTPHash, &p.PayloadSealed, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert pending signup: %w", err)
	}
	return &p, nil
}

// GetPendingSignup returns the unexpired pending signup for email, or
// (nil, nil) if none exists.
func (s *Store) GetPendingSignup(ctx context.Context, email string) (*PendingSignup, error) {
	var p PendingSignup
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, otp_hash, payload_sealed, expires_at, created_at
		FROM pending_signups
		WHERE email = $1 AND expires_at > now()`, email,
	).Scan(&p.ID, &p.Email, &p.OTPHash, &p.PayloadSealed, &p.ExpiresAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending signup: %w", err)
	}
	return &p, nil
}

// DeletePendingSignup removes the pending signup for email, if any.
func (s *Store) DeletePendingSignup(ctx context.Context, email string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM pending_signups WHERE email = $1`, email); err != nil {
		return fmt.Errorf("delete pending signup: %w", err)
	}
	return nil
}

// DeleteExpiredPendingSignups removes signups whose OTP expired more than an
// hour ago. Returns the number of rows deleted.
func (s *Store) DeleteExpiredPendingSignups(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM pending_signups WHERE expires_at < now() - interval '1 hour'`)
	if err != nil {
		return 0, fmt.Errorf("delete expired pending signups: %w", err)
	}
	return tag.RowsAffected(), nil
}
