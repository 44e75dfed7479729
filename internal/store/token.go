// ABOUTME: Store methods for the refresh token chain keyed by JTI.
// ABOUTME: Rotation marks the old row revoked and records its replacement for theft detection.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RefreshToken is one issued refresh token's server-side state.
type RefreshToken struct {
	JTI           uuid.UUID
	UserID        uuid.UUID
	IssuedAt      time.Time
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	ReplacedByJTI *uuid.UUID
}

// CreateRefreshToken inserts a new refresh token row.
func (s *Store) CreateRefreshToken(ctx context.Context, jti, userID uuid.UUID, expiresAt time.Time) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (jti, user_id, expires_at)
		VALUES ($1, $2, $3)`,
		jti, userID, expiresAt); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken returns the refresh token for the given JTI, or (nil, nil)
// if not found.
func (s *Store) GetRefreshToken(ctx context.Context, jti uuid.UUID) (*RefreshToken, error) {
	var t RefreshToken
	err := s.pool.QueryRow(ctx, `
		SELECT jti, user_id, issued_at, expires_at, revoked_at, replaced_by_jti
		FROM refresh_tokens WHERE jti = $1`, jti,
	).Scan(&t.JTI, &t.UserID, &t.IssuedAt, &t.ExpiresAt, &t.RevokedAt, &t.ReplacedByJTI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &t, nil
}

// RotateRefreshToken revokes the old JTI, records its replacement, and
// inserts the new token row in one transaction.
func (s *Store) RotateRefreshToken(ctx context.Context, oldJTI, newJTI, userID uuid.UUID, expiresAt time.Time) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = now(), replaced_by_jti = $2
			WHERE jti = $1 AND revoked_at IS NULL`,
			oldJTI, newJTI); err != nil {
			return fmt.Errorf("revoke old token: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO refresh_tokens (jti, user_id, expires_at)
			VALUES ($1, $2, $3)`,
			newJTI, userID, expiresAt); err != nil {
			return fmt.Errorf("insert new token: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return nil
}

// RevokeRefreshToken revokes a single token (logout).
func (s *Store) RevokeRefreshToken(ctx context.Context, jti uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE jti = $1 AND revoked_at IS NULL`, jti); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllRefreshTokens revokes every live token for a user. Used when
// refresh token theft is detected and on logout-all.
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL`, userID); err != nil {
		return fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshTokens removes tokens expired more than 60 seconds ago.
// Returns the number of rows deleted.
func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < now() - interval '60 seconds'`)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
