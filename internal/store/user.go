// ABOUTME: Store methods for user accounts: creation, lookup, password and reset token state.
// ABOUTME: Lookup methods return (nil, nil) when no row matches.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pantharshit007/pms/internal/authz"
)

// User is a registered, verified account.
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	FullName     string
	AvatarURL    string
	PasswordHash string
	AccountRole  authz.AccountRole
	TokenVersion int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const userColumns = `id, email, username, full_name, avatar_url, password_hash, account_role, token_version, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.AvatarURL,
		&u.PasswordHash, &u.AccountRole, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new verified user row. Returns the created user.
// A unique violation on email or username surfaces as IsUniqueViolation.
func (s *Store) CreateUser(ctx context.Context, email, username, fullName, avatarURL, passwordHash string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, full_name, avatar_url, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		email, username, fullName, avatarURL, passwordHash))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUserByID returns the user with the given ID, or (nil, nil) if not found.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the user with the given email, or (nil, nil) if not found.
// SECURITY: call only from auth flows — never from member-management endpoints
// without an exact-match invite context.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns the user with the given username, or (nil, nil)
// if not found. Used to pre-check username availability during signup.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// UpdateUserProfile updates full_name and avatar_url for the given user.
func (s *Store) UpdateUserProfile(ctx context.Context, id uuid.UUID, fullName, avatarURL string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET full_name = $2, avatar_url = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, fullName, avatarURL))
	if err != nil {
		return nil, fmt.Errorf("update user profile: %w", err)
	}
	return u, nil
}

// UpdateAccountRole changes a user's account-wide role.
func (s *Store) UpdateAccountRole(ctx context.Context, id uuid.UUID, role authz.AccountRole) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE users SET account_role = $2, updated_at = now() WHERE id = $1`,
		id, role); err != nil {
		return fmt.Errorf("update account role: %w", err)
	}
	return nil
}

// IncrementTokenVersion increments token_version and returns the new value.
// Used by logout-all to immediately invalidate all outstanding refresh tokens.
func (s *Store) IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error) {
	var v int
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET token_version = token_version + 1, updated_at = now()
		 WHERE id = $1 RETURNING token_version`, id).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("increment token version: %w", err)
	}
	return v, nil
}

// UpdatePasswordHash replaces the password hash, clears any pending reset
// token, and bumps token_version so all active sessions must re-login.
func (s *Store) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2,
		    reset_token_hash = NULL,
		    reset_token_expires_at = NULL,
		    token_version = token_version + 1,
		    updated_at = now()
		WHERE id = $1`,
		id, passwordHash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

// SetResetToken stores a new reset token hash and expiry, replacing any
// previous one.
func (s *Store) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE users SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = now()
		WHERE id = $1`,
		id, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// GetUserByResetTokenHash returns the user holding an unexpired reset token
// with the given hash, or (nil, nil) if none matches.
func (s *Store) GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE reset_token_hash = $1 AND reset_token_expires_at > now()`, tokenHash))
	if err != nil {
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}
	return u, nil
}
