// ABOUTME: Store methods for project membership rows and role changes.
// ABOUTME: Rank comparisons between actor and target are enforced in the handlers.
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

// Member is one user's membership in one project.
type Member struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	UserID    uuid.UUID
	Role      authz.ProjectRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberWithUser is a membership joined with the member's public profile.
type MemberWithUser struct {
	Member
	Email     string
	Username  string
	FullName  string
	AvatarURL string
}

// AddMember inserts a membership row. A duplicate (project, user) pair
// surfaces as IsUniqueViolation.
func (s *Store) AddMember(ctx context.Context, projectID, userID uuid.UUID, role authz.ProjectRole) (*Member, error) {
	var m Member
	err := s.pool.QueryRow(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, project_id, user_id, role, created_at, updated_at`,
		projectID, userID, role,
	).Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return &m, nil
}

// GetMember returns userID's membership in projectID, or (nil, nil) if they
// are not a member. Called from RequireProjectMember middleware on every
// project-scoped request.
func (s *Store) GetMember(ctx context.Context, projectID, userID uuid.UUID) (*Member, error) {
	var m Member
	err := s.pool.QueryRow(ctx, `
		SELECT id, project_id, user_id, role, created_at, updated_at
		FROM project_members
		WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	).Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

// ListMembers returns all members of a project with their profiles, highest
// role first, then by join time.
func (s *Store) ListMembers(ctx context.Context, projectID uuid.UUID) ([]MemberWithUser, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.project_id, m.user_id, m.role, m.created_at, m.updated_at,
		       u.email, u.username, u.full_name, u.avatar_url
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY CASE m.role WHEN 'LEAD' THEN 0 WHEN 'MANAGER' THEN 1 ELSE 2 END,
		         m.created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []MemberWithUser
	for rows.Next() {
		var m MemberWithUser
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role,
			&m.CreatedAt, &m.UpdatedAt,
			&m.Email, &m.Username, &m.FullName, &m.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMemberRole changes userID's role in projectID. Returns (nil, nil)
// if the membership no longer exists.
func (s *Store) UpdateMemberRole(ctx context.Context, projectID, userID uuid.UUID, role authz.ProjectRole) (*Member, error) {
	var m Member
	err := s.pool.QueryRow(ctx, `
		UPDATE project_members SET role = $3, updated_at = now()
		WHERE project_id = $1 AND user_id = $2
		RETURNING id, project_id, user_id, role, created_at, updated_at`,
		projectID, userID, role,
	).Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	return &m, nil
}

// RemoveMember removes userID from projectID. Returns false if no row was
// deleted.
func (s *Store) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountLeads returns the number of LEAD members in a project. Used to keep
// a project from losing its last LEAD.
func (s *Store) CountLeads(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM project_members
		WHERE project_id = $1 AND role = 'LEAD'`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}
