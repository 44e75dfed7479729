// ABOUTME: Store methods for projects. Creation atomically seats the creator as LEAD.
// ABOUTME: List queries join through project_members so users only ever see their own projects.
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

// Project is a top-level container for tasks, subtasks, and notes.
type Project struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectWithRole is a project joined with the requesting user's role in it
// and the project's member count.
type ProjectWithRole struct {
	Project
	Role        authz.ProjectRole
	MemberCount int64
}

const projectColumns = `id, name, description, created_by, created_at, updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject atomically inserts a project and seats creatorID as its LEAD.
// A duplicate (name, created_by) pair surfaces as IsUniqueViolation.
func (s *Store) CreateProject(ctx context.Context, name, description string, creatorID uuid.UUID) (*Project, error) {
	var project Project
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO projects (name, description, created_by)
			VALUES ($1, $2, $3)
			RETURNING `+projectColumns,
			name, description, creatorID,
		).Scan(&project.ID, &project.Name, &project.Description,
			&project.CreatedBy, &project.CreatedAt, &project.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO project_members (project_id, user_id, role)
			VALUES ($1, $2, $3)`,
			project.ID, creatorID, authz.RoleLead); err != nil {
			return fmt.Errorf("seat creator: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProject returns the project with the given ID, or (nil, nil) if not found.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjectsForUser returns all projects the user is a member of together
// with their role and the member count, ordered by creation time descending.
func (s *Store) ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]ProjectWithRole, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, p.description, p.created_by, p.created_at, p.updated_at, m.role,
		       (SELECT count(*) FROM project_members c WHERE c.project_id = p.id) AS member_count
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectWithRole
	for rows.Next() {
		var p ProjectWithRole
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy,
			&p.CreatedAt, &p.UpdatedAt, &p.Role, &p.MemberCount); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListAllProjects returns every project, newest first. Admin-only at the
// handler layer.
func (s *Store) ListAllProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProject updates name and description. Returns (nil, nil) if the
// project no longer exists.
func (s *Store) UpdateProject(ctx context.Context, id uuid.UUID, name, description string) (*Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, `
		UPDATE projects SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+projectColumns,
		id, name, description))
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// DeleteProject removes the project. Members, tasks, subtasks, and notes go
// with it via ON DELETE CASCADE. Returns false if no row was deleted.
func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
