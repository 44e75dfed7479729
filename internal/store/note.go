// ABOUTME: Store methods for project notes.
// ABOUTME: Notes are project-scoped free text; only LEAD and MANAGER may write them.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Note is a free-text note attached to a project.
type Note struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Content   string
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

const noteColumns = `id, project_id, content, created_by, created_at, updated_at`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.ProjectID, &n.Content, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote inserts a note.
func (s *Store) CreateNote(ctx context.Context, projectID uuid.UUID, content string, createdBy uuid.UUID) (*Note, error) {
	n, err := scanNote(s.pool.QueryRow(ctx, `
		INSERT INTO notes (project_id, content, created_by)
		VALUES ($1, $2, $3)
		RETURNING `+noteColumns,
		projectID, content, createdBy))
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

// GetNote returns the note with the given ID within projectID, or (nil, nil)
// if not found.
func (s *Store) GetNote(ctx context.Context, projectID, noteID uuid.UUID) (*Note, error) {
	n, err := scanNote(s.pool.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1 AND project_id = $2`,
		noteID, projectID))
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// ListNotes returns a project's notes, newest first.
func (s *Store) ListNotes(ctx context.Context, projectID uuid.UUID) ([]Note, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE project_id = $1 ORDER BY created_at DESC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.ProjectID, &n.Content, &n.CreatedBy,
			&n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListNotesForUser returns notes created by the user across all projects,
// newest first.
func (s *Store) ListNotesForUser(ctx context.Context, userID uuid.UUID) ([]Note, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE created_by = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list notes for user: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.ProjectID, &n.Content, &n.CreatedBy,
			&n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpdateNote updates the content. Returns (nil, nil) if the note no longer
// exists.
func (s *Store) UpdateNote(ctx context.Context, projectID, noteID uuid.UUID, content string) (*Note, error) {
	n, err := scanNote(s.pool.QueryRow(ctx, `
		UPDATE notes SET content = $3, updated_at = now()
		WHERE id = $1 AND project_id = $2
		RETURNING `+noteColumns,
		noteID, projectID, content))
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

// DeleteNote removes a note. Returns false if no row was deleted.
func (s *Store) DeleteNote(ctx context.Context, projectID, noteID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notes WHERE id = $1 AND project_id = $2`, noteID, projectID)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
