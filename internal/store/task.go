// ABOUTME: Store methods for tasks and their attachments.
// ABOUTME: ListTasks builds its filter dynamically with squirrel; everything else is static SQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pantharshit007/pms/internal/authz"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPlanning   TaskStatus = "PLANNING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusCancelled  TaskStatus = "CANCELLED"
)

// ParseTaskStatus validates a status string.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case StatusPlanning, StatusInProgress, StatusCompleted, StatusCancelled:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("invalid task status %q", s)
}

// Task is a unit of work inside a project.
type Task struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	Title        string
	Description  string
	Status       TaskStatus
	AssignedTo   *uuid.UUID
	CreatedBy    uuid.UUID
	SubTaskCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Attachment is a file stored in object storage and linked to a task.
// StorageKey is the object key used to remove the blob when the task goes.
type Attachment struct {
	ID         uuid.UUID
	TaskID     uuid.UUID
	URL        string
	StorageKey string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}

// TaskFilter narrows ListTasks. Zero values mean "no filter".
type TaskFilter struct {
	Status     TaskStatus
	AssignedTo uuid.UUID
	CreatedBy  uuid.UUID
}

const taskColumns = `id, project_id, title, description, status, assigned_to, created_by, subtask_count, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.AssignedTo, &t.CreatedBy, &t.SubTaskCount, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts a task and any attachment rows in one transaction.
func (s *Store) CreateTask(ctx context.Context, projectID uuid.UUID, title, description string, assignedTo *uuid.UUID, createdBy uuid.UUID, attachments []Attachment) (*Task, error) {
	var task Task
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO tasks (project_id, title, description, assigned_to, created_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+taskColumns,
			projectID, title, description, assignedTo, createdBy,
		).Scan(&task.ID, &task.ProjectID, &task.Title, &task.Description, &task.Status,
			&task.AssignedTo, &task.CreatedBy, &task.SubTaskCount, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		for _, a := range attachments {
			if _, err := tx.Exec(ctx, `
				INSERT INTO task_attachments (task_id, url, storage_key, mime_type, size_bytes)
				VALUES ($1, $2, $3, $4, $5)`,
				task.ID, a.URL, a.StorageKey, a.MimeType, a.SizeBytes); err != nil {
				return fmt.Errorf("insert attachment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask returns the task with the given ID within projectID, or (nil, nil)
// if not found. Scoping by project keeps IDs from other projects unreachable.
func (s *Store) GetTask(ctx context.Context, projectID, taskID uuid.UUID) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND project_id = $2`,
		taskID, projectID))
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks in a project matching filter, newest first.
func (s *Store) ListTasks(ctx context.Context, projectID uuid.UUID, filter TaskFilter) ([]Task, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.
		Select("id", "project_id", "title", "description", "status",
			"assigned_to", "created_by", "subtask_count", "created_at", "updated_at").
		From("tasks").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("created_at DESC")
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}
	if filter.AssignedTo != uuid.Nil {
		builder = builder.Where(sq.Eq{"assigned_to": filter.AssignedTo})
	}
	if filter.CreatedBy != uuid.Nil {
		builder = builder.Where(sq.Eq{"created_by": filter.CreatedBy})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
			&t.AssignedTo, &t.CreatedBy, &t.SubTaskCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTasksForUser returns tasks assigned to the user across all projects,
// newest first.
func (s *Store) ListTasksForUser(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assigned_to = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for user: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
			&t.AssignedTo, &t.CreatedBy, &t.SubTaskCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTask updates title, description, status, and assignee. Returns
// (nil, nil) if the task no longer exists.
func (s *Store) UpdateTask(ctx context.Context, projectID, taskID uuid.UUID, title, description string, status TaskStatus, assignedTo *uuid.UUID) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, assigned_to = $6, updated_at = now()
		WHERE id = $1 AND project_id = $2
		RETURNING `+taskColumns,
		taskID, projectID, title, description, status, assignedTo))
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus changes only the status. Returns (nil, nil) if the task
// no longer exists.
func (s *Store) UpdateTaskStatus(ctx context.Context, projectID, taskID uuid.UUID, status TaskStatus) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks SET status = $3, updated_at = now()
		WHERE id = $1 AND project_id = $2
		RETURNING `+taskColumns,
		taskID, projectID, status))
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	return t, nil
}

// DeleteTask removes a task. Attachments and subtasks cascade. Returns false
// if no row was deleted.
func (s *Store) DeleteTask(ctx context.Context, projectID, taskID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND project_id = $2`, taskID, projectID)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListAttachments returns a task's attachments in upload order.
func (s *Store) ListAttachments(ctx context.Context, taskID uuid.UUID) ([]Attachment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, url, storage_key, mime_type, size_bytes, created_at
		FROM task_attachments WHERE task_id = $1
		ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.URL, &a.StorageKey, &a.MimeType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAttachments returns the number of attachments on a task. Used to
// enforce the per-task attachment cap.
func (s *Store) CountAttachments(ctx context.Context, taskID uuid.UUID) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM task_attachments WHERE task_id = $1`, taskID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attachments: %w", err)
	}
	return n, nil
}

// AddAttachments appends attachment rows to an existing task.
func (s *Store) AddAttachments(ctx context.Context, taskID uuid.UUID, attachments []Attachment) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		for _, a := range attachments {
			if _, err := tx.Exec(ctx, `
				INSERT INTO task_attachments (task_id, url, storage_key, mime_type, size_bytes)
				VALUES ($1, $2, $3, $4, $5)`,
				taskID, a.URL, a.StorageKey, a.MimeType, a.SizeBytes); err != nil {
				return fmt.Errorf("insert attachment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add attachments: %w", err)
	}
	return nil
}

// Resource builds the authz snapshot for a task-scoped permission check.
func (t *Task) Resource() *authz.Resource {
	res := &authz.Resource{
		TaskID:      t.ID,
		TaskInScope: t.ID,
		CreatedBy:   t.CreatedBy,
	}
	if t.AssignedTo != nil {
		res.AssignedTo = *t.AssignedTo
	}
	return res
}
