// ABOUTME: Store methods for subtasks with a transactional per-task counter.
// ABOUTME: Creation locks the parent task row so the cap cannot be raced past.
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

// MaxSubTasksPerTask caps how many subtasks a single task may carry.
const MaxSubTasksPerTask = 10

// ErrSubTaskLimit is returned when a task already has MaxSubTasksPerTask subtasks.
var ErrSubTaskLimit = errors.New("subtask limit reached")

// SubTask is a checklist item under a task.
type SubTask struct {
	ID          uuid.UUID
	TaskID      uuid.UUID
	ProjectID   uuid.UUID
	Title       string
	IsCompleted bool
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const subTaskColumns = `id, task_id, project_id, title, is_completed, created_by, created_at, updated_at`

func scanSubTask(row pgx.Row) (*SubTask, error) {
	var st SubTask
	err := row.Scan(&st.ID, &st.TaskID, &st.ProjectID, &st.Title,
		&st.IsCompleted, &st.CreatedBy, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// CreateSubTask inserts a subtask and bumps the parent's subtask_count in
// one transaction. The parent row is locked first; returns ErrSubTaskLimit
// at the cap and (nil, nil) when the parent task does not exist.
func (s *Store) CreateSubTask(ctx context.Context, projectID, taskID uuid.UUID, title string, createdBy uuid.UUID) (*SubTask, error) {
	var subTask *SubTask
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var count int
		err := tx.QueryRow(ctx, `
			SELECT subtask_count FROM tasks
			WHERE id = $1 AND project_id = $2
			FOR UPDATE`, taskID, projectID).Scan(&count)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock task: %w", err)
		}
		if count >= MaxSubTasksPerTask {
			return ErrSubTaskLimit
		}
		subTask, err = scanSubTask(tx.QueryRow(ctx, `
			INSERT INTO subtasks (task_id, project_id, title, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING `+subTaskColumns,
			taskID, projectID, title, createdBy))
		if err != nil {
			return fmt.Errorf("insert subtask: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET subtask_count = subtask_count + 1, updated_at = now()
			WHERE id = $1`, taskID); err != nil {
			return fmt.Errorf("bump subtask count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create subtask: %w", err)
	}
	return subTask, nil
}

// GetSubTask returns the subtask with the given ID under taskID, or
// (nil, nil) if not found.
func (s *Store) GetSubTask(ctx context.Context, taskID, subTaskID uuid.UUID) (*SubTask, error) {
	st, err := scanSubTask(s.pool.QueryRow(ctx,
		`SELECT `+subTaskColumns+` FROM subtasks WHERE id = $1 AND task_id = $2`,
		subTaskID, taskID))
	if err != nil {
		return nil, fmt.Errorf("get subtask: %w", err)
	}
	return st, nil
}

// ListSubTasks returns a task's subtasks in creation order.
func (s *Store) ListSubTasks(ctx context.Context, taskID uuid.UUID) ([]SubTask, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+subTaskColumns+` FROM subtasks WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	var out []SubTask
	for rows.Next() {
		var st SubTask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.ProjectID, &st.Title,
			&st.IsCompleted, &st.CreatedBy, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListSubTasksForUser returns subtasks created by the user across all
// projects, newest first.
func (s *Store) ListSubTasksForUser(ctx context.Context, userID uuid.UUID) ([]SubTask, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+subTaskColumns+` FROM subtasks WHERE created_by = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks for user: %w", err)
	}
	defer rows.Close()

	var out []SubTask
	for rows.Next() {
		var st SubTask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.ProjectID, &st.Title,
			&st.IsCompleted, &st.CreatedBy, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// UpdateSubTask updates title and completion state. Returns (nil, nil) if
// the subtask no longer exists.
func (s *Store) UpdateSubTask(ctx context.Context, taskID, subTaskID uuid.UUID, title string, isCompleted bool) (*SubTask, error) {
	st, err := scanSubTask(s.pool.QueryRow(ctx, `
		UPDATE subtasks SET title = $3, is_completed = $4, updated_at = now()
		WHERE id = $1 AND task_id = $2
		RETURNING `+subTaskColumns,
		subTaskID, taskID, title, isCompleted))
	if err != nil {
		return nil, fmt.Errorf("update subtask: %w", err)
	}
	return st, nil
}

// DeleteSubTask removes a subtask and decrements the parent's subtask_count
// in one transaction. Returns false if no row was deleted.
func (s *Store) DeleteSubTask(ctx context.Context, taskID, subTaskID uuid.UUID) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM subtasks WHERE id = $1 AND task_id = $2`, subTaskID, taskID)
		if err != nil {
			return fmt.Errorf("delete subtask: %w", err)
		}
		deleted = tag.RowsAffected() > 0
		if !deleted {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET subtask_count = greatest(subtask_count - 1, 0), updated_at = now()
			WHERE id = $1`, taskID); err != nil {
			return fmt.Errorf("drop subtask count: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// Resource builds the authz snapshot for a subtask-scoped permission check.
// taskInScope is the task ID from the request path; the ownership predicate
// compares it against the subtask's actual parent.
func (st *SubTask) Resource(taskInScope uuid.UUID) *authz.Resource {
	return &authz.Resource{
		TaskID:      st.TaskID,
		TaskInScope: taskInScope,
		CreatedBy:   st.CreatedBy,
	}
}
