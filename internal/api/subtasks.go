// ABOUTME: HTTP handlers for subtasks, nested under a task within a project.
// ABOUTME: MEMBERs may create freely but only touch subtasks they created.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/store"
)

// subTaskBody is the JSON shape for one subtask.
type subTaskBody struct {
	SubTaskID   string `json:"subtask_id"`
	TaskID      string `json:"task_id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toSubTaskBody(st *store.SubTask) subTaskBody {
	return subTaskBody{
		SubTaskID:   st.ID.String(),
		TaskID:      st.TaskID.String(),
		ProjectID:   st.ProjectID.String(),
		Title:       st.Title,
		IsCompleted: st.IsCompleted,
		CreatedBy:   st.CreatedBy.String(),
		CreatedAt:   st.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   st.UpdatedAt.Format(time.RFC3339),
	}
}

// subTaskFromPath loads the subtask named by {subtask_id} under the parent
// task. The parent must already be resolved. Writes the error response and
// returns nil when missing.
func (srv *Server) subTaskFromPath(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) *store.SubTask {
	subTaskID, err := uuid.Parse(chi.URLParam(r, "subtask_id"))
	if err != nil {
		http.Error(w, "invalid subtask_id", http.StatusBadRequest)
		return nil
	}
	st, err := srv.store.GetSubTask(r.Context(), taskID, subTaskID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get subtask", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if st == nil {
		http.Error(w, "subtask not found", http.StatusNotFound)
		return nil
	}
	return st
}

// createSubTaskHandler handles POST .../tasks/{task_id}/subtasks.
func (srv *Server) createSubTaskHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	user, ok := actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !srv.permit(w, r, authz.ResourceSubTask, authz.ActionCreate, nil) {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	st, err := srv.store.CreateSubTask(r.Context(), task.ProjectID, task.ID, req.Title, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrSubTaskLimit) {
			http.Error(w,
				fmt.Sprintf("a task may have at most %d subtasks", store.MaxSubTasksPerTask),
				http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "create subtask", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if st == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusCreated, toSubTaskBody(st))
}

// listSubTasksHandler handles GET .../tasks/{task_id}/subtasks.
// Listing is filtered per-item so that MEMBERs see only their own subtasks.
func (srv *Server) listSubTasksHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	user, ok := actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	member := membership(r)

	subtasks, err := srv.store.ListSubTasks(r.Context(), task.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list subtasks", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]subTaskBody, 0, len(subtasks))
	for i := range subtasks {
		st := &subtasks[i]
		decision := authz.Evaluate(user, member, authz.ResourceSubTask, authz.ActionView, st.Resource(task.ID))
		if !decision.Allowed {
			continue
		}
		out = append(out, toSubTaskBody(st))
	}
	writeJSON(w, http.StatusOK, out)
}

// getSubTaskHandler handles GET .../subtasks/{subtask_id}.
func (srv *Server) getSubTaskHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	st := srv.subTaskFromPath(w, r, task.ID)
	if st == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceSubTask, authz.ActionView, st.Resource(task.ID)) {
		return
	}
	writeJSON(w, http.StatusOK, toSubTaskBody(st))
}

// updateSubTaskHandler handles PATCH .../subtasks/{subtask_id}.
func (srv *Server) updateSubTaskHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	st := srv.subTaskFromPath(w, r, task.ID)
	if st == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceSubTask, authz.ActionUpdate, st.Resource(task.ID)) {
		return
	}

	var req struct {
		Title       *string `json:"title"`
		IsCompleted *bool   `json:"is_completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	title := st.Title
	if req.Title != nil {
		if *req.Title == "" {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}
		title = *req.Title
	}
	isCompleted := st.IsCompleted
	if req.IsCompleted != nil {
		isCompleted = *req.IsCompleted
	}

	updated, err := srv.store.UpdateSubTask(r.Context(), task.ID, st.ID, title, isCompleted)
	if err != nil {
		slog.ErrorContext(r.Context(), "update subtask", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "subtask not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toSubTaskBody(updated))
}

// completeSubTaskHandler handles POST .../subtasks/{subtask_id}/complete.
func (srv *Server) completeSubTaskHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	st := srv.subTaskFromPath(w, r, task.ID)
	if st == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceSubTask, authz.ActionComplete, st.Resource(task.ID)) {
		return
	}

	updated, err := srv.store.UpdateSubTask(r.Context(), task.ID, st.ID, st.Title, true)
	if err != nil {
		slog.ErrorContext(r.Context(), "complete subtask", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "subtask not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toSubTaskBody(updated))
}

// deleteSubTaskHandler handles DELETE .../subtasks/{subtask_id}.
func (srv *Server) deleteSubTaskHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	st := srv.subTaskFromPath(w, r, task.ID)
	if st == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceSubTask, authz.ActionDelete, st.Resource(task.ID)) {
		return
	}

	deleted, err := srv.store.DeleteSubTask(r.Context(), task.ID, st.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "delete subtask", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "subtask not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// listMySubTasksHandler handles GET /api/v1/me/subtasks.
// Returns subtasks created by the caller across all projects.
func (srv *Server) listMySubTasksHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	subtasks, err := srv.store.ListSubTasksForUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list my subtasks", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]subTaskBody, 0, len(subtasks))
	for i := range subtasks {
		out = append(out, toSubTaskBody(&subtasks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
