// ABOUTME: HTTP handlers for tasks: CRUD, status transitions, and attachment uploads.
// ABOUTME: Every route is project-scoped; MEMBER status changes are gated on assignment.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/store"
)

// maxAttachmentsPerTask caps uploads per task.
const maxAttachmentsPerTask = 5

// taskBody is the JSON shape for one task.
type taskBody struct {
	TaskID       string `json:"task_id"`
	ProjectID    string `json:"project_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	AssignedTo   string `json:"assigned_to,omitempty"`
	CreatedBy    string `json:"created_by"`
	SubTaskCount int    `json:"subtask_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toTaskBody(t *store.Task) taskBody {
	b := taskBody{
		TaskID:       t.ID.String(),
		ProjectID:    t.ProjectID.String(),
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		CreatedBy:    t.CreatedBy.String(),
		SubTaskCount: t.SubTaskCount,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt.Format(time.RFC3339),
	}
	if t.AssignedTo != nil {
		b.AssignedTo = t.AssignedTo.String()
	}
	return b
}

// attachmentBody is the JSON shape for one task attachment.
type attachmentBody struct {
	AttachmentID string `json:"attachment_id"`
	URL          string `json:"url"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
	CreatedAt    string `json:"created_at"`
}

func toAttachmentBodies(attachments []store.Attachment) []attachmentBody {
	out := make([]attachmentBody, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, attachmentBody{
			AttachmentID: a.ID.String(),
			URL:          a.URL,
			MimeType:     a.MimeType,
			SizeBytes:    a.SizeBytes,
			CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

// taskDetailBody is taskBody plus attachments, returned by get.
type taskDetailBody struct {
	taskBody
	Attachments []attachmentBody `json:"attachments"`
}

// upsertTaskBody is the JSON request body for create and update.
type upsertTaskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
}

// resolveAssignee parses and validates an optional assignee. The assignee
// must already be a member of the project.
func (srv *Server) resolveAssignee(w http.ResponseWriter, r *http.Request, projectID uuid.UUID, raw string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	assigneeID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid assigned_to", http.StatusBadRequest)
		return nil, false
	}
	member, err := srv.store.GetMember(r.Context(), projectID, assigneeID)
	if err != nil {
		slog.ErrorContext(r.Context(), "resolve assignee", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if member == nil {
		http.Error(w, "assignee is not a project member", http.StatusBadRequest)
		return nil, false
	}
	return &assigneeID, true
}

// taskFromPath loads the task named by {task_id} within the request's
// project scope. Writes the error response and returns nil when missing.
func (srv *Server) taskFromPath(w http.ResponseWriter, r *http.Request) *store.Task {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil
	}
	taskID, err := uuid.Parse(chi.URLParam(r, "task_id"))
	if err != nil {
		http.Error(w, "invalid task_id", http.StatusBadRequest)
		return nil
	}
	task, err := srv.store.GetTask(r.Context(), projectID, taskID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get task", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if task == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return nil
	}
	return task
}

// createTaskHandler handles POST /api/v1/projects/{project_id}/tasks.
func (srv *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	user, ok := actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !srv.permit(w, r, authz.ResourceTask, authz.ActionCreate, nil) {
		return
	}

	var req upsertTaskBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	assignedTo, ok := srv.resolveAssignee(w, r, projectID, req.AssignedTo)
	if !ok {
		return
	}

	task, err := srv.store.CreateTask(r.Context(), projectID, req.Title, req.Description, assignedTo, user.ID, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "create task", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskBody(task))
}

// listTasksHandler handles GET /api/v1/projects/{project_id}/tasks.
// Supports ?status=, ?assigned_to=, and ?created_by= filters.
func (srv *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !srv.permit(w, r, authz.ResourceTask, authz.ActionView, nil) {
		return
	}

	var filter store.TaskFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := store.ParseTaskStatus(raw)
		if err != nil {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		filter.Status = status
	}
	if raw := r.URL.Query().Get("assigned_to"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid assigned_to filter", http.StatusBadRequest)
			return
		}
		filter.AssignedTo = id
	}
	if raw := r.URL.Query().Get("created_by"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid created_by filter", http.StatusBadRequest)
			return
		}
		filter.CreatedBy = id
	}

	tasks, err := srv.store.ListTasks(r.Context(), projectID, filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "list tasks", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]taskBody, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskBody(&tasks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// getTaskHandler handles GET /api/v1/projects/{project_id}/tasks/{task_id}.
func (srv *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceTask, authz.ActionView, task.Resource()) {
		return
	}

	attachments, err := srv.store.ListAttachments(r.Context(), task.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list attachments", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, taskDetailBody{
		taskBody:    toTaskBody(task),
		Attachments: toAttachmentBodies(attachments),
	})
}

// updateTaskHandler handles PATCH /api/v1/projects/{project_id}/tasks/{task_id}.
func (srv *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceTask, authz.ActionUpdate, task.Resource()) {
		return
	}

	var req upsertTaskBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Absent fields keep their current values.
	title := task.Title
	if req.Title != "" {
		title = req.Title
	}
	description := task.Description
	if req.Description != "" {
		description = req.Description
	}
	status := task.Status
	if req.Status != "" {
		parsed, err := store.ParseTaskStatus(req.Status)
		if err != nil {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		status = parsed
	}
	assignedTo := task.AssignedTo
	if req.AssignedTo != "" {
		resolved, ok := srv.resolveAssignee(w, r, task.ProjectID, req.AssignedTo)
		if !ok {
			return
		}
		assignedTo = resolved
	}

	updated, err := srv.store.UpdateTask(r.Context(), task.ProjectID, task.ID, title, description, status, assignedTo)
	if err != nil {
		slog.ErrorContext(r.Context(), "update task", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toTaskBody(updated))
}

// updateTaskStatusHandler handles PATCH /api/v1/projects/{project_id}/tasks/{task_id}/status.
// MEMBERs may only move tasks assigned to them; a same-status change is rejected.
func (srv *Server) updateTaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	status, err := store.ParseTaskStatus(req.Status)
	if err != nil {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if status == task.Status {
		http.Error(w, "task is already in this status", http.StatusBadRequest)
		return
	}

	if !srv.permit(w, r, authz.ResourceTask, authz.ActionUpdateStatus, task.Resource()) {
		return
	}

	updated, err := srv.store.UpdateTaskStatus(r.Context(), task.ProjectID, task.ID, status)
	if err != nil {
		slog.ErrorContext(r.Context(), "update task status", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toTaskBody(updated))
}

// deleteTaskHandler handles DELETE /api/v1/projects/{project_id}/tasks/{task_id}.
// Subtasks and attachment rows cascade; stored objects are removed best-effort.
func (srv *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceTask, authz.ActionDelete, task.Resource()) {
		return
	}

	attachments, err := srv.store.ListAttachments(r.Context(), task.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "delete task: list attachments", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	deleted, err := srv.store.DeleteTask(r.Context(), task.ProjectID, task.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "delete task", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	if srv.objects != nil {
		for _, a := range attachments {
			if a.StorageKey == "" {
				continue
			}
			if err := srv.objects.Delete(r.Context(), a.StorageKey); err != nil {
				slog.WarnContext(r.Context(), "delete task: remove object", "key", a.StorageKey, "error", err)
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// uploadAttachmentsHandler handles POST /api/v1/projects/{project_id}/tasks/{task_id}/attachments.
// Accepts multipart form files under the "files" field, capped at 5 per task.
func (srv *Server) uploadAttachmentsHandler(w http.ResponseWriter, r *http.Request) {
	task := srv.taskFromPath(w, r)
	if task == nil {
		return
	}
	if !srv.permit(w, r, authz.ResourceTask, authz.ActionUpdate, task.Resource()) {
		return
	}
	if srv.objects == nil {
		http.Error(w, "attachment storage is not configured", http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "no files provided", http.StatusBadRequest)
		return
	}

	existing, err := srv.store.CountAttachments(r.Context(), task.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "count attachments", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if existing+int64(len(files)) > maxAttachmentsPerTask {
		http.Error(w,
			fmt.Sprintf("a task may have at most %d attachments", maxAttachmentsPerTask),
			http.StatusBadRequest)
		return
	}

	attachments := make([]store.Attachment, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, "invalid multipart body", http.StatusBadRequest)
			return
		}
		key := fmt.Sprintf("projects/%s/tasks/%s/%s-%s",
			task.ProjectID, task.ID, uuid.New(), filepath.Base(fh.Filename))
		url, err := srv.objects.Put(r.Context(), key, fh.Header.Get("Content-Type"), f)
		_ = f.Close()
		if err != nil {
			slog.ErrorContext(r.Context(), "upload attachment", "key", key, "error", err)
			http.Error(w, "upload failed", http.StatusBadGateway)
			return
		}
		attachments = append(attachments, store.Attachment{
			URL:        url,
			StorageKey: key,
			MimeType:   fh.Header.Get("Content-Type"),
			SizeBytes:  fh.Size,
		})
	}

	if err := srv.store.AddAttachments(r.Context(), task.ID, attachments); err != nil {
		slog.ErrorContext(r.Context(), "add attachments", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	stored, err := srv.store.ListAttachments(r.Context(), task.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list attachments", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toAttachmentBodies(stored))
}

// listMyTasksHandler handles GET /api/v1/me/tasks.
// Returns tasks assigned to the caller across all projects.
func (srv *Server) listMyTasksHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	tasks, err := srv.store.ListTasksForUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list my tasks", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]taskBody, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskBody(&tasks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
