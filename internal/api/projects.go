// ABOUTME: HTTP handlers for project management: create, list, read, update, delete.
// ABOUTME: Routes use chi middleware (not huma.Register) for per-group membership enforcement.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/store"
)

// errorBody is the JSON error shape for chi handlers.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON: encode failed", "error", err)
	}
}

// permit runs the permission evaluator for the request's actor and membership.
// On denial it writes 403 with the evaluator reason and returns false.
func (srv *Server) permit(w http.ResponseWriter, r *http.Request, rt authz.ResourceType, action authz.Action, res *authz.Resource) bool {
	user, ok := actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	decision := authz.Evaluate(user, membership(r), rt, action, res)
	if !decision.Allowed {
		writeJSON(w, http.StatusForbidden, errorBody{Error: decision.Reason})
		return false
	}
	return true
}

// projectBody is the JSON shape for a single project.
type projectBody struct {
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toProjectBody(p *store.Project) projectBody {
	return projectBody{
		ProjectID:   p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   p.CreatedBy.String(),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

// projectWithRoleBody adds the caller's role and the member count.
type projectWithRoleBody struct {
	projectBody
	Role        string `json:"role"`
	MemberCount int64  `json:"member_count"`
}

// upsertProjectBody is the JSON request body for create and update.
type upsertProjectBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// createProjectHandler handles POST /api/v1/projects.
// Only PRO and ADMIN accounts may create projects; the creator is seated as LEAD.
func (srv *Server) createProjectHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !srv.permit(w, r, authz.ResourceProject, authz.ActionCreate, nil) {
		return
	}

	var req upsertProjectBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	project, err := srv.store.CreateProject(r.Context(), req.Name, req.Description, user.ID)
	if err != nil {
		if store.IsUniqueViolation(err) {
			http.Error(w, "a project with this name already exists", http.StatusConflict)
			return
		}
		slog.ErrorContext(r.Context(), "create project", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectBody(project))
}

// listMyProjectsHandler handles GET /api/v1/projects.
// Returns the caller's projects with their role and the member count.
func (srv *Server) listMyProjectsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	projects, err := srv.store.ListProjectsForUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list projects", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]projectWithRoleBody, 0, len(projects))
	for i := range projects {
		out = append(out, projectWithRoleBody{
			projectBody: toProjectBody(&projects[i].Project),
			Role:        string(projects[i].Role),
			MemberCount: projects[i].MemberCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// listAllProjectsHandler handles GET /api/v1/projects/all. ADMIN accounts only.
func (srv *Server) listAllProjectsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if user.AccountRole != authz.AccountAdmin {
		writeJSON(w, http.StatusForbidden, errorBody{Error: authz.ReasonInsufficientAccountRole})
		return
	}

	projects, err := srv.store.ListAllProjects(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "list all projects", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]projectBody, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectBody(&projects[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// getProjectHandler handles GET /api/v1/projects/{project_id}.
func (srv *Server) getProjectHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !srv.permit(w, r, authz.ResourceProject, authz.ActionView, nil) {
		return
	}

	project, err := srv.store.GetProject(r.Context(), projectID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get project", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if project == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toProjectBody(project))
}

// updateProjectHandler handles PATCH /api/v1/projects/{project_id}. LEAD only.
func (srv *Server) updateProjectHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !srv.permit(w, r, authz.ResourceProject, authz.ActionUpdate, nil) {
		return
	}

	var req upsertProjectBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	project, err := srv.store.UpdateProject(r.Context(), projectID, req.Name, req.Description)
	if err != nil {
		if store.IsUniqueViolation(err) {
			http.Error(w, "a project with this name already exists", http.StatusConflict)
			return
		}
		slog.ErrorContext(r.Context(), "update project", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if project == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toProjectBody(project))
}

// deleteProjectHandler handles DELETE /api/v1/projects/{project_id}. LEAD only.
// Members, tasks, subtasks, and notes cascade.
func (srv *Server) deleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !srv.permit(w, r, authz.ResourceProject, authz.ActionDelete, nil) {
		return
	}

	deleted, err := srv.store.DeleteProject(r.Context(), projectID)
	if err != nil {
		slog.ErrorContext(r.Context(), "delete project", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
