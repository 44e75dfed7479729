// ABOUTME: HTTP handlers for project membership: list, add by email, change role, remove.
// ABOUTME: Rank guards live here — the evaluator only grants Project.memberUpdate.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/store"
)

// memberBody is the JSON shape for one project member.
type memberBody struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	JoinedAt  string `json:"joined_at"`
}

// addMemberBody is the JSON request body for POST .../members.
type addMemberBody struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// updateMemberRoleBody is the JSON request body for PATCH .../members/{user_id}.
type updateMemberRoleBody struct {
	Role string `json:"role"`
}

// parseMemberRole validates a role string from a request body. An empty value
// defaults to MEMBER; anything outside the catalog is rejected.
func parseMemberRole(s string) (authz.ProjectRole, bool) {
	switch s {
	case "":
		return authz.RoleMember, true
	case string(authz.RoleLead), string(authz.RoleManager), string(authz.RoleMember):
		return authz.ProjectRole(s), true
	}
	return "", false
}

// callerMember returns the caller's membership row injected by RequireProjectMember.
func callerMember(r *http.Request) (*store.Member, bool) {
	m, ok := r.Context().Value(ctxMember).(*store.Member)
	return m, ok && m != nil
}

// listMembersHandler handles GET /api/v1/projects/{project_id}/members.
func (srv *Server) listMembersHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !srv.permit(w, r, authz.ResourceProject, authz.ActionView, nil) {
		return
	}

	members, err := srv.store.ListMembers(r.Context(), projectID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list members", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]memberBody, 0, len(members))
	for _, m := range members {
		out = append(out, memberBody{
			UserID:    m.UserID.String(),
			Role:      string(m.Role),
			Email:     m.Email,
			Username:  m.Username,
			FullName:  m.FullName,
			AvatarURL: m.AvatarURL,
			JoinedAt:  m.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// addMemberHandler handles POST /api/v1/projects/{project_id}/members.
// Adds an existing user by email. The caller cannot grant a role above their own.
func (srv *Server) addMemberHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !srv.permit(w, r, authz.ResourceProject, authz.ActionMemberUpdate, nil) {
		return
	}
	caller, ok := callerMember(r)
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req addMemberBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	role, ok := parseMemberRole(req.Role)
	if !ok {
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}
	if authz.Rank(role) > authz.Rank(caller.Role) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "cannot grant a role above your own"})
		return
	}

	user, err := srv.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "add member: lookup user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "no account with this email", http.StatusNotFound)
		return
	}

	member, err := srv.store.AddMember(r.Context(), projectID, user.ID, role)
	if err != nil {
		if store.IsUniqueViolation(err) {
			http.Error(w, "already a member of this project", http.StatusConflict)
			return
		}
		slog.ErrorContext(r.Context(), "add member", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, memberBody{
		UserID:    member.UserID.String(),
		Role:      string(member.Role),
		Email:     user.Email,
		Username:  user.Username,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		JoinedAt:  member.CreatedAt.Format(time.RFC3339),
	})
}

// updateMemberRoleHandler handles PATCH /api/v1/projects/{project_id}/members/{user_id}.
// The caller must strictly outrank the target and cannot grant a role above
// their own; changing one's own role is always denied.
func (srv *Server) updateMemberRoleHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !srv.permit(w, r, authz.ResourceProject, authz.ActionMemberUpdate, nil) {
		return
	}
	caller, ok := callerMember(r)
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}
	if targetID == caller.UserID {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "cannot change your own role"})
		return
	}

	var req updateMemberRoleBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	role, ok := parseMemberRole(req.Role)
	if !ok || req.Role == "" {
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}
	if authz.Rank(role) > authz.Rank(caller.Role) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "cannot grant a role above your own"})
		return
	}

	target, err := srv.store.GetMember(r.Context(), projectID, targetID)
	if err != nil {
		slog.ErrorContext(r.Context(), "update member role: get target", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if target == nil {
		http.Error(w, "not a member of this project", http.StatusNotFound)
		return
	}
	if !authz.CanActOn(caller.Role, target.Role) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "cannot act on a member of equal or higher role"})
		return
	}

	updated, err := srv.store.UpdateMemberRole(r.Context(), projectID, targetID, role)
	if err != nil {
		slog.ErrorContext(r.Context(), "update member role", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "not a member of this project", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": updated.UserID.String(),
		"role":    string(updated.Role),
	})
}

// removeMemberHandler handles DELETE /api/v1/projects/{project_id}/members/{user_id}.
// Removal requires strictly higher rank; self-removal is always denied.
func (srv *Server) removeMemberHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := r.Context().Value(ctxProjectID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !srv.permit(w, r, authz.ResourceProject, authz.ActionMemberUpdate, nil) {
		return
	}
	caller, ok := callerMember(r)
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}
	if targetID == caller.UserID {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "cannot remove yourself"})
		return
	}

	target, err := srv.store.GetMember(r.Context(), projectID, targetID)
	if err != nil {
		slog.ErrorContext(r.Context(), "remove member: get target", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if target == nil {
		http.Error(w, "not a member of this project", http.StatusNotFound)
		return
	}
	if !authz.CanActOn(caller.Role, target.Role) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "cannot act on a member of equal or higher role"})
		return
	}

	removed, err := srv.store.RemoveMember(r.Context(), projectID, targetID)
	if err != nil {
		slog.ErrorContext(r.Context(), "remove member", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "not a member of this project", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
