// ABOUTME: RequireProjectMember middleware — resolves {project_id} and the caller's membership.
// ABOUTME: Non-members get 403; handlers read the membership for permission checks.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RequireProjectMember returns a middleware that verifies the authenticated
// user is a member of the project in the URL ({project_id}). On success it
// injects ctxProjectID and ctxMember into the request context.
//
// Must run after RequireAuthenticated. The permission evaluator decides what
// a member may do; this middleware only keeps non-members out entirely.
func (srv *Server) RequireProjectMember() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			projectID, err := uuid.Parse(chi.URLParam(r, "project_id"))
			if err != nil {
				http.Error(w, "invalid project_id", http.StatusBadRequest)
				return
			}

			member, err := srv.store.GetMember(r.Context(), projectID, userID)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if member == nil {
				http.Error(w, "forbidden: not a project member", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ctxProjectID, projectID)
			ctx = context.WithValue(ctx, ctxMember, member)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
