// ABOUTME: Request context key types and constants for the api package.
// ABOUTME: Used by middleware to inject auth state and by handlers to read it.
package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/store"
)

type contextKey int

const (
	ctxUserID      contextKey = iota // uuid.UUID — authenticated user
	ctxAccountRole                   // authz.AccountRole — from the access token claims
	ctxProjectID                     // uuid.UUID — project from URL path param
	ctxMember                        // *store.Member — caller's membership in ctxProjectID
)

// actor builds the authz identity for the request from context values set by
// RequireAuthenticated. The bool is false when the request is unauthenticated.
func actor(r *http.Request) (authz.User, bool) {
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		return authz.User{}, false
	}
	role, _ := r.Context().Value(ctxAccountRole).(authz.AccountRole)
	if role == "" {
		role = authz.AccountUser
	}
	return authz.User{ID: userID, AccountRole: role}, true
}

// membership returns the caller's membership injected by RequireProjectMember,
// or nil on routes outside a project scope.
func membership(r *http.Request) *authz.Membership {
	m, ok := r.Context().Value(ctxMember).(*store.Member)
	if !ok || m == nil {
		return nil
	}
	return &authz.Membership{ProjectID: m.ProjectID, UserID: m.UserID, Role: m.Role}
}
