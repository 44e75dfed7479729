// ABOUTME: Integration tests for the session cookie and project membership middleware.
// ABOUTME: Verifies 401s for missing/bad tokens and 403s for non-members.
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/testutil"
)

func TestRequireAuthenticated_RejectsMissingAndBadTokens(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	resp := doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects", "", "")
	wantStatus(t, resp, http.StatusUnauthorized)

	resp = doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects", "garbage-token", "")
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestRequireProjectMember_RejectsNonMembers(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	owner := newUser(t, ctx, db, authz.AccountPro)
	outsider := newUser(t, ctx, db, authz.AccountUser)

	ownerTok := login(t, ctx, ts, owner.Email, owner.Password)
	projectID := createProject(t, ctx, ts, ownerTok, "private-project")

	outsiderTok := login(t, ctx, ts, outsider.Email, outsider.Password)
	resp := doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects/"+projectID, outsiderTok, "")
	wantStatus(t, resp, http.StatusForbidden)

	// Nonexistent project IDs also read as forbidden, not as a probe result.
	resp = doJSON(t, ctx, ts, http.MethodGet,
		"/api/v1/projects/00000000-0000-0000-0000-000000000000", outsiderTok, "")
	wantStatus(t, resp, http.StatusForbidden)

	// Malformed project IDs are a plain bad request.
	resp = doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects/not-a-uuid", outsiderTok, "")
	wantStatus(t, resp, http.StatusBadRequest)
}
