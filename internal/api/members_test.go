// ABOUTME: Integration tests for member management and the role hierarchy guards.
// ABOUTME: Strictly-higher-rank rules: no self changes, no acting on equals or above.
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/testutil"
)

func TestMembers_AddAndList(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)
	team := newProjectTeam(t, ctx, db, ts)

	resp := doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects/"+team.ProjectID+"/members", team.MemberTok, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list members: got %d, want 200", resp.StatusCode)
	}
	var members []struct {
		UserID   string `json:"user_id"`
		Role     string `json:"role"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	decodeBody(t, resp, &members)
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3", len(members))
	}
	roles := map[string]string{}
	for _, m := range members {
		roles[m.UserID] = m.Role
	}
	if roles[team.Lead.ID.String()] != "LEAD" || roles[team.Manager.ID.String()] != "MANAGER" || roles[team.Member.ID.String()] != "MEMBER" {
		t.Errorf("unexpected role map: %v", roles)
	}

	// Unknown email → 404; duplicate add → 409.
	resp = doJSON(t, ctx, ts, http.MethodPost, "/api/v1/projects/"+team.ProjectID+"/members", team.LeadTok,
		`{"email":"nobody@example.com","role":"MEMBER"}`)
	wantStatus(t, resp, http.StatusNotFound)
	resp = doJSON(t, ctx, ts, http.MethodPost, "/api/v1/projects/"+team.ProjectID+"/members", team.LeadTok,
		`{"email":"`+team.Member.Email+`","role":"MEMBER"}`)
	wantStatus(t, resp, http.StatusConflict)
}

func TestMembers_MemberCannotManage(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)
	team := newProjectTeam(t, ctx, db, ts)

	stranger := newUser(t, ctx, db, authz.AccountUser)
	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/projects/"+team.ProjectID+"/members", team.MemberTok,
		`{"email":"`+stranger.Email+`","role":"MEMBER"}`)
	wantStatus(t, resp, http.StatusForbidden)
}

func TestMembers_RoleHierarchyGuards(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)
	team := newProjectTeam(t, ctx, db, ts)

	base := "/api/v1/projects/" + team.ProjectID + "/members/"

	// A MANAGER cannot grant a role above their own when adding.
	stranger := newUser(t, ctx, db, authz.AccountUser)
	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/projects/"+team.ProjectID+"/members", team.ManagerTok,
		`{"email":"`+stranger.Email+`","role":"LEAD"}`)
	wantStatus(t, resp, http.StatusForbidden)

	// Nobody changes their own role, not even the LEAD.
	resp = doJSON(t, ctx, ts, http.MethodPatch, base+team.Lead.ID.String(), team.LeadTok, `{"role":"MEMBER"}`)
	wantStatus(t, resp, http.StatusForbidden)

	// A MANAGER cannot act on another MANAGER (equal rank)...
	second := newUser(t, ctx, db, authz.AccountUser)
	addMember(t, ctx, ts, team.LeadTok, team.ProjectID, second.Email, "MANAGER")
	resp = doJSON(t, ctx, ts, http.MethodPatch, base+second.ID.String(), team.ManagerTok, `{"role":"MEMBER"}`)
	wantStatus(t, resp, http.StatusForbidden)

	// ...nor on the LEAD (higher rank).
	resp = doJSON(t, ctx, ts, http.MethodDelete, base+team.Lead.ID.String(), team.ManagerTok, "")
	wantStatus(t, resp, http.StatusForbidden)

	// A MANAGER may promote a MEMBER up to their own rank.
	resp = doJSON(t, ctx, ts, http.MethodPatch, base+team.Member.ID.String(), team.ManagerTok, `{"role":"MANAGER"}`)
	wantStatus(t, resp, http.StatusOK)

	// The LEAD demotes and then removes them.
	resp = doJSON(t, ctx, ts, http.MethodPatch, base+team.Member.ID.String(), team.LeadTok, `{"role":"MEMBER"}`)
	wantStatus(t, resp, http.StatusOK)
	resp = doJSON(t, ctx, ts, http.MethodDelete, base+team.Member.ID.String(), team.LeadTok, "")
	wantStatus(t, resp, http.StatusNoContent)

	// Removed members lose access immediately.
	resp = doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects/"+team.ProjectID, team.MemberTok, "")
	wantStatus(t, resp, http.StatusForbidden)

	// Self-removal is rejected; leaving is a LEAD transfer concern.
	resp = doJSON(t, ctx, ts, http.MethodDelete, base+team.Manager.ID.String(), team.ManagerTok, "")
	wantStatus(t, resp, http.StatusForbidden)
}
