// ABOUTME: Integration tests for project CRUD and account-role gating.
// ABOUTME: Covers creator seating as LEAD, listings with roles, and the admin-only /all view.
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/testutil"
)

func TestCreateProject_RequiresProAccount(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	basic := newUser(t, ctx, db, authz.AccountUser)
	basicTok := login(t, ctx, ts, basic.Email, basic.Password)
	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/projects", basicTok,
		`{"name":"denied","description":""}`)
	wantStatus(t, resp, http.StatusForbidden)

	pro := newUser(t, ctx, db, authz.AccountPro)
	proTok := login(t, ctx, ts, pro.Email, pro.Password)
	projectID := createProject(t, ctx, ts, proTok, "allowed")

	// The creator is seated as LEAD and the listing carries it.
	resp = doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects", proTok, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list projects: got %d, want 200", resp.StatusCode)
	}
	var list []struct {
		ProjectID   string `json:"project_id"`
		Role        string `json:"role"`
		MemberCount int64  `json:"member_count"`
	}
	decodeBody(t, resp, &list)
	if len(list) != 1 || list[0].ProjectID != projectID {
		t.Fatalf("list projects: got %+v", list)
	}
	if list[0].Role != string(authz.RoleLead) {
		t.Errorf("creator role: got %q, want LEAD", list[0].Role)
	}
	if list[0].MemberCount != 1 {
		t.Errorf("member count: got %d, want 1", list[0].MemberCount)
	}
}

func TestProject_UpdateAndDelete_RoleGates(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)
	team := newProjectTeam(t, ctx, db, ts)

	// MEMBER may view but not update.
	resp := doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects/"+team.ProjectID, team.MemberTok, "")
	wantStatus(t, resp, http.StatusOK)
	resp = doJSON(t, ctx, ts, http.MethodPatch, "/api/v1/projects/"+team.ProjectID, team.MemberTok,
		`{"name":"member-rename","description":""}`)
	wantStatus(t, resp, http.StatusForbidden)

	// MANAGER may update but not delete.
	resp = doJSON(t, ctx, ts, http.MethodPatch, "/api/v1/projects/"+team.ProjectID, team.ManagerTok,
		`{"name":"manager-rename","description":"updated"}`)
	wantStatus(t, resp, http.StatusOK)
	resp = doJSON(t, ctx, ts, http.MethodDelete, "/api/v1/projects/"+team.ProjectID, team.ManagerTok, "")
	wantStatus(t, resp, http.StatusForbidden)

	// LEAD deletes; the project is gone afterwards.
	resp = doJSON(t, ctx, ts, http.MethodDelete, "/api/v1/projects/"+team.ProjectID, team.LeadTok, "")
	wantStatus(t, resp, http.StatusNoContent)
	resp = doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects/"+team.ProjectID, team.LeadTok, "")
	wantStatus(t, resp, http.StatusForbidden) // membership rows cascaded away
}

func TestProject_DuplicateNameConflicts(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	pro := newUser(t, ctx, db, authz.AccountPro)
	tok := login(t, ctx, ts, pro.Email, pro.Password)
	createProject(t, ctx, ts, tok, "duplicate-name")

	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/projects", tok,
		`{"name":"duplicate-name","description":""}`)
	wantStatus(t, resp, http.StatusConflict)
}

func TestListAllProjects_AdminOnly(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	pro := newUser(t, ctx, db, authz.AccountPro)
	proTok := login(t, ctx, ts, pro.Email, pro.Password)
	createProject(t, ctx, ts, proTok, "someone-elses-project")

	resp := doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects/all", proTok, "")
	wantStatus(t, resp, http.StatusForbidden)

	admin := newUser(t, ctx, db, authz.AccountAdmin)
	adminTok := login(t, ctx, ts, admin.Email, admin.Password)
	resp = doJSON(t, ctx, ts, http.MethodGet, "/api/v1/projects/all", adminTok, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list all: got %d, want 200", resp.StatusCode)
	}
	var list []struct {
		Name string `json:"name"`
	}
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("admin sees %d projects, want 1", len(list))
	}
}
