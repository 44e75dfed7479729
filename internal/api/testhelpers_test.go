// ABOUTME: Shared helpers for API integration tests.
// ABOUTME: Builds a test server over a containerized Postgres and drives it as an HTTP client.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pantharshit007/pms/internal/auth"
	"github.com/pantharshit007/pms/internal/authz"
	"github.com/pantharshit007/pms/internal/config"
	"github.com/pantharshit007/pms/internal/store"
)

// testSealKey is a fixed 32-byte AES key for sealing pending signups in tests.
var testSealKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

// userSeq disambiguates generated emails and usernames across parallel tests.
var userSeq atomic.Int64

// newTestServer builds a Server over db and exposes it via httptest.
func newTestServer(t *testing.T, db *store.Store) (*Server, *httptest.Server) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:           "test-jwt-secret-not-for-production",
		SignupSealKey:       testSealKey,
		CookieSecure:        false,
		Argon2MaxConcurrent: 4,
		OTPTTL:              10 * time.Minute,
		ResetTokenTTL:       15 * time.Minute,
		ClientURL:           "http://localhost:5173",
		RateLimitEvictTTL:   time.Minute,
		AppEnv:              "test",
	}
	srv, err := NewServer(context.Background(), db, cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// testUser is a created account plus the credentials used to create it.
type testUser struct {
	*store.User
	Password string
}

// newUser creates an account directly in the store (bypassing the OTP flow)
// with the given account role, and returns it with a known password.
func newUser(t *testing.T, ctx context.Context, db *store.Store, role authz.AccountRole) *testUser {
	t.Helper()
	n := userSeq.Add(1)
	email := fmt.Sprintf("user%d-%s@example.com", n, uuid.NewString()[:8])
	username := fmt.Sprintf("user%d%s", n, uuid.NewString()[:8])
	password := "correct-horse-battery-" + username

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := db.CreateUser(ctx, email, username, "Test User", "", hash)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if role != authz.AccountUser {
		if err := db.UpdateAccountRole(ctx, u.ID, role); err != nil {
			t.Fatalf("update account role: %v", err)
		}
		if u, err = db.GetUserByID(ctx, u.ID); err != nil || u == nil {
			t.Fatalf("reload user: %v", err)
		}
	}
	return &testUser{User: u, Password: password}
}

// login performs POST /auth/login and returns the access_token cookie value.
func login(t *testing.T, ctx context.Context, ts *httptest.Server, email, password string) string {
	t.Helper()
	resp := doLogin(t, ctx, ts, email, password)
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: got %d, want 200", email, resp.StatusCode)
	}
	token := cookieValue(resp, "access_token")
	if token == "" {
		t.Fatalf("login %s: no access_token cookie", email)
	}
	return token
}

// doLogin performs POST /auth/login and returns the raw response.
func doLogin(t *testing.T, ctx context.Context, ts *httptest.Server, email, password string) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/api/v1/auth/login", strings.NewReader(body))
	if err != nil {
		t.Fatalf("build login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	return resp
}

// cookieValue extracts a cookie value from a response's Set-Cookie headers.
func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// doJSON performs an authenticated JSON request. The CSRF header is always
// attached; token may be empty for unauthenticated requests.
func doJSON(t *testing.T, ctx context.Context, ts *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, ts.URL+path, rdr)
	if err != nil {
		t.Fatalf("build %s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Requested-By", "PMS")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// decodeBody decodes a JSON response body into out and closes the body.
func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// wantStatus fails the test when the response status differs, draining and
// closing the body either way.
func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	body, _ := io.ReadAll(resp.Body) //nolint:errcheck
	resp.Body.Close()                //nolint:errcheck,gosec
	if resp.StatusCode != want {
		t.Fatalf("got status %d, want %d (body: %s)", resp.StatusCode, want, body)
	}
}

// createProject creates a project via the API and returns its ID.
func createProject(t *testing.T, ctx context.Context, ts *httptest.Server, token, name string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"description":"test project"}`, name)
	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/projects", token, body)
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body) //nolint:errcheck
		resp.Body.Close()               //nolint:errcheck,gosec
		t.Fatalf("create project: got %d, want 201 (body: %s)", resp.StatusCode, raw)
	}
	var out struct {
		ProjectID string `json:"project_id"`
	}
	decodeBody(t, resp, &out)
	if out.ProjectID == "" {
		t.Fatal("create project: empty project_id")
	}
	return out.ProjectID
}

// addMember adds user to the project via the API with the given role.
func addMember(t *testing.T, ctx context.Context, ts *httptest.Server, token, projectID, email, role string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"role":%q}`, email, role)
	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/projects/"+projectID+"/members", token, body)
	wantStatus(t, resp, http.StatusCreated)
}

// createTask creates a task via the API and returns its ID.
func createTask(t *testing.T, ctx context.Context, ts *httptest.Server, token, projectID, title, assignedTo string) string {
	t.Helper()
	body := fmt.Sprintf(`{"title":%q,"description":"test task"`, title)
	if assignedTo != "" {
		body += fmt.Sprintf(`,"assigned_to":%q`, assignedTo)
	}
	body += "}"
	resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/projects/"+projectID+"/tasks", token, body)
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body) //nolint:errcheck
		resp.Body.Close()               //nolint:errcheck,gosec
		t.Fatalf("create task: got %d, want 201 (body: %s)", resp.StatusCode, raw)
	}
	var out struct {
		TaskID string `json:"task_id"`
	}
	decodeBody(t, resp, &out)
	return out.TaskID
}

// projectTeam is the common three-role fixture used across handler tests.
type projectTeam struct {
	Lead, Manager, Member          *testUser
	LeadTok, ManagerTok, MemberTok string
	ProjectID                      string
	DB                             *store.Store
	TS                             *httptest.Server
}

// newProjectTeam seats a LEAD (project creator), a MANAGER, and a MEMBER in a
// fresh project and logs all three in.
func newProjectTeam(t *testing.T, ctx context.Context, db *store.Store, ts *httptest.Server) *projectTeam {
	t.Helper()
	lead := newUser(t, ctx, db, authz.AccountPro)
	manager := newUser(t, ctx, db, authz.AccountUser)
	member := newUser(t, ctx, db, authz.AccountUser)

	leadTok := login(t, ctx, ts, lead.Email, lead.Password)
	projectID := createProject(t, ctx, ts, leadTok, "team-"+uuid.NewString()[:8])
	addMember(t, ctx, ts, leadTok, projectID, manager.Email, "MANAGER")
	addMember(t, ctx, ts, leadTok, projectID, member.Email, "MEMBER")

	return &projectTeam{
		Lead:       lead,
		Manager:    manager,
		Member:     member,
		LeadTok:    leadTok,
		ManagerTok: login(t, ctx, ts, manager.Email, manager.Password),
		MemberTok:  login(t, ctx, ts, member.Email, member.Password),
		ProjectID:  projectID,
		DB:         db,
		TS:         ts,
	}
}
