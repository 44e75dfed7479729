// ABOUTME: HTTP handlers for authentication: OTP signup, login, refresh, logout, me, password reset.
// ABOUTME: All auth endpoints live at /api/v1/auth/... and are rate-limited.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/pantharshit007/pms/internal/auth"
	"github.com/pantharshit007/pms/internal/notify"
	"github.com/pantharshit007/pms/internal/store"
)

// Token TTLs.
const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	gracePeriod     = 60 * time.Second

	// dummyPasswordHash is a valid PHC-format argon2id hash used for login timing
	// normalization. Running VerifyPassword against this for nonexistent users
	// prevents email enumeration via response time differences.
	dummyPasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA" //nolint:gosec // G101 false positive: public dummy hash for timing normalization, not a real credential
)

// authCookies returns Set-Cookie header values for the access and refresh tokens.
// refresh_token is scoped to /api/v1/auth to limit its transmission surface.
func authCookies(accessToken, refreshToken string, secure bool) []string {
	access := &http.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(accessTokenTTL.Seconds()),
	}
	refresh := &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/api/v1/auth",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(refreshTokenTTL.Seconds()),
	}
	return []string{access.String(), refresh.String()}
}

// clearAuthCookies returns Set-Cookie headers that immediately expire both auth cookies.
func clearAuthCookies(secure bool) []string {
	access := &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
	refresh := &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/api/v1/auth",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
	return []string{access.String(), refresh.String()}
}

// issueSession creates an access/refresh JWT pair for user, persists the
// refresh JTI, and returns Set-Cookie headers.
func (srv *Server) issueSession(ctx context.Context, user *store.User) ([]string, error) {
	secret := []byte(srv.cfg.JWTSecret)
	jti := uuid.New()
	accessToken, err := auth.IssueAccessToken(secret, user.ID, user.AccountRole, user.TokenVersion, accessTokenTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := auth.IssueRefreshToken(secret, user.ID, user.TokenVersion, jti, refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	if err := srv.store.CreateRefreshToken(ctx, jti, user.ID, time.Now().Add(refreshTokenTTL)); err != nil {
		return nil, err
	}
	return authCookies(accessToken, refreshToken, srv.cfg.CookieSecure), nil
}

// avatarURL derives a deterministic identicon URL from the username.
func avatarURL(username string) string {
	return "https://api.dicebear.com/9.x/identicon/svg?seed=" + url.QueryEscape(username)
}

// sealedSignup is the pending-signup payload held AES-GCM sealed in the DB
// until the OTP is confirmed.
type sealedSignup struct {
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	AvatarURL    string `json:"avatar_url"`
	PasswordHash string `json:"password_hash"`
}

// userBody is the user profile shape shared by register, login, and me.
type userBody struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	AvatarURL   string `json:"avatar_url"`
	AccountRole string `json:"account_role"`
	CreatedAt   string `json:"created_at"`
}

func toUserBody(u *store.User) userBody {
	return userBody{
		UserID:      u.ID.String(),
		Email:       u.Email,
		Username:    u.Username,
		FullName:    u.FullName,
		AvatarURL:   u.AvatarURL,
		AccountRole: string(u.AccountRole),
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}

// ── Request OTP ───────────────────────────────────────────────────────────────

// requestOTPInput is the request body for PUT /auth/otp.
type requestOTPInput struct {
	Body struct {
		Email    string `json:"email"     format:"email" maxLength:"254"  doc:"Email to verify"`
		Username string `json:"username"  minLength:"3"  maxLength:"32"   pattern:"^[a-zA-Z0-9_.-]+$" doc:"Unique username"`
		FullName string `json:"full_name,omitempty" maxLength:"128" doc:"Full name (optional)"`
		Password string `json:"password"  minLength:"8"  maxLength:"1024" doc:"Password (min 8 characters)"`
	}
}

// requestOTPOutput is the response body for PUT /auth/otp.
type requestOTPOutput struct {
	Status int
	Body   struct {
		Message string `json:"message"`
	}
}

// requestOTPHandler handles PUT /api/v1/auth/otp.
// Validates the prospective account, seals the registration payload, and
// emails a 6-digit code. Re-requesting replaces the previous pending signup.
func (srv *Server) requestOTPHandler(ctx context.Context, input *requestOTPInput) (*requestOTPOutput, error) {
	// Reject taken identifiers before the expensive hash.
	existing, err := srv.store.GetUserByEmail(ctx, input.Body.Email)
	if err != nil {
		slog.ErrorContext(ctx, "request otp: lookup email", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if existing != nil {
		return nil, huma.Error409Conflict("email already registered")
	}
	existing, err = srv.store.GetUserByUsername(ctx, input.Body.Username)
	if err != nil {
		slog.ErrorContext(ctx, "request otp: lookup username", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if existing != nil {
		return nil, huma.Error409Conflict("username already taken")
	}

	if !srv.acquireArgon2() {
		return nil, huma.Error503ServiceUnavailable("server busy, please retry")
	}
	hash, err := auth.HashPassword(input.Body.Password)
	srv.releaseArgon2()
	if err != nil {
		slog.ErrorContext(ctx, "request otp: hash password", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	payload, err := json.Marshal(sealedSignup{
		Username:     input.Body.Username,
		FullName:     input.Body.FullName,
		AvatarURL:    avatarURL(input.Body.Username),
		PasswordHash: hash,
	})
	if err != nil {
		slog.ErrorContext(ctx, "request otp: marshal payload", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	sealed, err := auth.Seal(payload, srv.sealKey)
	if err != nil {
		slog.ErrorContext(ctx, "request otp: seal payload", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	rawCode, codeHash, err := auth.GenerateOTP()
	if err != nil {
		slog.ErrorContext(ctx, "request otp: generate code", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	if _, err := srv.store.UpsertPendingSignup(ctx, input.Body.Email, codeHash, sealed, time.Now().Add(srv.cfg.OTPTTL)); err != nil {
		slog.ErrorContext(ctx, "request otp: upsert pending signup", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	if err := srv.mailer.Enqueue(ctx, notify.EmailJob{
		Kind:       notify.KindOTP,
		To:         input.Body.Email,
		Username:   input.Body.Username,
		Code:       rawCode,
		TTLMinutes: int(srv.cfg.OTPTTL.Minutes()),
	}); err != nil {
		slog.ErrorContext(ctx, "request otp: enqueue email", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	out := &requestOTPOutput{}
	out.Status = http.StatusAccepted
	out.Body.Message = "verification code sent"
	return out, nil
}

// ── Register ──────────────────────────────────────────────────────────────────

// registerInput is the request for POST /auth/register?otp=NNNNNN.
type registerInput struct {
	OTP  string `query:"otp" minLength:"6" maxLength:"6" doc:"6-digit verification code"`
	Body struct {
		Email string `json:"email" format:"email" maxLength:"254" doc:"Email the code was sent to"`
	}
}

// registerOutput returns the created user and the session cookies.
type registerOutput struct {
	Status    int
	SetCookie []string `header:"Set-Cookie"`
	Body      struct {
		User userBody `json:"user"`
	}
}

// registerHandler handles POST /api/v1/auth/register.
// Verifies the OTP against the pending signup, creates the account from the
// sealed payload, and issues the cookie session.
func (srv *Server) registerHandler(ctx context.Context, input *registerInput) (*registerOutput, error) {
	pending, err := srv.store.GetPendingSignup(ctx, input.Body.Email)
	if err != nil {
		slog.ErrorContext(ctx, "register: get pending signup", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if pending == nil {
		return nil, huma.Error400BadRequest("invalid or expired verification code")
	}
	if subtle.ConstantTimeCompare([]byte(auth.HashToken(input.OTP)), []byte(pending.OTPHash)) != 1 {
		return nil, huma.Error400BadRequest("invalid or expired verification code")
	}

	payload, err := auth.Open(pending.PayloadSealed, srv.sealKey)
	if err != nil {
		slog.ErrorContext(ctx, "register: open sealed payload", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	var signup sealedSignup
	if err := json.Unmarshal(payload, &signup); err != nil {
		slog.ErrorContext(ctx, "register: unmarshal payload", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	user, err := srv.store.CreateUser(ctx, pending.Email, signup.Username,
		signup.FullName, signup.AvatarURL, signup.PasswordHash)
	if err != nil {
		if store.IsUniqueViolation(err) { // race on concurrent register
			return nil, huma.Error409Conflict("email or username already registered")
		}
		slog.ErrorContext(ctx, "register: create user", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	if err := srv.store.DeletePendingSignup(ctx, pending.Email); err != nil {
		slog.WarnContext(ctx, "register: delete pending signup", "error", err)
		// Non-fatal — the row expires on its own.
	}

	cookies, err := srv.issueSession(ctx, user)
	if err != nil {
		slog.ErrorContext(ctx, "register: issue session", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	out := &registerOutput{}
	out.Status = http.StatusCreated
	out.SetCookie = cookies
	out.Body.User = toUserBody(user)
	return out, nil
}

// ── Login ─────────────────────────────────────────────────────────────────────

// loginInput is the request body for POST /auth/login.
type loginInput struct {
	Body struct {
		Email    string `json:"email"    format:"email" maxLength:"254"  doc:"User email"`
		Password string `json:"password" minLength:"8"  maxLength:"1024" doc:"Password"`
	}
}

// loginOutput returns the user and the session cookies.
type loginOutput struct {
	SetCookie []string `header:"Set-Cookie"`
	Body      struct {
		User userBody `json:"user"`
	}
}

// loginHandler handles POST /api/v1/auth/login.
// Nonexistent users still run argon2 to normalize response timing (prevents email enumeration).
func (srv *Server) loginHandler(ctx context.Context, input *loginInput) (*loginOutput, error) {
	user, err := srv.store.GetUserByEmail(ctx, input.Body.Email)
	if err != nil {
		slog.ErrorContext(ctx, "login: lookup email", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	// Timing normalization: always spend argon2 time regardless of whether the user exists.
	if user == nil {
		if !srv.acquireArgon2() {
			return nil, huma.Error503ServiceUnavailable("server busy, please retry")
		}
		_, _ = auth.VerifyPassword(input.Body.Password, dummyPasswordHash)
		srv.releaseArgon2()
		return nil, huma.Error401Unauthorized("invalid credentials")
	}

	if !srv.acquireArgon2() {
		return nil, huma.Error503ServiceUnavailable("server busy, please retry")
	}
	ok, err := auth.VerifyPassword(input.Body.Password, user.PasswordHash)
	srv.releaseArgon2()
	if err != nil {
		slog.ErrorContext(ctx, "login: verify password", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if !ok {
		return nil, huma.Error401Unauthorized("invalid credentials")
	}

	cookies, err := srv.issueSession(ctx, user)
	if err != nil {
		slog.ErrorContext(ctx, "login: issue session", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	out := &loginOutput{SetCookie: cookies}
	out.Body.User = toUserBody(user)
	return out, nil
}

// ── Refresh ───────────────────────────────────────────────────────────────────

// refreshInput reads the refresh_token cookie.
type refreshInput struct {
	RefreshToken string `cookie:"refresh_token" doc:"Refresh token cookie"`
}

// refreshOutput returns new auth cookies.
type refreshOutput struct {
	SetCookie []string `header:"Set-Cookie"`
}

// refreshHandler handles POST /api/v1/auth/refresh.
// Implements JTI rotation with a 60-second grace window and theft detection:
// reuse of a revoked token outside the grace window revokes every session.
func (srv *Server) refreshHandler(ctx context.Context, input *refreshInput) (*refreshOutput, error) {
	if input.RefreshToken == "" {
		return nil, huma.Error401Unauthorized("refresh token required")
	}

	secret := []byte(srv.cfg.JWTSecret)
	claims, err := auth.ParseRefreshToken(input.RefreshToken, secret)
	if err != nil {
		return nil, huma.Error401Unauthorized("invalid or expired refresh token")
	}

	stored, err := srv.store.GetRefreshToken(ctx, claims.JTI)
	if err != nil {
		slog.ErrorContext(ctx, "refresh: get token", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if stored == nil {
		return nil, huma.Error401Unauthorized("unknown refresh token")
	}

	user, err := srv.store.GetUserByID(ctx, stored.UserID)
	if err != nil || user == nil {
		slog.ErrorContext(ctx, "refresh: get user", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	// Version check detects logout-all and password changes.
	if claims.TokenVersion != user.TokenVersion {
		return nil, huma.Error401Unauthorized("session invalidated")
	}

	if stored.RevokedAt != nil {
		if time.Since(*stored.RevokedAt) <= gracePeriod && stored.ReplacedByJTI != nil {
			// Grace window: concurrent-tab scenario — advance based on the replacement.
			replacement, err := srv.store.GetRefreshToken(ctx, *stored.ReplacedByJTI)
			if err != nil {
				slog.ErrorContext(ctx, "refresh grace: get replacement", "error", err)
				return nil, huma.Error500InternalServerError("internal error")
			}
			if replacement == nil || replacement.RevokedAt != nil {
				return nil, huma.Error401Unauthorized("refresh token invalid")
			}
			return srv.rotateSession(ctx, user, replacement.JTI)
		}
		// Outside grace window: token reuse → treat as theft and kill all sessions.
		if _, incrErr := srv.store.IncrementTokenVersion(ctx, stored.UserID); incrErr != nil {
			slog.ErrorContext(ctx, "refresh: increment token version on theft", "error", incrErr)
		}
		if revErr := srv.store.RevokeAllRefreshTokens(ctx, stored.UserID); revErr != nil {
			slog.ErrorContext(ctx, "refresh: revoke all on theft", "error", revErr)
		}
		return nil, huma.Error401Unauthorized("refresh token already used")
	}

	return srv.rotateSession(ctx, user, stored.JTI)
}

// rotateSession issues a new access+refresh pair and rotates oldJTI to the
// new one in a single transaction.
func (srv *Server) rotateSession(ctx context.Context, user *store.User, oldJTI uuid.UUID) (*refreshOutput, error) {
	secret := []byte(srv.cfg.JWTSecret)
	newJTI := uuid.New()
	accessToken, err := auth.IssueAccessToken(secret, user.ID, user.AccountRole, user.TokenVersion, accessTokenTTL)
	if err != nil {
		slog.ErrorContext(ctx, "refresh: issue access token", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	refreshToken, err := auth.IssueRefreshToken(secret, user.ID, user.TokenVersion, newJTI, refreshTokenTTL)
	if err != nil {
		slog.ErrorContext(ctx, "refresh: issue refresh token", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if err := srv.store.RotateRefreshToken(ctx, oldJTI, newJTI, user.ID, time.Now().Add(refreshTokenTTL)); err != nil {
		slog.ErrorContext(ctx, "refresh: rotate token", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	return &refreshOutput{SetCookie: authCookies(accessToken, refreshToken, srv.cfg.CookieSecure)}, nil
}

// ── Logout ────────────────────────────────────────────────────────────────────

// logoutInput reads the refresh_token cookie for invalidation.
type logoutInput struct {
	RefreshToken string `cookie:"refresh_token" doc:"Refresh token cookie"`
}

// logoutOutput clears auth cookies.
type logoutOutput struct {
	SetCookie []string `header:"Set-Cookie"`
}

// logoutHandler handles POST /api/v1/auth/logout.
// Revokes the presented refresh token and clears auth cookies.
func (srv *Server) logoutHandler(ctx context.Context, input *logoutInput) (*logoutOutput, error) {
	if input.RefreshToken != "" {
		claims, err := auth.ParseRefreshToken(input.RefreshToken, []byte(srv.cfg.JWTSecret))
		if err == nil {
			if err := srv.store.RevokeRefreshToken(ctx, claims.JTI); err != nil {
				slog.WarnContext(ctx, "logout: revoke token", "error", err)
				// Non-fatal — cookies are cleared regardless.
			}
		}
	}
	return &logoutOutput{SetCookie: clearAuthCookies(srv.cfg.CookieSecure)}, nil
}

// logoutAllInput reads the access_token cookie.
type logoutAllInput struct {
	AccessToken string `cookie:"access_token" doc:"Access token cookie"`
}

// logoutAllHandler handles POST /api/v1/auth/logout-all.
// Bumps token_version and revokes every refresh token, killing all sessions.
func (srv *Server) logoutAllHandler(ctx context.Context, input *logoutAllInput) (*logoutOutput, error) {
	claims, err := srv.requireAccess(input.AccessToken)
	if err != nil {
		return nil, err
	}
	if _, err := srv.store.IncrementTokenVersion(ctx, claims.UserID); err != nil {
		slog.ErrorContext(ctx, "logout-all: increment token version", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if err := srv.store.RevokeAllRefreshTokens(ctx, claims.UserID); err != nil {
		slog.ErrorContext(ctx, "logout-all: revoke tokens", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	return &logoutOutput{SetCookie: clearAuthCookies(srv.cfg.CookieSecure)}, nil
}

// requireAccess parses the access token cookie for huma handlers that do
// their own auth (the /auth group sits outside RequireAuthenticated).
func (srv *Server) requireAccess(accessToken string) (*auth.AccessClaims, error) {
	if accessToken == "" {
		return nil, huma.Error401Unauthorized("authentication required")
	}
	claims, err := auth.ParseAccessToken(accessToken, []byte(srv.cfg.JWTSecret))
	if err != nil {
		return nil, huma.Error401Unauthorized("invalid or expired access token")
	}
	return claims, nil
}

// ── Me ────────────────────────────────────────────────────────────────────────

// meInput reads the access_token cookie for authentication.
type meInput struct {
	AccessToken string `cookie:"access_token" doc:"Access token cookie"`
}

// meOutput is the response body for GET /auth/me.
type meOutput struct {
	Body struct {
		User userBody `json:"user"`
	}
}

// meHandler handles GET /api/v1/auth/me.
func (srv *Server) meHandler(ctx context.Context, input *meInput) (*meOutput, error) {
	claims, err := srv.requireAccess(input.AccessToken)
	if err != nil {
		return nil, err
	}
	user, err := srv.store.GetUserByID(ctx, claims.UserID)
	if err != nil || user == nil {
		slog.ErrorContext(ctx, "me: get user", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	out := &meOutput{}
	out.Body.User = toUserBody(user)
	return out, nil
}

// updateMeInput is the request for PATCH /auth/me.
type updateMeInput struct {
	AccessToken string `cookie:"access_token" doc:"Access token cookie"`
	Body        struct {
		FullName  string `json:"full_name"  maxLength:"128" doc:"Full name"`
		AvatarURL string `json:"avatar_url,omitempty" maxLength:"512" doc:"Avatar URL"`
	}
}

// updateMeHandler handles PATCH /api/v1/auth/me.
func (srv *Server) updateMeHandler(ctx context.Context, input *updateMeInput) (*meOutput, error) {
	claims, err := srv.requireAccess(input.AccessToken)
	if err != nil {
		return nil, err
	}
	current, err := srv.store.GetUserByID(ctx, claims.UserID)
	if err != nil || current == nil {
		slog.ErrorContext(ctx, "update me: get user", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	avatar := input.Body.AvatarURL
	if avatar == "" {
		avatar = current.AvatarURL
	}
	user, err := srv.store.UpdateUserProfile(ctx, claims.UserID, input.Body.FullName, avatar)
	if err != nil || user == nil {
		slog.ErrorContext(ctx, "update me: update profile", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	out := &meOutput{}
	out.Body.User = toUserBody(user)
	return out, nil
}

// ── Forgot / reset password ───────────────────────────────────────────────────

// forgotPasswordInput is the request body for POST /auth/forgot-password.
type forgotPasswordInput struct {
	Body struct {
		Email string `json:"email" format:"email" maxLength:"254" doc:"Account email"`
	}
}

// forgotPasswordOutput is the generic acknowledgement body.
type forgotPasswordOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

// forgotPasswordHandler handles POST /api/v1/auth/forgot-password.
// Always returns the same body whether or not the email exists.
func (srv *Server) forgotPasswordHandler(ctx context.Context, input *forgotPasswordInput) (*forgotPasswordOutput, error) {
	out := &forgotPasswordOutput{}
	out.Body.Message = "if the email is registered, a reset link was sent"

	user, err := srv.store.GetUserByEmail(ctx, input.Body.Email)
	if err != nil {
		slog.ErrorContext(ctx, "forgot password: lookup email", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if user == nil {
		return out, nil
	}

	rawToken, tokenHash, err := auth.GenerateResetToken()
	if err != nil {
		slog.ErrorContext(ctx, "forgot password: generate token", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if err := srv.store.SetResetToken(ctx, user.ID, tokenHash, time.Now().Add(srv.cfg.ResetTokenTTL)); err != nil {
		slog.ErrorContext(ctx, "forgot password: set token", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	resetURL := srv.cfg.ClientURL + "/reset-password?token=" + rawToken
	if err := srv.mailer.Enqueue(ctx, notify.EmailJob{
		Kind:       notify.KindReset,
		To:         user.Email,
		Username:   user.Username,
		ResetURL:   resetURL,
		TTLMinutes: int(srv.cfg.ResetTokenTTL.Minutes()),
	}); err != nil {
		slog.ErrorContext(ctx, "forgot password: enqueue email", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	return out, nil
}

// resetPasswordInput is the request body for POST /auth/reset-password.
type resetPasswordInput struct {
	Body struct {
		Token       string `json:"token"        minLength:"64" maxLength:"64"   doc:"Reset token from the email link"`
		NewPassword string `json:"new_password" minLength:"8"  maxLength:"1024" doc:"New password (min 8 characters)"`
	}
}

// resetPasswordOutput has no body — 200 on success.
type resetPasswordOutput struct{}

// resetPasswordHandler handles POST /api/v1/auth/reset-password.
// A successful reset bumps token_version, invalidating every live session.
func (srv *Server) resetPasswordHandler(ctx context.Context, input *resetPasswordInput) (*resetPasswordOutput, error) {
	user, err := srv.store.GetUserByResetTokenHash(ctx, auth.HashToken(input.Body.Token))
	if err != nil {
		slog.ErrorContext(ctx, "reset password: lookup token", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if user == nil {
		return nil, huma.Error400BadRequest("invalid or expired reset token")
	}

	if !srv.acquireArgon2() {
		return nil, huma.Error503ServiceUnavailable("server busy, please retry")
	}
	hash, err := auth.HashPassword(input.Body.NewPassword)
	srv.releaseArgon2()
	if err != nil {
		slog.ErrorContext(ctx, "reset password: hash", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	// UpdatePasswordHash clears the reset token and increments token_version.
	if err := srv.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		slog.ErrorContext(ctx, "reset password: update hash", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if err := srv.store.RevokeAllRefreshTokens(ctx, user.ID); err != nil {
		slog.ErrorContext(ctx, "reset password: revoke tokens", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	return &resetPasswordOutput{}, nil
}

// ── Route registration ────────────────────────────────────────────────────────

// registerAuthRoutes registers all auth-related routes on the huma API.
func registerAuthRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID:   "request-otp",
		Method:        http.MethodPut,
		Path:          "/auth/otp",
		Tags:          []string{"auth"},
		Summary:       "Request an email verification code for signup",
		DefaultStatus: http.StatusAccepted,
	}, srv.requestOTPHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Tags:          []string{"auth"},
		Summary:       "Verify the code and create the account",
		DefaultStatus: http.StatusCreated,
	}, srv.registerHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "login",
		Method:        http.MethodPost,
		Path:          "/auth/login",
		Tags:          []string{"auth"},
		Summary:       "Log in and receive auth cookies",
		DefaultStatus: http.StatusOK,
	}, srv.loginHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "refresh-token",
		Method:        http.MethodPost,
		Path:          "/auth/refresh",
		Tags:          []string{"auth"},
		Summary:       "Rotate the refresh token and issue a new access token",
		DefaultStatus: http.StatusOK,
	}, srv.refreshHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Tags:          []string{"auth"},
		Summary:       "Log out and clear auth cookies",
		DefaultStatus: http.StatusOK,
	}, srv.logoutHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "logout-all",
		Method:        http.MethodPost,
		Path:          "/auth/logout-all",
		Tags:          []string{"auth"},
		Summary:       "Invalidate every session for the authenticated user",
		DefaultStatus: http.StatusOK,
	}, srv.logoutAllHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Tags:        []string{"auth"},
		Summary:     "Get the current user's profile",
	}, srv.meHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "update-me",
		Method:        http.MethodPatch,
		Path:          "/auth/me",
		Tags:          []string{"auth"},
		Summary:       "Update the current user's profile",
		DefaultStatus: http.StatusOK,
	}, srv.updateMeHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "forgot-password",
		Method:        http.MethodPost,
		Path:          "/auth/forgot-password",
		Tags:          []string{"auth"},
		Summary:       "Request a password reset link",
		DefaultStatus: http.StatusOK,
	}, srv.forgotPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "reset-password",
		Method:        http.MethodPost,
		Path:          "/auth/reset-password",
		Tags:          []string{"auth"},
		Summary:       "Reset the password using an emailed token",
		DefaultStatus: http.StatusOK,
	}, srv.resetPasswordHandler)
}
