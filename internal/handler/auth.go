package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/auth"
	"github.com/sakif/github-login/internal/metrics"
	"github.com/sakif/github-login/internal/model"
	"github.com/sakif/github-login/internal/service"
)

// OAuthProvider is the GitHub side of the login. *auth.GitHubProvider
// implements it.
type OAuthProvider interface {
	BeginAuthorization() auth.Authorization
	CompleteAuthorization(ctx context.Context, code, state, storedState string) (*model.GitHubIdentity, error)
}

// LoginCompleter turns a GitHub identity into a session. *service.AuthService
// implements it.
type LoginCompleter interface {
	CompleteLogin(ctx context.Context, identity *model.GitHubIdentity) (*service.LoginResult, error)
}

// SessionRevoker ends sessions. *service.SessionService implements it.
type SessionRevoker interface {
	Invalidate(ctx context.Context, sessionID string) error
	InvalidateAllForUser(ctx context.Context, userID int64) error
}

// AuthHandler manages the GitHub OAuth login flow and session lifecycle.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → verify state, exchange the code, start a session
//   - HandleLogout         → end the current session
//   - HandleLogoutAll      → end every session of the current user
//   - HandleMe             → return the signed-in user's profile
type AuthHandler struct {
	github   OAuthProvider
	logins   LoginCompleter
	sessions SessionRevoker
	metrics  *metrics.Metrics
	logger   *slog.Logger
	secure   bool
}

// NewAuthHandler creates an AuthHandler. secure sets the Secure attribute on
// every cookie it writes. m may be nil.
func NewAuthHandler(
	github OAuthProvider,
	logins LoginCompleter,
	sessions SessionRevoker,
	m *metrics.Metrics,
	logger *slog.Logger,
	secure bool,
) *AuthHandler {
	return &AuthHandler{
		github:   github,
		logins:   logins,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
		secure:   secure,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /login/github
//
// CSRF PROTECTION VIA STATE:
// A random state goes both into the authorization URL and into a short-lived
// HttpOnly cookie. The callback only proceeds if the two match, which proves
// the flow was started from this browser.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	a := h.github.BeginAuthorization()
	auth.SetStateCookie(w, a.State, h.secure)
	http.Redirect(w, r, a.URL, http.StatusFound)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /login/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Verify state and exchange the code for a GitHub identity
//  2. Find or create the local user and start a session
//  3. Hand the session token to the browser and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	storedState := auth.StateFromRequest(r)

	// The state cookie is single-use whatever the outcome.
	auth.ClearStateCookie(w, h.secure)

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: GitHub returned an error",
			slog.String("error", errParam),
		)
	}

	identity, err := h.github.CompleteAuthorization(r.Context(), q.Get("code"), q.Get("state"), storedState)
	if err != nil {
		h.metrics.Login(metrics.LoginRejected)
		h.logAuthFailure("auth callback: GitHub authorization failed", err)
		writeAuthError(w, err)
		return
	}

	login, err := h.logins.CompleteLogin(r.Context(), identity)
	if err != nil {
		h.logAuthFailure("auth callback: login failed", err)
		writeAuthError(w, err)
		return
	}

	auth.SetSessionCookie(w, login.Token, login.Session.ExpiresAt, h.secure)
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout ends the current session and clears the cookie.
//
// HTTP: POST /logout
//
// POST, not GET: logout changes state, and a GET could be triggered by a
// prefetch or an <img> on another site.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	result, err := auth.CurrentSession(r.Context())
	if err != nil {
		h.logger.Error("logout: session lookup failed", slog.String("error", err.Error()))
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	if result.Authenticated() {
		if err := h.sessions.Invalidate(r.Context(), result.Session.ID); err != nil {
			h.logger.Error("logout: invalidating session failed",
				slog.Int64("userID", result.User.ID),
				slog.String("error", err.Error()),
			)
			http.Error(w, msgInternal, http.StatusInternalServerError)
			return
		}
	}

	auth.DeleteSessionCookie(w, h.secure)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleLogoutAll ends every session of the current user, on every device.
//
// HTTP: POST /logout/all
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	result, err := auth.CurrentSession(r.Context())
	if err != nil {
		h.logger.Error("logout all: session lookup failed", slog.String("error", err.Error()))
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	if !result.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := h.sessions.InvalidateAllForUser(r.Context(), result.User.ID); err != nil {
		h.logger.Error("logout all: invalidating sessions failed",
			slog.Int64("userID", result.User.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	h.logger.Info("user signed out everywhere", slog.Int64("userID", result.User.ID))
	auth.DeleteSessionCookie(w, h.secure)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// meResponse is the public view of the signed-in user.
type meResponse struct {
	ID               int64  `json:"id"`
	GitHubID         int64  `json:"githubId"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	AvatarURL        string `json:"avatarUrl"`
	SessionExpiresAt string `json:"sessionExpiresAt"`
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	result, err := auth.CurrentSession(r.Context())
	if err != nil {
		h.logger.Error("HandleMe: session lookup failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if !result.Authenticated() {
		writeUnauthorized(w)
		return
	}

	u := result.User
	writeJSON(w, http.StatusOK, meResponse{
		ID:               u.ID,
		GitHubID:         u.GitHubID,
		Username:         u.Username,
		Email:            u.Email,
		AvatarURL:        AvatarURL(u.GitHubID),
		SessionExpiresAt: result.Session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// logAuthFailure logs user-caused failures at Info and our own at Error.
func (h *AuthHandler) logAuthFailure(msg string, err error) {
	level := slog.LevelError
	if errors.Is(err, apperror.ErrProtocolRestart) || errors.Is(err, apperror.ErrNoVerifiedEmail) {
		level = slog.LevelInfo
	}
	h.logger.Log(context.Background(), level, msg, slog.String("error", err.Error()))
}
