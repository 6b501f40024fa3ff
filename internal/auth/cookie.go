package auth

import (
	"net/http"
	"time"
)

// Cookie names shared by the handlers and the session middleware.
const (
	SessionCookieName = "session"
	StateCookieName   = "github_oauth_state"

	// stateCookieMaxAge bounds how long a user has to approve on GitHub.
	stateCookieMaxAge = 10 * 60
)

// SetSessionCookie writes the raw session token to the browser.
//
// COOKIE ATTRIBUTES:
//   - HttpOnly: JavaScript cannot read the token
//   - SameSite=Lax: sent on top-level navigations (the OAuth redirect back
//     to us is one), not on cross-site POSTs
//   - Secure: HTTPS only; enabled in production
//   - Expires: matches the server-side expiry, so a renewal on the server is
//     mirrored by re-sending the cookie with the new date
func SetSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// DeleteSessionCookie tells the browser to drop the session cookie.
func DeleteSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetStateCookie stores the OAuth state for the callback to compare against.
func SetStateCookie(w http.ResponseWriter, state string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearStateCookie removes the state cookie; it is single-use.
func ClearStateCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// cookieValue returns the named cookie's value, or "" when it is absent.
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// StateFromRequest returns the stored OAuth state, or "" when absent.
func StateFromRequest(r *http.Request) string {
	return cookieValue(r, StateCookieName)
}
