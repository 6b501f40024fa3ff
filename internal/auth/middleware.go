package auth

import (
	"context"
	"net/http"
	"sync"

	"github.com/sakif/github-login/internal/model"
)

// contextKey is an unexported type used for context keys in this package, so
// no other package can read or shadow the value.
type contextKey string

const sessionKey contextKey = "session"

// Validator resolves a raw session token. service.SessionService satisfies it.
type Validator interface {
	Validate(ctx context.Context, token string) (model.SessionResult, error)
}

// requestSession is the per-request memo of the session lookup.
//
// LAZY, AT MOST ONCE:
// The middleware only records the cookie. The store is hit the first time a
// handler asks for the session, and every later call in the same request
// gets the same answer. Routes that never look (static pages, /healthz) cost
// nothing.
type requestSession struct {
	once      sync.Once
	validator Validator
	token     string
	w         http.ResponseWriter
	secure    bool

	result model.SessionResult
	err    error
}

func (s *requestSession) resolve(ctx context.Context) {
	if s.token == "" {
		return
	}

	s.result, s.err = s.validator.Validate(ctx, s.token)
	if s.err != nil {
		// Unknown state: leave the cookie alone and let the caller fail closed.
		return
	}

	switch {
	case !s.result.Authenticated():
		// Expired or revoked: stop the browser from sending a dead token.
		DeleteSessionCookie(s.w, s.secure)
	case s.result.Renewed:
		SetSessionCookie(s.w, s.token, s.result.Session.ExpiresAt, s.secure)
	}
}

// LoadSession makes the session cookie available to CurrentSession for the
// rest of the request.
func LoadSession(v Validator, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := &requestSession{
				validator: v,
				token:     cookieValue(r, SessionCookieName),
				w:         w,
				secure:    secure,
			}
			ctx := context.WithValue(r.Context(), sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentSession returns the validated session of the request.
//
// A zero result with a nil error means "not signed in". A non-nil error means
// the store could not be asked; callers must treat that as a server error and
// never as signed in. Outside LoadSession it always reports "not signed in".
//
// Call it before writing the response: a renewal or expiry adjusts the
// session cookie, and headers cannot change once the body has started.
func CurrentSession(ctx context.Context) (model.SessionResult, error) {
	s, ok := ctx.Value(sessionKey).(*requestSession)
	if !ok {
		return model.SessionResult{}, nil
	}
	s.once.Do(func() { s.resolve(ctx) })
	return s.result, s.err
}
