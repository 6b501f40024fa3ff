package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/github-login/internal/auth"
	"github.com/sakif/github-login/internal/handler"
)

func TestHandleHome(t *testing.T) {
	pages, err := handler.NewPageHandler(testLogger())
	require.NoError(t, err)

	t.Run("signed in", func(t *testing.T) {
		sessions := &MockSessions{Current: aliceSession()}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok"})
		rr := httptest.NewRecorder()

		withSession(sessions, pages.HandleHome).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
		body := rr.Body.String()
		assert.Contains(t, body, "Hi, alice!")
		assert.Contains(t, body, "https://avatars.githubusercontent.com/u/42")
		assert.Contains(t, body, "Email: a@x.com")
		assert.Contains(t, body, `action="/logout"`)
	})

	t.Run("anonymous goes to login", func(t *testing.T) {
		rr := httptest.NewRecorder()

		withSession(&MockSessions{}, pages.HandleHome).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
	})

	t.Run("store down", func(t *testing.T) {
		sessions := &MockSessions{Err: errors.New("db locked")}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok"})
		rr := httptest.NewRecorder()

		withSession(sessions, pages.HandleHome).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Internal server error\n", rr.Body.String())
	})

	t.Run("usernames are escaped", func(t *testing.T) {
		current := aliceSession()
		current.User.Username = "<script>x</script>"
		sessions := &MockSessions{Current: current}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok"})
		rr := httptest.NewRecorder()

		withSession(sessions, pages.HandleHome).ServeHTTP(rr, req)

		assert.NotContains(t, rr.Body.String(), "<script>x</script>")
	})
}

func TestHandleLoginPage(t *testing.T) {
	pages, err := handler.NewPageHandler(testLogger())
	require.NoError(t, err)

	t.Run("anonymous sees the sign-in link", func(t *testing.T) {
		rr := httptest.NewRecorder()

		withSession(&MockSessions{}, pages.HandleLogin).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `href="/login/github"`)
	})

	t.Run("signed in goes home", func(t *testing.T) {
		sessions := &MockSessions{Current: aliceSession()}
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok"})
		rr := httptest.NewRecorder()

		withSession(sessions, pages.HandleLogin).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
	})

	t.Run("store down", func(t *testing.T) {
		sessions := &MockSessions{Err: errors.New("db locked")}
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok"})
		rr := httptest.NewRecorder()

		withSession(sessions, pages.HandleLogin).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Internal server error\n", rr.Body.String())
	})
}

type MockPinger struct{ Err error }

func (m MockPinger) Ping(ctx context.Context) error { return m.Err }

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.NewHealthHandler(MockPinger{}, testLogger()).HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("store unreachable", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.NewHealthHandler(MockPinger{Err: errors.New("no route to host")}, testLogger()).HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
