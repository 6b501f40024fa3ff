// Package handler contains HTTP request handlers.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, cookies)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic. They are the glue between HTTP
// and the services.
package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/github-login/internal/auth"
	"github.com/sakif/github-login/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// AvatarURL is GitHub's avatar address for a numeric account ID.
func AvatarURL(githubID int64) string {
	return fmt.Sprintf("https://avatars.githubusercontent.com/u/%d", githubID)
}

// PageHandler serves the HTML pages. Each page is parsed together with
// base.html once at startup.
type PageHandler struct {
	home   *template.Template
	login  *template.Template
	logger *slog.Logger
}

// NewPageHandler parses the embedded templates. It fails only if a template
// does not parse.
func NewPageHandler(logger *slog.Logger) (*PageHandler, error) {
	home, err := template.ParseFS(templateFS, "templates/base.html", "templates/home.html")
	if err != nil {
		return nil, fmt.Errorf("parsing home template: %w", err)
	}
	login, err := template.ParseFS(templateFS, "templates/base.html", "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("parsing login template: %w", err)
	}

	return &PageHandler{
		home:   home,
		login:  login,
		logger: logger,
	}, nil
}

type homePage struct {
	Title     string
	User      *model.User
	AvatarURL string
}

// HandleHome greets the signed-in user.
//
// HTTP: GET /
// Anonymous visitors are sent to /login.
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	result, err := auth.CurrentSession(r.Context())
	if err != nil {
		h.logger.Error("home: session lookup failed", slog.String("error", err.Error()))
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	if !result.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	h.render(w, h.home, homePage{
		Title:     "Home",
		User:      result.User,
		AvatarURL: AvatarURL(result.User.GitHubID),
	})
}

// HandleLogin shows the sign-in link.
//
// HTTP: GET /login
// Signed-in users are sent home.
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	result, err := auth.CurrentSession(r.Context())
	if err != nil {
		h.logger.Error("login page: session lookup failed", slog.String("error", err.Error()))
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	if result.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.render(w, h.login, map[string]string{"Title": "Sign in"})
}

func (h *PageHandler) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, msgInternal, http.StatusInternalServerError)
	}
}
