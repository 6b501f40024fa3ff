package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/model"
)

// DefaultGitHubAPIURL is the base of the GitHub REST API.
const DefaultGitHubAPIURL = "https://api.github.com"

// GitHubConfig configures a GitHubProvider.
//
// Endpoint and APIBaseURL default to the real GitHub. Tests point both at an
// httptest server.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Endpoint     oauth2.Endpoint
	APIBaseURL   string
	// HTTPClient is used for the token exchange and API calls. nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. BeginAuthorization: we generate a random state and redirect the browser
//     to GitHub's consent page, asking for the user:email scope.
//  2. GitHub redirects back to CallbackURL with ?code=...&state=...
//  3. CompleteAuthorization: we check the state against the one we stored in
//     a cookie, exchange the code for an access token (server-to-server, using
//     ClientSecret), then read /user and /user/emails with that token.
type GitHubProvider struct {
	config     *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// You get ClientID and ClientSecret by registering an OAuth App at:
// https://github.com/settings/developers → "OAuth Apps" → "New OAuth App"
//
// CallbackURL must match the "Authorization callback URL" you configured exactly.
func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = github.Endpoint
	}
	apiBaseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = DefaultGitHubAPIURL
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"user:email"},
			Endpoint:     endpoint,
		},
		apiBaseURL: apiBaseURL,
		httpClient: cfg.HTTPClient,
	}
}

// Authorization is the first leg of the flow: where to send the browser, and
// the state value to remember until the callback.
type Authorization struct {
	URL   string
	State string
}

// BeginAuthorization generates an anti-forgery state and builds GitHub's
// consent URL for it.
//
// The state comes from oauth2.GenerateVerifier: 32 bytes from crypto/rand,
// base64url-encoded. It only has to be unguessable and single-use.
func (p *GitHubProvider) BeginAuthorization() Authorization {
	state := oauth2.GenerateVerifier()
	return Authorization{
		URL:   p.config.AuthCodeURL(state),
		State: state,
	}
}

// CompleteAuthorization validates the callback parameters, exchanges the code
// and resolves the GitHub identity behind it.
//
// Errors (all match apperror.ErrProtocolRestart except the last):
//   - apperror.ErrMissingParameter   code, state or storedState is empty
//   - apperror.ErrStateMismatch      state != storedState; GitHub is never contacted
//   - apperror.ErrExchangeFailed     GitHub rejected the code
//   - apperror.ErrMalformedResponse  /user or /user/emails did not parse
//   - apperror.ErrNoVerifiedEmail    no email is both primary and verified
func (p *GitHubProvider) CompleteAuthorization(ctx context.Context, code, state, storedState string) (*model.GitHubIdentity, error) {
	if code == "" || state == "" || storedState == "" {
		return nil, apperror.ErrMissingParameter
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(storedState)) != 1 {
		return nil, apperror.ErrStateMismatch
	}

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	// Step 1: exchange authorization code → OAuth access token.
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: %w: %w", apperror.ErrExchangeFailed, err)
	}

	// oauth2.Config.Client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, token)

	// Step 2: who is this?
	var user githubUserResponse
	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}
	if err := user.validate(); err != nil {
		return nil, err
	}

	// Step 3: which address can we trust?
	var emails []githubEmailRecord
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return nil, err
	}
	email, err := selectPrimaryEmail(emails)
	if err != nil {
		return nil, err
	}

	return &model.GitHubIdentity{
		GitHubID: *user.ID,
		Username: *user.Login,
		Email:    email,
	}, nil
}

// getJSON performs an authenticated GET against the API and decodes the body
// into dst. A non-200 status or a body that does not fit dst is reported as
// apperror.ErrMalformedResponse.
func (p *GitHubProvider) getJSON(ctx context.Context, client *http.Client, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("auth: building GitHub %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling GitHub %s API: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: GitHub %s API returned status %d: %w", path, resp.StatusCode, apperror.ErrMalformedResponse)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperror.Malformed(typeErr.Field, fmt.Sprintf("GitHub %s: field %q has the wrong type", path, typeErr.Field))
		}
		return fmt.Errorf("auth: decoding GitHub %s response: %w: %w", path, apperror.ErrMalformedResponse, err)
	}

	return nil
}

// githubUserResponse is the part of GET /user we rely on. Pointer fields let
// us tell "missing" apart from a zero value.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type githubUserResponse struct {
	ID    *int64  `json:"id"`
	Login *string `json:"login"`
}

func (r githubUserResponse) validate() error {
	if r.ID == nil || *r.ID <= 0 {
		return apperror.Malformed("id", "GitHub /user: id must be a positive number")
	}
	if r.Login == nil || *r.Login == "" {
		return apperror.Malformed("login", "GitHub /user: login must be a non-empty string")
	}
	return nil
}

// githubEmailRecord is one element of GET /user/emails.
//
// GitHub API docs: https://docs.github.com/en/rest/users/emails#list-email-addresses-for-the-authenticated-user
type githubEmailRecord struct {
	Email    *string `json:"email"`
	Primary  *bool   `json:"primary"`
	Verified *bool   `json:"verified"`
}

// selectPrimaryEmail returns the address flagged both primary and verified.
//
// Every record must carry primary and verified; email is only required on a
// record that qualifies. The loop does not stop at the first match: if GitHub
// ever flags several records, the last one wins.
func selectPrimaryEmail(records []githubEmailRecord) (string, error) {
	if len(records) == 0 {
		return "", apperror.Malformed("emails", "GitHub /user/emails: empty email list")
	}

	var (
		email string
		found bool
	)
	for _, rec := range records {
		if rec.Primary == nil {
			return "", apperror.Malformed("primary", "GitHub /user/emails: primary must be a boolean")
		}
		if rec.Verified == nil {
			return "", apperror.Malformed("verified", "GitHub /user/emails: verified must be a boolean")
		}
		if *rec.Primary && *rec.Verified {
			if rec.Email == nil {
				return "", apperror.Malformed("email", "GitHub /user/emails: email must be a string")
			}
			email = *rec.Email
			found = true
		}
	}

	if !found {
		return "", apperror.ErrNoVerifiedEmail
	}
	return email, nil
}
