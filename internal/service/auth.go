package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/auth"
	"github.com/sakif/github-login/internal/metrics"
	"github.com/sakif/github-login/internal/model"
	"github.com/sakif/github-login/internal/repository"
)

// AuthService turns a resolved GitHub identity into a signed-in session.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (find or create user)
//	                                 ↘ SessionService (mint session)
//
// It does NOT set cookies or read requests; the handler does that with the
// returned token.
type AuthService struct {
	users    repository.UserRepository
	sessions *SessionService
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAuthService creates an AuthService. m may be nil.
func NewAuthService(
	users repository.UserRepository,
	sessions *SessionService,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
	}
}

// LoginResult bundles what the handler needs to finish the login: the raw
// token for the cookie, the stored session for its expiry, and the user.
type LoginResult struct {
	Token   string
	Session *model.Session
	User    *model.User
}

// CompleteLogin links identity to a local user, creating one on first sign-in,
// and starts a new session for it.
//
// Existing users are not updated: a user row is written once per GitHub
// account and left alone afterwards.
func (s *AuthService) CompleteLogin(ctx context.Context, identity *model.GitHubIdentity) (*LoginResult, error) {
	if identity == nil {
		return nil, fmt.Errorf("service/auth: GitHub identity must not be nil")
	}

	user, created, err := s.findOrCreateUser(ctx, identity)
	if err != nil {
		s.metrics.Login(metrics.LoginFailed)
		return nil, err
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		s.metrics.Login(metrics.LoginFailed)
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	session, err := s.sessions.Create(ctx, token, user.ID)
	if err != nil {
		s.metrics.Login(metrics.LoginFailed)
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	if created {
		s.metrics.Login(metrics.LoginCreated)
	} else {
		s.metrics.Login(metrics.LoginExisting)
	}
	s.logger.Info("user signed in via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
		slog.Bool("newUser", created),
	)

	return &LoginResult{
		Token:   token,
		Session: session,
		User:    user,
	}, nil
}

func (s *AuthService) findOrCreateUser(ctx context.Context, identity *model.GitHubIdentity) (*model.User, bool, error) {
	user, err := s.users.GetByGitHubID(ctx, identity.GitHubID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, fmt.Errorf("service/auth: looking up user (githubID=%d): %w", identity.GitHubID, err)
	}

	user = &model.User{
		GitHubID: identity.GitHubID,
		Email:    identity.Email,
		Username: identity.Username,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("service/auth: creating user (githubID=%d): %w", identity.GitHubID, err)
	}

	return user, true, nil
}
