// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, sets cookies, writes responses
//	Service (business layer) → session policy, login orchestration
//	Repository (data layer)  → reads/writes to the database
//
// Services take repository interfaces, not concrete database types, so tests
// can hand them in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/auth"
	"github.com/sakif/github-login/internal/metrics"
	"github.com/sakif/github-login/internal/model"
	"github.com/sakif/github-login/internal/repository"
)

// Session lifetime policy. These are fixed; nothing overrides them per call.
const (
	// SessionLifetime is how long a new or renewed session lasts.
	SessionLifetime = 30 * 24 * time.Hour
	// SessionRenewalWindow is how close to expiry a session must be before a
	// successful validation pushes its expiry out again.
	SessionRenewalWindow = 15 * 24 * time.Hour
)

// SessionService creates, validates and invalidates sessions.
//
// SLIDING RENEWAL:
// A session lives 30 days. Every validation in its last 15 days resets the
// expiry to now+30d, so an active user stays signed in indefinitely while an
// idle one is signed out after 30 days.
type SessionService struct {
	sessions repository.SessionRepository
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionService creates a SessionService. m may be nil.
func NewSessionService(sessions repository.SessionRepository, m *metrics.Metrics, logger *slog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock. Used by tests to pin "now".
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// Create stores a new session for token, owned by userID, expiring in
// SessionLifetime. The token is hashed here; only the hash is persisted.
func (s *SessionService) Create(ctx context.Context, token string, userID int64) (*model.Session, error) {
	session := &model.Session{
		ID:        auth.DeriveSessionID(token),
		UserID:    userID,
		ExpiresAt: s.now().Add(SessionLifetime).Truncate(time.Second),
	}

	if err := s.sessions.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("service/session: creating session for user %d: %w", userID, err)
	}

	return session, nil
}

// Validate resolves a raw session token to its session and user.
//
// Returns a zero SessionResult (not an error) when the token is unknown or the
// session has expired; expired sessions are deleted on the spot. A session in
// its renewal window is extended and the UPDATED session is returned.
//
// Store failures are returned as errors and never as "no session": a caller
// that cannot tell whether the session is valid must not treat the request as
// authenticated.
func (s *SessionService) Validate(ctx context.Context, token string) (model.SessionResult, error) {
	if token == "" {
		s.metrics.SessionValidated(metrics.OutcomeAbsent)
		return model.SessionResult{}, nil
	}

	id := auth.DeriveSessionID(token)

	session, user, err := s.sessions.FindByIDWithUser(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.metrics.SessionValidated(metrics.OutcomeAbsent)
			return model.SessionResult{}, nil
		}
		s.metrics.SessionValidated(metrics.OutcomeError)
		return model.SessionResult{}, fmt.Errorf("service/session: looking up session: %w", err)
	}

	now := s.now()

	// Hard expiry. !Before is ">=": a session read at its exact expiry instant
	// is already expired.
	if !now.Before(session.ExpiresAt) {
		if err := s.sessions.DeleteByID(ctx, session.ID); err != nil {
			s.metrics.SessionValidated(metrics.OutcomeError)
			return model.SessionResult{}, fmt.Errorf("service/session: deleting expired session: %w", err)
		}
		s.logger.Debug("expired session removed", slog.Int64("userID", session.UserID))
		s.metrics.SessionValidated(metrics.OutcomeExpired)
		return model.SessionResult{}, nil
	}

	if !now.Before(session.ExpiresAt.Add(-SessionRenewalWindow)) {
		// Two concurrent requests may both get here and both write. They write
		// the same value (modulo clock skew), so the race is harmless.
		session.ExpiresAt = now.Add(SessionLifetime).Truncate(time.Second)
		if err := s.sessions.UpdateExpiry(ctx, session.ID, session.ExpiresAt); err != nil {
			s.metrics.SessionValidated(metrics.OutcomeError)
			return model.SessionResult{}, fmt.Errorf("service/session: renewing session: %w", err)
		}
		s.metrics.SessionValidated(metrics.OutcomeRenewed)
		return model.SessionResult{Session: session, User: user, Renewed: true}, nil
	}

	s.metrics.SessionValidated(metrics.OutcomeValid)
	return model.SessionResult{Session: session, User: user}, nil
}

// Invalidate deletes one session (logout).
func (s *SessionService) Invalidate(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("service/session: invalidating session: %w", err)
	}
	return nil
}

// InvalidateAllForUser deletes every session of a user (logout everywhere).
func (s *SessionService) InvalidateAllForUser(ctx context.Context, userID int64) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("service/session: invalidating sessions of user %d: %w", userID, err)
	}
	return nil
}
