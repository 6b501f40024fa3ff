package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/model"
	"github.com/sakif/github-login/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

// Insert persists a new session. The caller has already derived session.ID
// from the token; this layer never sees the token.
func (db *DB) Insert(ctx context.Context, session *model.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`,
		session.ID,
		session.UserID,
		session.ExpiresAt.Unix(),
	)
	if err != nil {
		return apperror.Storage("sqlite: inserting session", err)
	}
	return nil
}

// FindByIDWithUser loads a session and its owner in one JOIN, so the caller
// never sees a session without its user.
func (db *DB) FindByIDWithUser(ctx context.Context, id string) (*model.Session, *model.User, error) {
	var (
		s         model.Session
		u         model.User
		expiresAt int64
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT sessions.id, sessions.user_id, sessions.expires_at,
		        users.id, users.github_id, users.email, users.username
		 FROM sessions
		 INNER JOIN users ON sessions.user_id = users.id
		 WHERE sessions.id = ?`,
		id,
	).Scan(
		&s.ID,
		&s.UserID,
		&expiresAt,
		&u.ID,
		&u.GitHubID,
		&u.Email,
		&u.Username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperror.NotFound("session", id)
		}
		return nil, nil, apperror.Storage("sqlite: finding session", err)
	}

	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &s, &u, nil
}

// UpdateExpiry moves a session's expiry. Updating a missing row is a no-op.
func (db *DB) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE id = ?`,
		expiresAt.Unix(),
		id,
	)
	if err != nil {
		return apperror.Storage("sqlite: updating session expiry", err)
	}
	return nil
}

// DeleteByID removes one session. Deleting a missing row is a no-op.
func (db *DB) DeleteByID(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return apperror.Storage("sqlite: deleting session", err)
	}
	return nil
}

// DeleteAllForUser signs a user out everywhere.
func (db *DB) DeleteAllForUser(ctx context.Context, userID int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return apperror.Storage("sqlite: deleting user sessions", err)
	}
	return nil
}
