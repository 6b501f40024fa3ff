package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/model"
	"github.com/sakif/github-login/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

func (db *DB) Insert(ctx context.Context, session *model.Session) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, session.ID, session.UserID, session.ExpiresAt.Unix())
	if err != nil {
		return apperror.Storage("postgres: inserting session", err)
	}
	return nil
}

func (db *DB) FindByIDWithUser(ctx context.Context, id string) (*model.Session, *model.User, error) {
	var (
		s         model.Session
		u         model.User
		expiresAt int64
	)

	err := db.pool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.expires_at,
		       u.id, u.github_id, u.email, u.username
		FROM sessions s
		INNER JOIN users u ON s.user_id = u.id
		WHERE s.id = $1
	`, id).Scan(
		&s.ID,
		&s.UserID,
		&expiresAt,
		&u.ID,
		&u.GitHubID,
		&u.Email,
		&u.Username,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apperror.NotFound("session", id)
	}
	if err != nil {
		return nil, nil, apperror.Storage("postgres: finding session", err)
	}

	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &s, &u, nil
}

func (db *DB) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := db.pool.Exec(ctx, `UPDATE sessions SET expires_at = $1 WHERE id = $2`, expiresAt.Unix(), id)
	if err != nil {
		return apperror.Storage("postgres: updating session expiry", err)
	}
	return nil
}

func (db *DB) DeleteByID(ctx context.Context, id string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return apperror.Storage("postgres: deleting session", err)
	}
	return nil
}

func (db *DB) DeleteAllForUser(ctx context.Context, userID int64) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return apperror.Storage("postgres: deleting user sessions", err)
	}
	return nil
}
