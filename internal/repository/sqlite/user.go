package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/model"
	"github.com/sakif/github-login/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// GetByGitHubID looks up the local user linked to a GitHub account.
// Returns apperror.ErrNotFound if this GitHub account has never signed in.
func (db *DB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, email, username
		 FROM users WHERE github_id = ?`,
		githubID,
	).Scan(
		&u.ID,
		&u.GitHubID,
		&u.Email,
		&u.Username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(githubID, 10))
		}
		return nil, apperror.Storage(fmt.Sprintf("sqlite: getting user by github_id %d", githubID), err)
	}

	return &u, nil
}

// Create inserts a new user and fills in user.ID from the generated rowid.
//
// A second Create for the same GitHub ID violates the UNIQUE constraint and
// fails; callers look the user up first.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (github_id, email, username) VALUES (?, ?, ?)`,
		user.GitHubID,
		user.Email,
		user.Username,
	)
	if err != nil {
		return apperror.Storage(fmt.Sprintf("sqlite: inserting user (githubID=%d)", user.GitHubID), err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return apperror.Storage("sqlite: reading new user id", err)
	}
	user.ID = id

	return nil
}
