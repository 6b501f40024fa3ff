package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/model"
	"github.com/sakif/github-login/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// GetByGitHubID returns apperror.ErrNotFound when no user is linked to githubID.
func (db *DB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var u model.User

	err := db.pool.QueryRow(ctx, `
		SELECT id, github_id, email, username
		FROM users
		WHERE github_id = $1
	`, githubID).Scan(&u.ID, &u.GitHubID, &u.Email, &u.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user", strconv.FormatInt(githubID, 10))
	}
	if err != nil {
		return nil, apperror.Storage(fmt.Sprintf("postgres: getting user by github_id %d", githubID), err)
	}

	return &u, nil
}

// Create inserts the user and sets user.ID from the identity column.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	err := db.pool.QueryRow(ctx, `
		INSERT INTO users (github_id, email, username)
		VALUES ($1, $2, $3)
		RETURNING id
	`, user.GitHubID, user.Email, user.Username).Scan(&user.ID)
	if err != nil {
		return apperror.Storage(fmt.Sprintf("postgres: inserting user (githubID=%d)", user.GitHubID), err)
	}
	return nil
}
