// Package repository declares the persistence interfaces the service layer
// depends on. Implementations live in sub-packages (sqlite, postgres).
package repository

import (
	"context"
	"time"

	"github.com/sakif/github-login/internal/model"
)

// UserRepository stores local accounts.
type UserRepository interface {
	// GetByGitHubID returns apperror.ErrNotFound when no user is linked to githubID.
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// Create inserts the user and sets user.ID.
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository stores sessions keyed by their derived ID.
//
// Every failure other than "no such row" wraps apperror.ErrStorage. Deletes and
// updates are idempotent: touching a row that does not exist is not an error.
type SessionRepository interface {
	Insert(ctx context.Context, session *model.Session) error
	// FindByIDWithUser returns apperror.ErrNotFound when id matches no session.
	FindByIDWithUser(ctx context.Context, id string) (*model.Session, *model.User, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
