package postgres

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/model"
)

// Integration tests run only when TEST_DATABASE_URL points at a disposable
// PostgreSQL database.

func newTestDB(t *testing.T) *DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL is not set; skipping Postgres integration test")
	}

	db, err := New(context.Background(), dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user with a random GitHub ID and removes it (and,
// through the cascade, its sessions) when the test ends.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()

	user := &model.User{
		GitHubID: rand.Int64N(1 << 40),
		Username: username,
		Email:    username + "@example.com",
	}
	require.NoError(t, db.Create(context.Background(), user))
	t.Cleanup(func() {
		_, _ = db.pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, user.ID)
	})
	return user
}

func TestPostgresUser_CreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created := createTestUser(t, db, "alice")
	assert.NotZero(t, created.ID)

	found, err := db.GetByGitHubID(ctx, created.GitHubID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "alice", found.Username)

	_, err = db.GetByGitHubID(ctx, -1)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestPostgresSession_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "bob")

	expires := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
	id := "pg-" + time.Now().Format("150405.000000000")
	require.NoError(t, db.Insert(ctx, &model.Session{ID: id, UserID: user.ID, ExpiresAt: expires}))

	s, u, err := db.FindByIDWithUser(ctx, id)
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.Equal(expires))
	assert.Equal(t, "bob", u.Username)

	later := expires.Add(24 * time.Hour)
	require.NoError(t, db.UpdateExpiry(ctx, id, later))
	s, _, err = db.FindByIDWithUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, later.Unix(), s.ExpiresAt.Unix())

	require.NoError(t, db.DeleteByID(ctx, id))
	require.NoError(t, db.DeleteByID(ctx, id))
	_, _, err = db.FindByIDWithUser(ctx, id)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestPostgresSession_DeleteAllForUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "carol")

	suffix := time.Now().Format("150405.000000000")
	for _, id := range []string{"a-" + suffix, "b-" + suffix} {
		require.NoError(t, db.Insert(ctx, &model.Session{ID: id, UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}))
	}

	require.NoError(t, db.DeleteAllForUser(ctx, user.ID))

	var n int
	require.NoError(t, db.pool.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE user_id = $1`, user.ID).Scan(&n))
	assert.Zero(t, n)
}
