package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/model"
)

func insertTestSession(t *testing.T, db *DB, id string, userID int64, expiresAt time.Time) *model.Session {
	t.Helper()
	s := &model.Session{ID: id, UserID: userID, ExpiresAt: expiresAt}
	if err := db.Insert(context.Background(), s); err != nil {
		t.Fatalf("failed to insert test session: %v", err)
	}
	return s
}

func TestSessionInsertAndFind(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 42, "alice")
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	insertTestSession(t, db, "abc", user.ID, expires)

	s, u, err := db.FindByIDWithUser(context.Background(), "abc")
	if err != nil {
		t.Fatalf("FindByIDWithUser() error = %v", err)
	}
	if s.ID != "abc" || s.UserID != user.ID {
		t.Errorf("session = %+v, want id abc owned by %d", s, user.ID)
	}
	if !s.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, expires)
	}
	if u.Username != "alice" || u.GitHubID != 42 {
		t.Errorf("user = %+v, want alice/42", u)
	}
}

func TestSessionExpiryStoredAsWholeSeconds(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	expires := time.Date(2030, 1, 1, 0, 0, 0, 900_000_000, time.UTC)

	insertTestSession(t, db, "frac", user.ID, expires)

	s, _, err := db.FindByIDWithUser(context.Background(), "frac")
	if err != nil {
		t.Fatalf("FindByIDWithUser() error = %v", err)
	}
	if want := expires.Truncate(time.Second); !s.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, want)
	}
}

func TestSessionFind_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, _, err := db.FindByIDWithUser(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindByIDWithUser() error = %v, want ErrNotFound", err)
	}
}

func TestSessionInsert_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.Insert(context.Background(), &model.Session{ID: "x", UserID: 777, ExpiresAt: time.Now()})
	if !errors.Is(err, apperror.ErrStorage) {
		t.Errorf("Insert() error = %v, want ErrStorage (foreign key)", err)
	}
}

func TestSessionInsert_DuplicateID(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	insertTestSession(t, db, "dup", user.ID, time.Now())

	err := db.Insert(context.Background(), &model.Session{ID: "dup", UserID: user.ID, ExpiresAt: time.Now()})
	if !errors.Is(err, apperror.ErrStorage) {
		t.Errorf("Insert() error = %v, want ErrStorage", err)
	}
}

func TestSessionUpdateExpiry(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	insertTestSession(t, db, "s1", user.ID, time.Unix(1000, 0))

	newExpiry := time.Unix(5000, 0)
	if err := db.UpdateExpiry(context.Background(), "s1", newExpiry); err != nil {
		t.Fatalf("UpdateExpiry() error = %v", err)
	}
	// Second update with the same value is harmless.
	if err := db.UpdateExpiry(context.Background(), "s1", newExpiry); err != nil {
		t.Fatalf("UpdateExpiry() repeat error = %v", err)
	}

	s, _, err := db.FindByIDWithUser(context.Background(), "s1")
	if err != nil {
		t.Fatalf("FindByIDWithUser() error = %v", err)
	}
	if s.ExpiresAt.Unix() != 5000 {
		t.Errorf("ExpiresAt = %d, want 5000", s.ExpiresAt.Unix())
	}
}

func TestSessionUpdateExpiry_MissingIsNoop(t *testing.T) {
	db := newTestDB(t)

	if err := db.UpdateExpiry(context.Background(), "ghost", time.Now()); err != nil {
		t.Errorf("UpdateExpiry() on missing row error = %v, want nil", err)
	}
}

func TestSessionDeleteByID(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	insertTestSession(t, db, "s1", user.ID, time.Now().Add(time.Hour))
	insertTestSession(t, db, "s2", user.ID, time.Now().Add(time.Hour))

	if err := db.DeleteByID(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}
	if err := db.DeleteByID(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteByID() second call error = %v", err)
	}

	if _, _, err := db.FindByIDWithUser(context.Background(), "s1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("s1 after delete: error = %v, want ErrNotFound", err)
	}
	if _, _, err := db.FindByIDWithUser(context.Background(), "s2"); err != nil {
		t.Errorf("s2 should survive deleting s1, got %v", err)
	}
}

func TestSessionDeleteAllForUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, 1, "alice")
	bob := createTestUser(t, db, 2, "bob")
	insertTestSession(t, db, "a1", alice.ID, time.Now().Add(time.Hour))
	insertTestSession(t, db, "a2", alice.ID, time.Now().Add(time.Hour))
	insertTestSession(t, db, "b1", bob.ID, time.Now().Add(time.Hour))

	if err := db.DeleteAllForUser(context.Background(), alice.ID); err != nil {
		t.Fatalf("DeleteAllForUser() error = %v", err)
	}

	for _, id := range []string{"a1", "a2"} {
		if _, _, err := db.FindByIDWithUser(context.Background(), id); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("%s after DeleteAllForUser: error = %v, want ErrNotFound", id, err)
		}
	}
	if _, _, err := db.FindByIDWithUser(context.Background(), "b1"); err != nil {
		t.Errorf("bob's session should survive, got %v", err)
	}

	// No sessions left: still not an error.
	if err := db.DeleteAllForUser(context.Background(), alice.ID); err != nil {
		t.Errorf("DeleteAllForUser() on empty set error = %v", err)
	}
}

func TestDeletingUserCascadesToSessions(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	insertTestSession(t, db, "s1", user.ID, time.Now().Add(time.Hour))

	if _, err := db.conn.Exec(`DELETE FROM users WHERE id = ?`, user.ID); err != nil {
		t.Fatalf("deleting user: %v", err)
	}

	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		t.Fatalf("counting sessions: %v", err)
	}
	if count != 0 {
		t.Errorf("sessions left after deleting owner = %d, want 0", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
