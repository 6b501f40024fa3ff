package model

import "time"

// Session is a server-side login session.
//
// ID is the SHA-256 hex digest of the session token handed to the browser.
// The token itself is never persisted, so a leaked database row cannot be
// replayed as a cookie.
type Session struct {
	ID        string    `json:"-"         db:"id"`
	UserID    int64     `json:"userId"    db:"user_id"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
}

// SessionResult is the outcome of validating a session token. The zero value
// means there is no valid session.
type SessionResult struct {
	Session *Session
	User    *User
	// Renewed is set when this validation pushed the expiry out.
	Renewed bool
}

// Authenticated reports whether the result carries both a session and its user.
func (r SessionResult) Authenticated() bool {
	return r.Session != nil && r.User != nil
}
