// Package model defines the data structures used throughout the application.
package model

// User is a local account linked to exactly one GitHub account.
//
// A user is created the first time a GitHub account signs in and is not
// modified afterwards. GitHubID is GitHub's numeric account ID, which is stable
// even when the username changes; the UNIQUE constraint on github_id keeps the
// mapping one-to-one.
type User struct {
	ID       int64  `json:"id"       db:"id"`
	GitHubID int64  `json:"githubId" db:"github_id"`
	Email    string `json:"email"    db:"email"`
	Username string `json:"username" db:"username"`
}

// GitHubIdentity is what a completed OAuth flow tells us about the person
// signing in. Email is the verified primary address chosen from /user/emails.
type GitHubIdentity struct {
	GitHubID int64
	Username string
	Email    string
}
