// Package apperror defines the error taxonomy shared by the service, repository
// and HTTP layers.
//
// Errors fall into a handful of categories. Each category is a sentinel that
// HTTP handlers match with errors.Is():
//
//	ErrRateLimited      → 429
//	ErrProtocolRestart  → 400 "Please restart the process."
//	ErrNoVerifiedEmail  → 400 "Please verify your GitHub email address."
//	ErrStorage          → 500, never treated as "no session"
//	ErrNotFound         → absent record (sessions: not authenticated)
//
// Specific OAuth failures (state mismatch, missing parameters, ...) are their
// own sentinels, but each one WRAPS ErrProtocolRestart. That way a handler can
// ask the coarse question (errors.Is(err, ErrProtocolRestart)) while tests can
// still ask the precise one (errors.Is(err, ErrStateMismatch)).
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrStorage         = errors.New("storage error")
	ErrRateLimited     = errors.New("rate limited")
	ErrProtocolRestart = errors.New("oauth flow must be restarted")
	ErrNoVerifiedEmail = errors.New("no verified primary email")
)

var (
	ErrMissingParameter  = fmt.Errorf("%w: missing code or state", ErrProtocolRestart)
	ErrStateMismatch     = fmt.Errorf("%w: state mismatch", ErrProtocolRestart)
	ErrExchangeFailed    = fmt.Errorf("%w: code exchange failed", ErrProtocolRestart)
	ErrMalformedResponse = fmt.Errorf("%w: malformed provider response", ErrProtocolRestart)
)

// AppError carries a category sentinel plus a message safe to show callers.
type AppError struct {
	Err     error  // category sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record of the given resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// Malformed reports a provider response whose field could not be parsed.
// Field names the offending JSON key.
func Malformed(field, message string) *AppError {
	return &AppError{
		Err:     ErrMalformedResponse,
		Message: message,
		Field:   field,
	}
}

// Storage wraps a persistence failure so that it matches both ErrStorage and
// the driver's own error.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Messages a browser sees when the login flow fails.
const (
	MsgRestart         = "Please restart the process."
	MsgVerifyEmail     = "Please verify your GitHub email address."
	MsgTooManyRequests = "Too many requests"
	MsgInternal        = "Internal server error"
)

// PlainText maps err to the status and plain-text message for a browser.
//
//	rate limited         → 429 Too many requests
//	no verified email    → 400 Please verify your GitHub email address.
//	any protocol failure → 400 Please restart the process.
//	anything else        → 500
//
// The email check comes first: it is the one failure the user can fix on
// GitHub's side, so it gets its own message.
func PlainText(err error) (int, string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, MsgTooManyRequests
	case errors.Is(err, ErrNoVerifiedEmail):
		return http.StatusBadRequest, MsgVerifyEmail
	case errors.Is(err, ErrProtocolRestart):
		return http.StatusBadRequest, MsgRestart
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}
