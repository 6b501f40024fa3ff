package handler

// RESPONSE HELPERS:
// The JSON API (/api/*) answers with a consistent error shape:
//   {"error": "not_found", "message": "user not found with id 7"}
//
// The browser-facing login flow answers with short plain-text messages
// instead; those are what a user sees if something goes wrong mid-login.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/github-login/internal/apperror"
)

// msgInternal is the plain-text body of every 500 the browser sees.
const msgInternal = apperror.MsgInternal

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body; changes after the first
// Write are silently dropped.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it as JSON.
//
// errors.Is walks the whole chain, so a storage error wrapped three times by
// the service layer still maps to 500. Unknown errors are 500 with a generic
// message: the raw text may contain SQL or driver details.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: "internal_error", Message: "An internal error occurred"}

	var appErr *apperror.AppError
	switch {
	case errors.Is(err, apperror.ErrStorage):
		// keep the generic 500
	case errors.Is(err, apperror.ErrNotFound) && errors.As(err, &appErr):
		status = http.StatusNotFound
		resp = ErrorResponse{Error: "not_found", Message: appErr.Message}
	}

	writeJSON(w, status, resp)
}

// writeUnauthorized answers an API call that needs a session.
func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: "sign in required",
	})
}

// writeAuthError answers a failed login-flow step in plain text, using the
// same mapping as the rate limiter's 429.
func writeAuthError(w http.ResponseWriter, err error) {
	status, msg := apperror.PlainText(err)
	http.Error(w, msg, status)
}
