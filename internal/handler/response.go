package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so every response
// has the same shape and headers.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API looks like:
//   {"error": "not_found", "message": "user not found with id 42"}
//
// The admin UI relies on this: it shows "message" in a toast and never has to
// guess where the text lives.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/usersdot/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable kind (e.g., "conflict")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field, when known
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body is written.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation → 400 validation_error
//	apperror.ErrNotFound   → 404 not_found
//	apperror.ErrConflict   → 409 conflict
//	apperror.ErrQuery      → 500 internal_error (generic message)
//	anything else          → 500 internal_error (generic message)
//
// A failed query never leaks its SQL or driver text to the client; the
// service has already logged the cause.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		kind := "internal_error"
		message := "An internal error occurred"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, kind, message = http.StatusBadRequest, "validation_error", appErr.Message
		case errors.Is(err, apperror.ErrNotFound):
			status, kind, message = http.StatusNotFound, "not_found", appErr.Message
		case errors.Is(err, apperror.ErrConflict):
			status, kind, message = http.StatusConflict, "conflict", appErr.Message
		}

		resp := ErrorResponse{Error: kind, Message: message}
		if status != http.StatusInternalServerError {
			resp.Field = appErr.Field
		}
		writeJSON(w, logger, status, resp)
		return
	}

	// NEVER expose raw error text: it may contain SQL or file paths.
	writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
