// Package apperror defines the error kinds shared by every layer of the service.
//
// Each kind is a sentinel (ErrNotFound, ErrConflict, ...) wrapped inside an
// *AppError that carries a human-readable message. Callers test the kind with
// errors.Is and pull the message out with errors.As:
//
//	if errors.Is(err, apperror.ErrConflict) { ... }
//
// The HTTP layer is the only place that turns kinds into status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrQuery      = errors.New("query failed")
)

type AppError struct {
	Err     error  // kind sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying driver error (never shown to clients)
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is works for ErrQuery as well as for driver errors like context.Canceled.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation on resource.field = value.
func Conflict(resource, field, value string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with %s %s already exists", resource, field, value),
		Field:   field,
	}
}

// QueryFailed wraps a store/driver error. The message stays generic; the
// cause is kept for logs only. HTTP handlers map this to 500.
func QueryFailed(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrQuery,
		Message: fmt.Sprintf("query failed: %s", op),
		Cause:   cause,
	}
}
