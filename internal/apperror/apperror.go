// Package apperror defines the error taxonomy shared by the notebook layers.
//
// Every refusal that reaches a caller is an *AppError wrapping one of the
// sentinel errors below, so callers branch with errors.Is and display
// AppError.Message as-is:
//
//	err := store.AddCategory("frontend", nil)
//	errors.Is(err, apperror.ErrConflict) // true when "Frontend" already exists
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable reason, safe to show to the user
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// AlreadyExists reports a name collision. Name comparisons in this module are
// case-insensitive, so the message quotes the name the caller asked for.
func AlreadyExists(resource, field, name string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s %q already exists", resource, name),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the operation is not allowed.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
