// Package apperror defines the typed errors returned by the stores.
//
// Every failure a caller can act on is an *AppError wrapping one of the
// sentinel errors below. Callers never compare messages; they use errors.Is:
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
//
// The HTTP layer maps each sentinel to a status code (see handler/response.go).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrCorrupt      = errors.New("corrupt data")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
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

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized reports a failed credential check (wrong password, bad token).
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Corrupt reports a stored record that could not be decoded or failed
// validation. cause is kept in the chain so the original decode error is
// still reachable with errors.As.
func Corrupt(resource, key string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrCorrupt, cause),
		Message: fmt.Sprintf("%s data is corrupt at %s", resource, key),
	}
}
