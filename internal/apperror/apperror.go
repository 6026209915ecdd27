// Package apperror defines the domain errors returned by the service and
// repository layers. Handlers translate them into HTTP status codes; nothing
// below the handler layer knows about HTTP.
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
)

// Specific conflict kinds. Each wraps ErrConflict, so callers that only care
// about "something already exists" can match the broader sentinel.
var (
	ErrDuplicateUsername = fmt.Errorf("duplicate username: %w", ErrConflict)
	ErrDuplicateEmail    = fmt.Errorf("duplicate email: %w", ErrConflict)
	ErrDuplicateTitle    = fmt.Errorf("duplicate title: %w", ErrConflict)
)

var (
	ErrSelfFollow         = errors.New("self follow")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
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

func DuplicateUsername(username string) *AppError {
	return &AppError{
		Err:     ErrDuplicateUsername,
		Message: fmt.Sprintf("username %q is already taken", username),
		Field:   "username",
	}
}

func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrDuplicateEmail,
		Message: "email is already taken",
		Field:   "email",
	}
}

func DuplicateTitle(title string) *AppError {
	return &AppError{
		Err:     ErrDuplicateTitle,
		Message: fmt.Sprintf("a post titled %q already exists", title),
		Field:   "title",
	}
}

// SelfFollow is returned when a user tries to follow or unfollow themselves.
func SelfFollow() *AppError {
	return &AppError{
		Err:     ErrSelfFollow,
		Message: "you cannot follow yourself",
	}
}

// InvalidCredentials deliberately does not say which half of the pair was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid email or password",
	}
}
