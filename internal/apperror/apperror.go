// Package apperror defines the error kinds the service layer returns.
//
// Every error carries a sentinel (the kind) and a human-readable message.
// Callers branch on the kind with errors.Is, never on the message text:
//
//	if errors.Is(err, apperror.ErrAlreadyFollowing) { ... }
//
// The HTTP layer (handler.writeError) owns the mapping from kind to status
// code and machine-readable error code.
package apperror

import (
	"errors"
	"fmt"
)

// Generic kinds.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Domain kinds. All of them surface as 400 Bad Request.
var (
	ErrAlreadyInRole           = errors.New("already in role")
	ErrRequestNotFound         = errors.New("role request not found")
	ErrRequestAlreadyProcessed = errors.New("role request already processed")
	ErrAlreadyFollowing        = errors.New("already following")
	ErrNotFollowing            = errors.New("not following")
	ErrArticleNotFound         = errors.New("article not found")
	ErrNotAuthor               = errors.New("not the author")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrEmailTaken              = errors.New("email taken")
)

type AppError struct {
	Err     error  // kind (one of the sentinels above)
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

// Unauthenticated is returned when no valid identity accompanies a request.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// AlreadyInRole reports a role request for the role the user already holds.
func AlreadyInRole(role string) *AppError {
	return &AppError{
		Err:     ErrAlreadyInRole,
		Message: fmt.Sprintf("User is already a %s", role),
	}
}

func RequestNotFound(id int64) *AppError {
	return &AppError{
		Err:     ErrRequestNotFound,
		Message: fmt.Sprintf("Role request %d not found", id),
	}
}

// RequestAlreadyProcessed reports an attempt to resolve a request that is
// no longer PENDING.
func RequestAlreadyProcessed(id int64) *AppError {
	return &AppError{
		Err:     ErrRequestAlreadyProcessed,
		Message: fmt.Sprintf("Role request %d has already been processed", id),
	}
}

func AlreadyFollowing() *AppError {
	return &AppError{
		Err:     ErrAlreadyFollowing,
		Message: "User already followed",
	}
}

func NotFollowing() *AppError {
	return &AppError{
		Err:     ErrNotFollowing,
		Message: "User not followed",
	}
}

func ArticleNotFound(id int64) *AppError {
	return &AppError{
		Err:     ErrArticleNotFound,
		Message: fmt.Sprintf("Article %d not found", id),
	}
}

func NotAuthor() *AppError {
	return &AppError{
		Err:     ErrNotAuthor,
		Message: "Only the author can modify this article",
	}
}

// InvalidCredentials deliberately does not say whether the email or the
// password was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid credentials",
	}
}

func EmailTaken(email string) *AppError {
	return &AppError{
		Err:     ErrEmailTaken,
		Message: fmt.Sprintf("Email %s is already registered", email),
		Field:   "email",
	}
}
