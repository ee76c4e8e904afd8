package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials      = errors.New("invalid ci or password")
	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrUnauthorized            = errors.New("unauthorized access")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrSessionNotFound         = errors.New("session not found")
	ErrTokenExpired            = errors.New("token has expired")

	ErrInvalidInput     = errors.New("invalid input data")
	ErrWeakPassword     = errors.New("password does not meet requirements")
	ErrPasswordMismatch = errors.New("passwords do not match")

	ErrDonationNotFound     = errors.New("donation not found")
	ErrDonationNotUpdatable = errors.New("donation can no longer be updated")
	ErrDraftNotFound        = errors.New("draft not found")
	ErrDraftClosed          = errors.New("draft is closed")
	ErrSubmitInFlight       = errors.New("a submit is already in progress for this draft")
	ErrInvalidTransition    = errors.New("status transition not allowed")
	ErrInvalidImage         = errors.New("file is not a supported image")
	ErrImageTooLarge        = errors.New("image exceeds the maximum size")

	ErrSolicitudNotFound = errors.New("solicitud not found")
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// FieldError is a validation failure scoped to a single form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

// AsFieldError reports whether err carries a FieldError.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
