// Package apperror defines the error taxonomy shared by services and the HTTP boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Type classifies an application error
type Type int

const (
	Internal Type = iota
	Validation
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	InvalidCredentials
	BadRequest
)

// FieldError describes a single field-level violation
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is an error carrying a classification and a client-safe message
type AppError struct {
	Type    Type
	Message string
	Fields  []FieldError
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

// StatusCode returns the HTTP status for the error type
func (e *AppError) StatusCode() int {
	switch e.Type {
	case Validation:
		return http.StatusUnprocessableEntity
	case Unauthenticated, InvalidCredentials:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case BadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// New creates an AppError of the given type
func New(t Type, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewValidation creates a validation error from a list of field violations
func NewValidation(fields []FieldError) *AppError {
	return &AppError{Type: Validation, Message: "validation failed", Fields: fields}
}

// NewFieldValidation creates a validation error for a single field
func NewFieldValidation(field, message string) *AppError {
	return NewValidation([]FieldError{{Field: field, Message: message}})
}

func NewUnauthenticated(message string) *AppError {
	return New(Unauthenticated, message, nil)
}

func NewForbidden(message string) *AppError {
	return New(Forbidden, message, nil)
}

func NewNotFound(message string) *AppError {
	return New(NotFound, message, nil)
}

func NewConflict(message string, err error) *AppError {
	return New(Conflict, message, err)
}

func NewBadRequest(message string, err error) *AppError {
	return New(BadRequest, message, err)
}

// ErrInvalidCredentials is returned for every login mismatch. Unknown email and
// wrong password must produce the same value.
var ErrInvalidCredentials = New(InvalidCredentials, "invalid email or password", nil)

// As returns the AppError in err's chain, if any
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err's chain contains an AppError of type t
func Is(err error, t Type) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}
