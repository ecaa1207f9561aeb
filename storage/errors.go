package storage

import (
	"errors"
	"fmt"
)

// ErrorType discriminates the failures every layer of the module reports.
type ErrorType string

const (
	ErrTypeValidation ErrorType = "validation"
	ErrTypeNotFound   ErrorType = "not_found"
	ErrTypeConflict   ErrorType = "conflict"
	ErrTypeStore      ErrorType = "store_error"
)

var (
	// ErrValidation is returned when caller input is malformed or missing.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound is returned when a document or record that must exist is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write lost an optimistic-concurrency race.
	ErrConflict = errors.New("version conflict")
	// ErrStore is returned when the backend is unreachable or answered unexpectedly.
	ErrStore = errors.New("store error")
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	// ID names the offending document path or record id, when there is one.
	ID string
	// StatusCode is the status reported by a remote backend, 0 if none.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.ID != "" {
		msg += fmt.Sprintf(" (%s)", e.ID)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" [status %d]", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel matching e.Type.
func (e *Error) Is(target error) bool {
	switch e.Type {
	case ErrTypeValidation:
		return target == ErrValidation
	case ErrTypeNotFound:
		return target == ErrNotFound
	case ErrTypeConflict:
		return target == ErrConflict
	case ErrTypeStore:
		return target == ErrStore
	}
	return false
}

// ConflictError is returned by Store.Write when the expected version no longer
// matches the stored one.
type ConflictError struct {
	Path     string
	Expected string
	// Current is the version the store holds, empty when the backend does not report it.
	Current string
}

func (e *ConflictError) Error() string {
	if e.Current != "" {
		return fmt.Sprintf("version conflict on %s: expected %s, current %s", e.Path, e.Expected, e.Current)
	}
	return fmt.Sprintf("version conflict on %s: expected %s", e.Path, e.Expected)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewValidationError builds a validation error.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Type: ErrTypeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError builds a not-found error naming the missing id.
func NewNotFoundError(id, message string) *Error {
	return &Error{Type: ErrTypeNotFound, ID: id, Message: message}
}

// NewStoreError builds a store error carrying the backend status code.
func NewStoreError(statusCode int, message string, err error) *Error {
	return &Error{Type: ErrTypeStore, StatusCode: statusCode, Message: message, Err: err}
}

// KindOf classifies err into one of the error types. Errors that carry no
// classification are reported as store errors.
func KindOf(err error) ErrorType {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return ErrTypeValidation
	case errors.Is(err, ErrNotFound):
		return ErrTypeNotFound
	case errors.Is(err, ErrConflict):
		return ErrTypeConflict
	default:
		return ErrTypeStore
	}
}
