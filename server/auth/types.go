package auth

import (
	"context"
	"fmt"
)

// Principal represents an authenticated API client
type Principal struct {
	ID string
}

// ErrorType represents the type of authentication error
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
)

// Error represents an authentication-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Authenticator resolves a bearer token to the client it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}
