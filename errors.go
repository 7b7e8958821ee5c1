package main

import "errors"

// Failure taxonomy for remote calls and session handling. Each error carries
// the message shown to the user; handlers never surface raw transport errors.

// AuthError indicates rejected credentials or an unverified account.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// ValidationError indicates malformed input, caught locally or by the remote API.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a booking race lost to another caller.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// SessionError indicates the stored token is malformed or no longer accepted.
// It forces a logout.
type SessionError struct {
	Message string
}

func (e *SessionError) Error() string { return e.Message }

// RequestError covers every other non-2xx response and transport failure.
type RequestError struct {
	Op      string
	Status  int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

const genericErrorMessage = "Something went wrong"

// userMessage extracts the display message from any error in the taxonomy.
func userMessage(err error) string {
	var (
		authErr     *AuthError
		validateErr *ValidationError
		conflictErr *ConflictError
		sessionErr  *SessionError
		requestErr  *RequestError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.As(err, &validateErr):
		return validateErr.Message
	case errors.As(err, &conflictErr):
		return conflictErr.Message
	case errors.As(err, &sessionErr):
		return sessionErr.Message
	case errors.As(err, &requestErr):
		return requestErr.Message
	}
	return genericErrorMessage
}
