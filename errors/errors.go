package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized       = fmt.Errorf("invalid or expired credential")
	ErrForbidden          = fmt.Errorf("not a party to this agreement")
	ErrAgreementNotOpen   = fmt.Errorf("chat is only available for accepted agreements")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrEmptyContent       = fmt.Errorf("message content cannot be empty")
	ErrMalformedEvent     = fmt.Errorf("malformed client event")
	ErrSlowConsumer       = fmt.Errorf("connection send buffer full")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

var sentinels = []error{
	ErrUnauthorized,
	ErrForbidden,
	ErrAgreementNotOpen,
	ErrNotFound,
	ErrEmptyContent,
	ErrMalformedEvent,
	ErrInvalidPassword,
	ErrUserAlreadyExists,
	ErrInvalidCredentials,
}

// ClientMessage returns the fixed client-facing text for an error: the
// sentinel's own message, stripped of any wrapped detail such as user or
// agreement identifiers. The full chain belongs in logs, never on the wire.
func ClientMessage(err error) string {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}

// MapToHTTPStatus translates domain sentinel errors to HTTP status codes
// at the transport edge. Unknown errors are treated as internal.
func MapToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAgreementNotOpen):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrMalformedEvent),
		errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
