// Package apperrors defines the stable error taxonomy shared by every
// service and translated to the HTTP error envelope at the router boundary.
package apperrors

import "net/http"

// Error is a domain error carrying a stable numeric code, the HTTP status
// class it maps to, and a human-readable detail string. The code is part of
// the public API contract and must never be renumbered.
type Error struct {
	Code    int
	Status  int
	Details string
}

func (e *Error) Error() string {
	return e.Details
}

// WithDetails returns a copy of the error with context-specific detail text.
// The code and status are preserved so errors.Is still matches the sentinel.
func (e *Error) WithDetails(details string) *Error {
	return &Error{Code: e.Code, Status: e.Status, Details: details}
}

// Is matches any Error with the same code, so wrapped and detail-overridden
// values compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Code == e.Code
}

var (
	ErrUnexpected = &Error{
		Code:    1,
		Status:  http.StatusInternalServerError,
		Details: "Unexpected error",
	}
	ErrInvalidInputFormat = &Error{
		Code:    2,
		Status:  http.StatusUnprocessableEntity,
		Details: "Invalid input format",
	}
	ErrAuthorizationRequired = &Error{
		Code:    3,
		Status:  http.StatusUnauthorized,
		Details: "Authorization required",
	}
	ErrAccessDenied = &Error{
		Code:    4,
		Status:  http.StatusForbidden,
		Details: "Access is denied",
	}
	ErrContentNotFound = &Error{
		Code:    5,
		Status:  http.StatusNotFound,
		Details: "Content was not found",
	}
	ErrInvalidToken = &Error{
		Code:    6,
		Status:  http.StatusBadRequest,
		Details: "Invalid token",
	}
	ErrExpiredToken = &Error{
		Code:    7,
		Status:  http.StatusBadRequest,
		Details: "The token is expired",
	}
	ErrTakenLogin = &Error{
		Code:    8,
		Status:  http.StatusBadRequest,
		Details: "This login is already taken",
	}
	ErrInvalidCredentials = &Error{
		Code:    9,
		Status:  http.StatusBadRequest,
		Details: "Invalid email or password",
	}
)
