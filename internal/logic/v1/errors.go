// Package v1 provides the authentication, profile and image business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors for every failure a handler must
// distinguish. They are wrapped with context using fmt.Errorf("%w") when
// returned from business logic methods, and the web layer maps them with
// errors.Is onto one response envelope:
//
//	{"error": {"kind": "invalid_credentials", "message": "..."}}
//
// Infrastructure failures (Postgres, Redis, the vendor API) never leak their
// detail to clients; they are wrapped into ErrInternal, ErrSessionStore,
// ErrServiceUnavailable, ErrVendor or ErrTimeout and logged by the handler.
package v1

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrBadRequest indicates missing or malformed input fields.
	// HTTP Status: 400 Bad Request
	ErrBadRequest = errors.New("bad request")

	// ErrInvalidCredentials indicates the email/password pair does not match.
	// HTTP Status: 400 Bad Request
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates a credential exists without a matching user row.
	// Reported to clients exactly like ErrInvalidCredentials.
	// HTTP Status: 400 Bad Request
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail indicates the email is already registered.
	// HTTP Status: 400 Bad Request
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrUnauthorized indicates a missing, unknown or revoked session token.
	// HTTP Status: 401 Unauthorized
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenNotFound indicates sign-out was called with a token that has no session.
	// HTTP Status: 400 Bad Request
	ErrTokenNotFound = errors.New("token not found")

	// ErrProfileNotFound indicates no user has the requested id.
	// HTTP Status: 404 Not Found
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoProfileFields indicates a profile update carried no recognised field.
	// HTTP Status: 400 Bad Request
	ErrNoProfileFields = errors.New("no profile fields to update")

	// ErrEmptyImageURL indicates /imageurl was called without an image URL.
	// HTTP Status: 400 Bad Request
	ErrEmptyImageURL = errors.New("image url is empty")

	// ErrVendor indicates the face-detection API failed or returned garbage.
	// HTTP Status: 400 Bad Request
	ErrVendor = errors.New("face detection vendor error")

	// ErrSessionStore indicates a session could not be written or deleted.
	// HTTP Status: 500 Internal Server Error
	ErrSessionStore = errors.New("session store error")

	// ErrServiceUnavailable indicates the session store could not be reached
	// while validating a token.
	// HTTP Status: 503 Service Unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInternal indicates a database failure.
	// HTTP Status: 500 Internal Server Error
	ErrInternal = errors.New("internal error")

	// ErrConfiguration indicates required configuration (signing secret, vendor key) is missing.
	// HTTP Status: 500 Internal Server Error
	ErrConfiguration = errors.New("configuration error")

	// ErrTimeout indicates a store or vendor call exceeded its deadline.
	// HTTP Status: 504 Gateway Timeout
	ErrTimeout = errors.New("timeout")
)

// infraError wraps an infrastructure failure as ErrTimeout when a deadline was
// hit and as kind otherwise.
func infraError(op string, kind, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
