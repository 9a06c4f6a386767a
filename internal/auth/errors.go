// Package auth implements the credential and session-token lifecycle of the
// marketplace account layer: registration, login, refresh-token rotation,
// single-use email-verification and password-reset tokens, and cascading
// session revocation.
//
// These sentinels are the closed failure taxonomy of the package. Handlers
// map them to status codes; nothing below the HTTP layer knows about codes.
package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation flags malformed input. Recoverable by the caller
	// correcting the input; the wrapped cause says what was wrong.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEmail is returned when the normalized email is already
	// registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown email and password mismatch.
	// The two causes are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnverifiedAccount is returned by login when verification is
	// required and the account has not verified its email.
	ErrUnverifiedAccount = errors.New("account not verified")

	// ErrInvalidOrExpiredToken covers not-found and expired uniformly so a
	// caller cannot tell a guessed token from a lapsed one.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrUserNotFound is internal-only; operations surface it as
	// ErrInvalidOrExpiredToken or ErrInternal depending on context.
	ErrUserNotFound = errors.New("user not found")

	// ErrInternal covers store and signing failures not attributable to
	// caller input.
	ErrInternal = errors.New("internal error")
)

// validationError wraps a concrete validator failure so errors.Is matches
// ErrValidation while the message keeps the cause.
func validationError(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// internalError tags a store or crypto failure so errors.Is matches
// ErrInternal. The cause stays in the message for logs only.
func internalError(err error) error {
	return fmt.Errorf("%w: %v", ErrInternal, err)
}
