// Package validators holds the input rules shared by the registration and
// password flows. Each validator returns a sentinel from this package so
// callers can branch with errors.Is.
package validators

import (
	"errors"
	"net/mail"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")
)

// EmailValidator accepts a single bare address. Display-name forms like
// "Ada <ada@example.com>" are rejected; what gets stored must be the
// address itself.
func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return ErrEmailInvalid
	}

	return nil
}
