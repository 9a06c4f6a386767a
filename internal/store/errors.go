// Package store contains the gorm-backed repositories for users and
// single-use tokens. These sentinel errors are the only failure shapes that
// leave the package; raw gorm errors never cross this boundary.
package store

import "errors"

var (
	// ErrNotFound is returned when no live record matches the query.
	ErrNotFound = errors.New("record not found")

	// ErrExpired is returned by Consume when a matching token exists but its
	// expiry has passed. The stale row is deleted as a side effect.
	ErrExpired = errors.New("token expired")

	// ErrEmailTaken is returned by Create when the email unique index
	// rejects the insert.
	ErrEmailTaken = errors.New("email already registered")
)
