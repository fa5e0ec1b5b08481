// Package repository contains data access logic separated from HTTP handlers.
// This file defines sentinel errors shared across repositories so that
// handlers can distinguish failure scenarios: a missing note or user maps to
// a 404, a duplicate username to a conflict message on the originating form,
// and ErrForbidden to an access refusal the handler turns into a redirect.
package repository

import (
	"errors"
	"strings"
)

// ErrNoteNotFound is returned when no note matches the requested public id.
var ErrNoteNotFound = errors.New("note not found")

// ErrUserNotFound is returned when no user matches the requested username or id.
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameExists is returned when an insert or update collides with the
// unique constraint on users.username. The pre-check in handlers is advisory
// only; this error is the authoritative signal and covers the race between
// check and insert.
var ErrUsernameExists = errors.New("username already exists")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error (1062),
// raised when a unique constraint such as users.username or notes.public_id
// is violated.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
