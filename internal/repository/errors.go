// Package repository owns the in-memory collections of the daycare
// center and persists them as whole JSON documents.  The error values
// below are shared by every store so handlers can map them onto HTTP
// statuses: ErrNotFound is a 404, ErrUsernameTaken a 409 and a
// *ValidationError a 400.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a mutation or lookup targets an id that
// does not exist in the collection.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when a new account or teacher would
// reuse an existing username.  Usernames are unique across users and
// teachers.
var ErrUsernameTaken = errors.New("username already exists")

// ErrDocumentNotFound is returned by a DocumentSink when nothing has been
// saved under the requested name yet.  Stores react by seeding defaults.
var ErrDocumentNotFound = errors.New("document not found")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a failure to write a document.  Stores log it
// and keep the in-memory change; it never reaches HTTP callers.
type PersistenceError struct {
	Document string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Document, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
