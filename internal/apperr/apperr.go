// Package apperr defines the error taxonomy shared by repositories,
// services and HTTP handlers.
//
// Handlers never render the text of an error they did not build
// themselves; they classify it with errors.Is / errors.As and map the
// class to a status code and a fixed message.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller is authenticated but does not own the entity.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is returned when a bearer token is missing, malformed, expired or revoked.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials is returned by login for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicate is returned by repositories on a unique constraint violation.
	ErrDuplicate = errors.New("duplicate")
)

// ValidationError collects field-keyed validation messages.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns e when at least one field failed, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// FieldError is a shorthand for a ValidationError with a single message.
func FieldError(field, msg string) *ValidationError {
	e := NewValidationError()
	e.Add(field, msg)
	return e
}

// PersistenceError wraps a failure of the relational store or the blob store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err as a PersistenceError for op. A nil err stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
