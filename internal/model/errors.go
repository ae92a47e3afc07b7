package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned when a username and password do not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSelfFollow is returned when a user tries to follow or unfollow themselves.
var ErrSelfFollow = &ValidationError{Field: "followed", Reason: "users cannot follow themselves"}

// NotFoundError names the missing entity. It matches ErrNotFound.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewErrUserNotFound returns a NotFoundError for a user key.
func NewErrUserNotFound(key string) error {
	return &NotFoundError{Entity: "user", Key: key}
}

// NewErrPostNotFound returns a NotFoundError for a post id.
func NewErrPostNotFound(id int64) error {
	return &NotFoundError{Entity: "post", Key: fmt.Sprint(id)}
}

// ValidationError is a rejected request that caused no state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransactionAbortError reports a transaction that did not commit.
type TransactionAbortError struct {
	Err error
}

func (e *TransactionAbortError) Error() string {
	return fmt.Sprintf("transaction aborted: %v", e.Err)
}

func (e *TransactionAbortError) Unwrap() error {
	return e.Err
}

// IndexUnavailableError reports a search index operation that could not be applied.
type IndexUnavailableError struct {
	Op    string
	Index string
	ID    int64
	Err   error
}

func (e *IndexUnavailableError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("search index %s %s: %v", e.Index, e.Op, e.Err)
	}
	return fmt.Sprintf("search index %s %s %d: %v", e.Index, e.Op, e.ID, e.Err)
}

func (e *IndexUnavailableError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
