package storage

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every error the core can surface. Callers branch on
// the kind, not on sentinel values.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindTransaction
	KindRepository
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindTransaction:
		return "transaction"
	case KindRepository:
		return "repository"
	default:
		return "unknown"
	}
}

// Error tags a failure with its kind and the entity (and optionally the
// field) that triggered it. Underlying storage errors stay reachable
// through Unwrap.
type Error struct {
	Kind   ErrorKind
	Entity string
	Field  string
	Err    error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s error: %s.%s: %v", e.Kind, e.Entity, e.Field, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Entity, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(entity, field, msg string) *Error {
	return &Error{Kind: KindValidation, Entity: entity, Field: field, Err: errors.New(msg)}
}

func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Err: fmt.Errorf("%q does not exist", id)}
}

func NewTransactionError(op string, err error) *Error {
	return &Error{Kind: KindTransaction, Entity: op, Err: err}
}

func NewRepositoryError(entity string, err error) *Error {
	return &Error{Kind: KindRepository, Entity: entity, Err: err}
}

// KindOf reports the kind of err, or KindUnknown if err carries no kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
