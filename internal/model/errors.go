package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing run, model artifact or feature set
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks an operation requested before its inputs exist
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput marks a malformed request (empty claim, bad label)
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError names the kind and id of the missing entity
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s does not exist", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// InvalidStateError describes why an operation cannot proceed
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string { return e.Reason }

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// InvalidState builds an InvalidStateError
func InvalidState(format string, args ...any) error {
	return &InvalidStateError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidInput wraps ErrInvalidInput with a description
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
