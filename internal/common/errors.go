// Package common defines error kinds shared by the storage, delivery and
// business layers. Callers should use errors.Is / errors.As to match them.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Connectivity errors. Loops that observe ErrOffline pause instead of failing.
	ErrOffline = errors.New("offline")

	// Validation errors.
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Storage errors.
	ErrUnknownCollection = errors.New("unknown collection")
	ErrOutOfScope        = errors.New("collection not in transaction scope")
	ErrMissingKey        = errors.New("record has no key")
)

// StorageError reports a failed store operation: an aborted transaction,
// a constraint violation or an underlying I/O fault.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err unless it already is a *StorageError.
func NewStorageError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Collection: collection, Err: err}
}

// PushError is a non-success response from the remote API.
type PushError struct {
	Method string
	URL    string
	Status int
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push failed %d: %s %s", e.Status, e.Method, e.URL)
}
