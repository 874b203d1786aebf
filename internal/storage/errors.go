package storage

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned by Login when no user matches the given
// email/password pair. It is distinguishable from engine failures so the
// client can show "invalid email or password" instead of a generic error.
var ErrInvalidCredentials = errors.New("invalid email or password")

// SchemaError reports a failed table setup or migration. Fatal to the
// session: surfaced by Open, never mid-operation.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema setup failed: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// StorageError reports a CRUD or query statement that failed against a
// reachable store. Always propagated, never logged-and-dropped.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
