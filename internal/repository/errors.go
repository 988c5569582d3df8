package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates an optimistic-concurrency update lost its race:
	// the record changed between load and store.
	ErrConflict = errors.New("repository: concurrent update conflict")
)
