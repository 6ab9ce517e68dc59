package storage

import "errors"

// Storage errors
var (
	// ErrRecordNotFound is returned when a record does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists is returned when creating a record whose id is
	// already taken.
	ErrRecordExists = errors.New("record already exists")

	// ErrVersionMismatch is returned when a compare-and-swap update
	// loses against a concurrent write.
	ErrVersionMismatch = errors.New("record version mismatch")
)
