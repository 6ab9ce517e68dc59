package storage

import "errors"

// Common client storage errors
var (
	// ErrItemNotFound indicates that a queued item was not found
	ErrItemNotFound = errors.New("queued item not found")

	// ErrConflictNotFound indicates that a sync conflict was not found
	ErrConflictNotFound = errors.New("sync conflict not found")

	// ErrConflictResolved indicates that the conflict is already resolved
	ErrConflictResolved = errors.New("sync conflict already resolved")

	// ErrDocumentNotFound indicates that a cached document was not found
	ErrDocumentNotFound = errors.New("cached document not found")

	// ErrSessionNotFound indicates that no session token is stored
	ErrSessionNotFound = errors.New("session not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
