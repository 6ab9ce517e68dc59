package sync

import (
	"encoding/json"
	"fmt"
)

// NetworkError indicates the server could not be reached at all. The
// engine aborts the cycle without charging the item a retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteRejectedError indicates the server understood the request and
// refused it. Rejections are terminal; retrying would be pointless.
type RemoteRejectedError struct {
	Message    string
	StatusCode int
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Message)
}

// ConflictError carries the server's current record when an apply was
// refused because the record moved past the item's base version.
type ConflictError struct {
	ServerFields  map[string]json.RawMessage
	ServerVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: server at version %d", e.ServerVersion)
}
