package models

import "time"

// ItemStatus describes where a queued item is in its sync lifecycle.
type ItemStatus string

// Queue item statuses
const (
	StatusPending  ItemStatus = "pending"
	StatusSyncing  ItemStatus = "syncing"
	StatusFailed   ItemStatus = "failed"
	StatusConflict ItemStatus = "conflict"
	StatusSynced   ItemStatus = "synced"
)

// QueuedItem represents a single pending local mutation awaiting remote
// application. The payload is immutable once enqueued: a new user edit
// creates a new item rather than rewriting an old one, so enqueue order
// is preserved. Only Status, Retries, NextRetryAt and Error change after
// the item is stored (conflict resolution may additionally restamp the
// payload's base version).
type QueuedItem struct {
	ID          string     `json:"id"`           // ID unique identifier (UUID), assigned at enqueue time
	Type        string     `json:"type"`         // Type payload kind of the mutation (see payload.go)
	Payload     Payload    `json:"payload"`      // Payload mutation body plus conflict-detection metadata
	Status      ItemStatus `json:"status"`       // Status current state machine position
	Seq         uint64     `json:"seq"`          // Seq store-assigned monotonic sequence, breaks timestamp ties for FIFO
	Timestamp   int64      `json:"timestamp"`    // Timestamp creation time, epoch millis
	Retries     int        `json:"retries"`      // Retries count of failed sync attempts
	NextRetryAt int64      `json:"next_retry_at,omitempty"` // NextRetryAt epoch millis when the next retry is eligible; 0 = not scheduled
	Error       string     `json:"error,omitempty"`         // Error last failure message, if any
}

// Retriable reports whether a failed item is still eligible for automatic
// retry. Items whose NextRetryAt is zero were either rejected terminally by
// the remote or exhausted their retry budget; they wait for manual action.
func (i *QueuedItem) Retriable(now time.Time) bool {
	if i.Status != StatusFailed {
		return i.Status == StatusPending
	}
	return i.NextRetryAt > 0 && i.NextRetryAt <= now.UnixMilli()
}

// Clone creates a deep copy of the queued item.
func (i *QueuedItem) Clone() *QueuedItem {
	clone := *i
	clone.Payload = i.Payload.Clone()
	return &clone
}
