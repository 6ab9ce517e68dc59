package storage

import (
	"context"

	"github.com/offsync/offsync/internal/models"
)

//go:generate moq -out queue_mock.go . QueueStorage

// QueueStorage defines the durable store for queued mutations. Every
// mutating operation is write-through: it must be persisted before the
// call returns, so the queue survives process restarts.
//
// All status changes go through Transition so that concurrent mutation
// paths (sync engine, manual retry, conflict resolution) serialize on the
// store and never lose updates to a read-modify-write race.
type QueueStorage interface {
	// Enqueue inserts a new item. Duplicate payloads are valid: they
	// represent independent user actions. The store assigns Seq.
	Enqueue(ctx context.Context, item *models.QueuedItem) error

	// Get retrieves an item by ID.
	// Returns ErrItemNotFound if the item doesn't exist.
	Get(ctx context.Context, id string) (*models.QueuedItem, error)

	// List returns all items sorted by enqueue order (oldest first).
	List(ctx context.Context) ([]*models.QueuedItem, error)

	// ListPending returns items with status pending or failed, sorted by
	// enqueue order (FIFO fairness: the oldest user action syncs first).
	// Conflict items are excluded; they re-enter the queue as pending
	// when their conflict is resolved.
	ListPending(ctx context.Context) ([]*models.QueuedItem, error)

	// Transition atomically applies fn to the stored item and persists
	// the result. fn may change Status, Retries, NextRetryAt, Error and
	// the payload's BaseVersion/Fields (conflict resolution); returning
	// an error from fn aborts the update.
	// Returns ErrItemNotFound if the item doesn't exist.
	Transition(ctx context.Context, id string, fn func(*models.QueuedItem) error) (*models.QueuedItem, error)

	// Remove deletes an item. Used after successful sync, for manual
	// removal, and after conflict resolution replay.
	// Returns ErrItemNotFound if the item doesn't exist.
	Remove(ctx context.Context, id string) error

	// RemoveByStatus bulk-removes all items with the given status and
	// returns how many were removed.
	RemoveByStatus(ctx context.Context, status models.ItemStatus) (int, error)

	// CountByStatus returns the number of items per status.
	CountByStatus(ctx context.Context) (map[models.ItemStatus]int, error)

	// Clear removes all items. Destructive; callers must confirm first.
	Clear(ctx context.Context) error
}
