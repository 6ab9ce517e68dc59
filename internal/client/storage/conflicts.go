package storage

import (
	"context"

	"github.com/offsync/offsync/internal/models"
)

//go:generate moq -out conflicts_mock.go . ConflictStorage

// ConflictStorage defines the durable store for sync conflicts. An item in
// conflict status has exactly one open conflict; resolving or removing the
// item removes its conflict.
type ConflictStorage interface {
	// SaveConflict stores a new conflict.
	SaveConflict(ctx context.Context, conflict *models.SyncConflict) error

	// GetConflict retrieves a conflict by ID.
	// Returns ErrConflictNotFound if it doesn't exist.
	GetConflict(ctx context.Context, id string) (*models.SyncConflict, error)

	// GetConflictByItem retrieves the open conflict for a queued item.
	// Returns ErrConflictNotFound if the item has no open conflict.
	GetConflictByItem(ctx context.Context, itemID string) (*models.SyncConflict, error)

	// ListConflicts returns all conflicts, open ones first, newest first
	// within each group.
	ListConflicts(ctx context.Context) ([]*models.SyncConflict, error)

	// CountOpenConflicts returns the number of unresolved conflicts.
	CountOpenConflicts(ctx context.Context) (int, error)

	// MarkResolved records the resolution for an open conflict.
	// Returns ErrConflictNotFound for an unknown id and
	// ErrConflictResolved if the conflict is already resolved.
	MarkResolved(ctx context.Context, id string, resolution models.Resolution) error

	// RemoveConflictsByItem removes any conflicts linked to the item.
	// Removing conflicts for an item with none is not an error.
	RemoveConflictsByItem(ctx context.Context, itemID string) error

	// ClearConflicts removes all conflicts.
	ClearConflicts(ctx context.Context) error
}
