package storage

import (
	"context"

	"github.com/offsync/offsync/internal/models"
)

//go:generate moq -out stats_mock.go . StatsStorage

// StatsStorage defines the durable store for sync statistics.
type StatsStorage interface {
	// GetStats retrieves the current counters. Returns zero-valued stats
	// if none have been saved yet.
	GetStats(ctx context.Context) (*models.SyncStats, error)

	// SaveStats persists the counters (write-through).
	SaveStats(ctx context.Context, stats *models.SyncStats) error

	// ResetStats zeroes all counters.
	ResetStats(ctx context.Context) error
}
