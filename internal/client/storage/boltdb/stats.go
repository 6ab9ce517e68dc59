package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/offsync/offsync/internal/models"
)

var keyStats = []byte("current")

// GetStats returns the persisted sync statistics. A zero-valued
// SyncStats is returned when nothing has been recorded yet.
func (s *Storage) GetStats(ctx context.Context) (*models.SyncStats, error) {
	stats := &models.SyncStats{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketStats)
		if bucket == nil {
			return fmt.Errorf("stats bucket not found")
		}

		data := bucket.Get(keyStats)
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, stats); err != nil {
			return fmt.Errorf("failed to unmarshal stats: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return stats, nil
}

// SaveStats persists sync statistics
func (s *Storage) SaveStats(ctx context.Context, stats *models.SyncStats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketStats)
		if bucket == nil {
			return fmt.Errorf("stats bucket not found")
		}

		data, err := json.Marshal(stats)
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}

		return bucket.Put(keyStats, data)
	})
}

// ResetStats clears persisted statistics
func (s *Storage) ResetStats(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketStats)
		if bucket == nil {
			return fmt.Errorf("stats bucket not found")
		}

		return bucket.Delete(keyStats)
	})
}
