package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/offsync/offsync/internal/client/storage"
	"github.com/offsync/offsync/internal/models"
)

// SaveConflict stores or updates a conflict record
func (s *Storage) SaveConflict(ctx context.Context, conflict *models.SyncConflict) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return fmt.Errorf("conflicts bucket not found")
		}

		data, err := json.Marshal(conflict)
		if err != nil {
			return fmt.Errorf("failed to marshal conflict: %w", err)
		}

		if err := bucket.Put([]byte(conflict.ID), data); err != nil {
			return fmt.Errorf("failed to save conflict: %w", err)
		}

		return nil
	})
}

// GetConflict retrieves a conflict by ID
func (s *Storage) GetConflict(ctx context.Context, id string) (*models.SyncConflict, error) {
	var conflict *models.SyncConflict

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return fmt.Errorf("conflicts bucket not found")
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrConflictNotFound
		}

		conflict = &models.SyncConflict{}
		if err := json.Unmarshal(data, conflict); err != nil {
			return fmt.Errorf("failed to unmarshal conflict: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return conflict, nil
}

// GetConflictByItem retrieves the unresolved conflict attached to a
// queued item, if any.
func (s *Storage) GetConflictByItem(ctx context.Context, itemID string) (*models.SyncConflict, error) {
	var found *models.SyncConflict

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return fmt.Errorf("conflicts bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			conflict := &models.SyncConflict{}
			if err := json.Unmarshal(v, conflict); err != nil {
				return fmt.Errorf("failed to unmarshal conflict: %w", err)
			}
			if conflict.ItemID == itemID && !conflict.Resolved {
				found = conflict
			}
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, storage.ErrConflictNotFound
	}

	return found, nil
}

// ListConflicts returns all conflicts, oldest first
func (s *Storage) ListConflicts(ctx context.Context) ([]*models.SyncConflict, error) {
	var conflicts []*models.SyncConflict

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return fmt.Errorf("conflicts bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			conflict := &models.SyncConflict{}
			if err := json.Unmarshal(v, conflict); err != nil {
				return fmt.Errorf("failed to unmarshal conflict: %w", err)
			}
			conflicts = append(conflicts, conflict)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].DetectedAt < conflicts[j].DetectedAt
	})

	return conflicts, nil
}

// CountOpenConflicts counts conflicts that have not been resolved yet
func (s *Storage) CountOpenConflicts(ctx context.Context) (int, error) {
	count := 0

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return fmt.Errorf("conflicts bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			conflict := &models.SyncConflict{}
			if err := json.Unmarshal(v, conflict); err != nil {
				return fmt.Errorf("failed to unmarshal conflict: %w", err)
			}
			if !conflict.Resolved {
				count++
			}
			return nil
		})
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}

// MarkResolved records the chosen resolution for a conflict.
// Returns ErrConflictResolved if it was already resolved.
func (s *Storage) MarkResolved(ctx context.Context, id string, resolution models.Resolution) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return fmt.Errorf("conflicts bucket not found")
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrConflictNotFound
		}

		conflict := &models.SyncConflict{}
		if err := json.Unmarshal(data, conflict); err != nil {
			return fmt.Errorf("failed to unmarshal conflict: %w", err)
		}

		if conflict.Resolved {
			return storage.ErrConflictResolved
		}

		conflict.Resolved = true
		conflict.Resolution = resolution

		updated, err := json.Marshal(conflict)
		if err != nil {
			return fmt.Errorf("failed to marshal conflict: %w", err)
		}

		return bucket.Put([]byte(id), updated)
	})
}

// RemoveConflictsByItem deletes every conflict attached to a queued item
func (s *Storage) RemoveConflictsByItem(ctx context.Context, itemID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return fmt.Errorf("conflicts bucket not found")
		}

		var keys [][]byte
		if err := bucket.ForEach(func(k, v []byte) error {
			conflict := &models.SyncConflict{}
			if err := json.Unmarshal(v, conflict); err != nil {
				return fmt.Errorf("failed to unmarshal conflict: %w", err)
			}
			if conflict.ItemID == itemID {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete conflict: %w", err)
			}
		}

		return nil
	})
}

// ClearConflicts removes every conflict record
func (s *Storage) ClearConflicts(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketConflicts); err != nil {
			return fmt.Errorf("failed to delete conflicts bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketConflicts); err != nil {
			return fmt.Errorf("failed to recreate conflicts bucket: %w", err)
		}
		return nil
	})
}
