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

// Enqueue appends an item to the write queue. The bucket sequence
// stamps item.Seq so FIFO order survives restarts.
func (s *Storage) Enqueue(ctx context.Context, item *models.QueuedItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		item.Seq = seq

		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}

		if err := bucket.Put([]byte(item.ID), data); err != nil {
			return fmt.Errorf("failed to save item: %w", err)
		}

		return nil
	})
}

// Get retrieves a queued item by ID
func (s *Storage) Get(ctx context.Context, id string) (*models.QueuedItem, error) {
	var item *models.QueuedItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrItemNotFound
		}

		item = &models.QueuedItem{}
		if err := json.Unmarshal(data, item); err != nil {
			return fmt.Errorf("failed to unmarshal item: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return item, nil
}

// List returns all queued items in enqueue order.
func (s *Storage) List(ctx context.Context) ([]*models.QueuedItem, error) {
	return s.listWhere(func(*models.QueuedItem) bool { return true })
}

// ListPending returns items eligible for a sync attempt, in enqueue
// order: pending items plus failed items that still have a scheduled
// retry. Conflict and syncing items are excluded.
func (s *Storage) ListPending(ctx context.Context) ([]*models.QueuedItem, error) {
	return s.listWhere(func(item *models.QueuedItem) bool {
		switch item.Status {
		case models.StatusPending:
			return true
		case models.StatusFailed:
			return item.NextRetryAt > 0
		default:
			return false
		}
	})
}

func (s *Storage) listWhere(keep func(*models.QueuedItem) bool) ([]*models.QueuedItem, error) {
	var items []*models.QueuedItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			item := &models.QueuedItem{}
			if err := json.Unmarshal(v, item); err != nil {
				return fmt.Errorf("failed to unmarshal item: %w", err)
			}

			if keep(item) {
				items = append(items, item)
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })

	return items, nil
}

// Transition atomically loads an item, applies fn to it and persists
// the result. If fn returns an error the item is left untouched.
func (s *Storage) Transition(
	ctx context.Context,
	id string,
	fn func(*models.QueuedItem) error,
) (*models.QueuedItem, error) {
	var item *models.QueuedItem

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrItemNotFound
		}

		item = &models.QueuedItem{}
		if err := json.Unmarshal(data, item); err != nil {
			return fmt.Errorf("failed to unmarshal item: %w", err)
		}

		if err := fn(item); err != nil {
			return err
		}

		updated, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}

		if err := bucket.Put([]byte(id), updated); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return item, nil
}

// Remove deletes an item from the queue
func (s *Storage) Remove(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		if bucket.Get([]byte(id)) == nil {
			return storage.ErrItemNotFound
		}

		return bucket.Delete([]byte(id))
	})
}

// RemoveByStatus deletes all items with the given status and returns
// how many were removed.
func (s *Storage) RemoveByStatus(ctx context.Context, status models.ItemStatus) (int, error) {
	removed := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		var keys [][]byte
		if err := bucket.ForEach(func(k, v []byte) error {
			item := &models.QueuedItem{}
			if err := json.Unmarshal(v, item); err != nil {
				return fmt.Errorf("failed to unmarshal item: %w", err)
			}
			if item.Status == status {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete item: %w", err)
			}
			removed++
		}

		return nil
	})

	if err != nil {
		return 0, err
	}

	return removed, nil
}

// CountByStatus tallies queued items per status
func (s *Storage) CountByStatus(ctx context.Context) (map[models.ItemStatus]int, error) {
	counts := make(map[models.ItemStatus]int)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			item := &models.QueuedItem{}
			if err := json.Unmarshal(v, item); err != nil {
				return fmt.Errorf("failed to unmarshal item: %w", err)
			}
			counts[item.Status]++
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return counts, nil
}

// Clear removes every item from the queue
func (s *Storage) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketQueue); err != nil {
			return fmt.Errorf("failed to delete queue bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketQueue); err != nil {
			return fmt.Errorf("failed to recreate queue bucket: %w", err)
		}
		return nil
	})
}
