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

// PutDocument stores a document in the cache. If the cache would exceed
// its quota, the oldest documents are evicted until the new one fits.
func (s *Storage) PutDocument(ctx context.Context, doc *models.CachedDocument) error {
	if doc.Size > s.cacheQuota {
		return fmt.Errorf("document %q (%d bytes) exceeds cache quota (%d bytes)",
			doc.ID, doc.Size, s.cacheQuota)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return fmt.Errorf("cache bucket not found")
		}

		var docs []*models.CachedDocument
		if err := bucket.ForEach(func(k, v []byte) error {
			cached := &models.CachedDocument{}
			if err := json.Unmarshal(v, cached); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}
			if cached.ID != doc.ID {
				docs = append(docs, cached)
			}
			return nil
		}); err != nil {
			return err
		}

		var used int64
		for _, d := range docs {
			used += d.Size
		}

		// Evict oldest first until the new document fits.
		sort.Slice(docs, func(i, j int) bool {
			return docs[i].CachedAt < docs[j].CachedAt
		})
		for _, victim := range docs {
			if used+doc.Size <= s.cacheQuota {
				break
			}
			if err := bucket.Delete([]byte(victim.ID)); err != nil {
				return fmt.Errorf("failed to evict document: %w", err)
			}
			used -= victim.Size
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		return bucket.Put([]byte(doc.ID), data)
	})
}

// GetDocument retrieves a cached document by ID
func (s *Storage) GetDocument(ctx context.Context, id string) (*models.CachedDocument, error) {
	var doc *models.CachedDocument

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return fmt.Errorf("cache bucket not found")
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrDocumentNotFound
		}

		doc = &models.CachedDocument{}
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("failed to unmarshal document: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return doc, nil
}

// ListDocuments returns all cached documents, newest first
func (s *Storage) ListDocuments(ctx context.Context) ([]*models.CachedDocument, error) {
	var docs []*models.CachedDocument

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return fmt.Errorf("cache bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			doc := &models.CachedDocument{}
			if err := json.Unmarshal(v, doc); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}
			docs = append(docs, doc)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CachedAt > docs[j].CachedAt
	})

	return docs, nil
}

// RemoveDocument evicts a cached document by ID
func (s *Storage) RemoveDocument(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return fmt.Errorf("cache bucket not found")
		}

		if bucket.Get([]byte(id)) == nil {
			return storage.ErrDocumentNotFound
		}

		return bucket.Delete([]byte(id))
	})
}

// Usage reports cache occupancy and its quota
func (s *Storage) Usage(ctx context.Context) (used, quota int64, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return fmt.Errorf("cache bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			doc := &models.CachedDocument{}
			if err := json.Unmarshal(v, doc); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}
			used += doc.Size
			return nil
		})
	})

	if err != nil {
		return 0, 0, err
	}

	return used, s.cacheQuota, nil
}

// ClearDocuments evicts every cached document
func (s *Storage) ClearDocuments(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketCache); err != nil {
			return fmt.Errorf("failed to delete cache bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketCache); err != nil {
			return fmt.Errorf("failed to recreate cache bucket: %w", err)
		}
		return nil
	})
}
