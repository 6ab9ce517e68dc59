package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketQueue     = []byte("queue")
	bucketConflicts = []byte("conflicts")
	bucketStats     = []byte("stats")
	bucketCache     = []byte("cache")
	bucketSession   = []byte("session")
)

// DefaultCacheQuota bounds the document cache when no quota is supplied.
const DefaultCacheQuota = 50 << 20 // 50 MiB

// Storage represents BoltDB storage implementation for the client.
// A single instance backs the queue, conflict log, stats, document
// cache and session buckets.
type Storage struct {
	db         *bbolt.DB
	cacheQuota int64
}

// Option configures a Storage instance.
type Option func(*Storage)

// WithCacheQuota sets the document cache quota in bytes.
func WithCacheQuota(quota int64) Option {
	return func(s *Storage) {
		if quota > 0 {
			s.cacheQuota = quota
		}
	}
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db, cacheQuota: DefaultCacheQuota}
	for _, opt := range opts {
		opt(storage)
	}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets creates the required buckets if they do not exist
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketQueue,
			bucketConflicts,
			bucketStats,
			bucketCache,
			bucketSession,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
