package storage

import (
	"context"

	"github.com/offsync/offsync/internal/models"
)

//go:generate moq -out cache_mock.go . CacheStorage

// CacheStorage defines the read-side document cache, distinct from the
// write queue. The cache is bounded by a byte quota; storing a document
// that would exceed the quota evicts the oldest cached documents first.
type CacheStorage interface {
	// PutDocument stores a document, replacing any previous copy with
	// the same ID and evicting oldest documents if the quota is exceeded.
	PutDocument(ctx context.Context, doc *models.CachedDocument) error

	// GetDocument retrieves a cached document by ID.
	// Returns ErrDocumentNotFound if it isn't cached.
	GetDocument(ctx context.Context, id string) (*models.CachedDocument, error)

	// ListDocuments returns all cached documents, newest first.
	ListDocuments(ctx context.Context) ([]*models.CachedDocument, error)

	// RemoveDocument evicts a document by ID.
	// Returns ErrDocumentNotFound if it isn't cached.
	RemoveDocument(ctx context.Context, id string) error

	// Usage returns the cache's used bytes and its quota.
	Usage(ctx context.Context) (used, quota int64, err error)

	// ClearDocuments evicts everything.
	ClearDocuments(ctx context.Context) error
}
