package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Record is the server's authoritative copy of a synchronized record.
// Version starts at 1 and increases by one per accepted write; clients
// compare against it to detect concurrent edits.
type Record struct {
	Fields    map[string]json.RawMessage
	ID        string
	Kind      string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordStorage defines the server-side record store.
type RecordStorage interface {
	// GetRecord retrieves a record by id.
	// Returns ErrRecordNotFound if it does not exist.
	GetRecord(ctx context.Context, id string) (*Record, error)

	// CreateRecord inserts a new record at version 1.
	// Returns ErrRecordExists if the id is taken.
	CreateRecord(ctx context.Context, record *Record) error

	// UpdateRecord replaces a record's fields if its stored version
	// still equals baseVersion, bumping the version by one.
	// Returns ErrVersionMismatch when a concurrent write got there
	// first, ErrRecordNotFound when the record is gone.
	UpdateRecord(ctx context.Context, record *Record, baseVersion int64) error

	// ListRecords returns records, optionally filtered by kind
	// (empty kind means all), newest first.
	ListRecords(ctx context.Context, kind string) ([]*Record, error)

	// DeleteRecord removes a record.
	// Returns ErrRecordNotFound if it does not exist.
	DeleteRecord(ctx context.Context, id string) error
}
