package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/offsync/offsync/internal/server/storage"
)

// GetRecord retrieves a record by id
// Returns ErrRecordNotFound if record doesn't exist
func (s *Storage) GetRecord(ctx context.Context, id string) (*storage.Record, error) {
	query := `
		SELECT id, kind, fields, version, created_at, updated_at
		FROM records
		WHERE id = ?
	`

	record := &storage.Record{}
	var fields string
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Kind,
		&fields,
		&record.Version,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if err := json.Unmarshal([]byte(fields), &record.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record fields: %w", err)
	}
	record.CreatedAt = time.Unix(createdAt, 0)
	record.UpdatedAt = time.Unix(updatedAt, 0)

	return record, nil
}

// CreateRecord inserts a new record at version 1
// Returns ErrRecordExists if the id is already taken
func (s *Storage) CreateRecord(ctx context.Context, record *storage.Record) error {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal record fields: %w", err)
	}

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Version = 1

	query := `
		INSERT INTO records (id, kind, fields, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.Kind,
		string(fields),
		record.Version,
		record.CreatedAt.Unix(),
		record.UpdatedAt.Unix(),
	)
	if err != nil {
		// The id column is the primary key, so a duplicate insert
		// surfaces as a constraint violation.
		if _, getErr := s.GetRecord(ctx, record.ID); getErr == nil {
			return storage.ErrRecordExists
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// UpdateRecord replaces a record's fields iff its stored version still
// equals baseVersion. The version check and the write happen in one
// statement, which is atomic under SQLite's single-writer model.
func (s *Storage) UpdateRecord(ctx context.Context, record *storage.Record, baseVersion int64) error {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal record fields: %w", err)
	}

	record.UpdatedAt = time.Now()
	record.Version = baseVersion + 1

	query := `
		UPDATE records
		SET fields = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		string(fields),
		record.UpdatedAt.Unix(),
		record.ID,
		baseVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		if _, getErr := s.GetRecord(ctx, record.ID); errors.Is(getErr, storage.ErrRecordNotFound) {
			return storage.ErrRecordNotFound
		}
		return storage.ErrVersionMismatch
	}

	return nil
}

// ListRecords returns records filtered by kind (empty kind means all),
// newest first
func (s *Storage) ListRecords(ctx context.Context, kind string) ([]*storage.Record, error) {
	query := `
		SELECT id, kind, fields, version, created_at, updated_at
		FROM records
	`
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*storage.Record
	for rows.Next() {
		record := &storage.Record{}
		var fields string
		var createdAt, updatedAt int64

		if err := rows.Scan(
			&record.ID,
			&record.Kind,
			&fields,
			&record.Version,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if err := json.Unmarshal([]byte(fields), &record.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record fields: %w", err)
		}
		record.CreatedAt = time.Unix(createdAt, 0)
		record.UpdatedAt = time.Unix(updatedAt, 0)

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// DeleteRecord removes a record
// Returns ErrRecordNotFound if record doesn't exist
func (s *Storage) DeleteRecord(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}
