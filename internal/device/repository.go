package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for device record persistence.
// Records are JSON documents keyed by devId.
type Repository interface {
	// GetByMAC retrieves the record for a MAC (colon-hex).
	// Returns ErrDeviceNotFound if no record exists.
	GetByMAC(ctx context.Context, mac string) (*Record, error)

	// List retrieves all records ordered by id.
	List(ctx context.Context) ([]Record, error)

	// Save inserts or replaces a record.
	Save(ctx context.Context, rec *Record) error

	// Delete removes a record by id.
	// Returns ErrDeviceNotFound if the record does not exist.
	Delete(ctx context.Context, id uint32) error

	// MaxID returns the highest persisted id, or 0 when empty.
	MaxID(ctx context.Context) (uint32, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByMAC retrieves the record for a MAC.
func (r *SQLiteRepository) GetByMAC(ctx context.Context, mac string) (*Record, error) {
	if mac == "" {
		return nil, ErrDeviceNotFound
	}

	var doc string
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM devices WHERE mac = ? ORDER BY id LIMIT 1`, mac,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by mac: %w", err)
	}
	return decodeRecord(doc)
}

// List retrieves all records.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT doc FROM devices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		rec, err := decodeRecord(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return records, nil
}

// Save inserts or replaces a record.
func (r *SQLiteRepository) Save(ctx context.Context, rec *Record) error {
	if rec.ID == 0 {
		return fmt.Errorf("saving device record: %w", ErrDeviceNotFound)
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling device record: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO devices (id, mac, type, doc, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mac = excluded.mac,
			type = excluded.type,
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		rec.ID, rec.MAC, string(rec.Type), string(doc), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving device record: %w", err)
	}
	return nil
}

// Delete removes a record by id.
func (r *SQLiteRepository) Delete(ctx context.Context, id uint32) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// MaxID returns the highest persisted id.
func (r *SQLiteRepository) MaxID(ctx context.Context) (uint32, error) {
	var maxID sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(id) FROM devices`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("querying max device id: %w", err)
	}
	if !maxID.Valid {
		return 0, nil
	}
	return uint32(maxID.Int64), nil //nolint:gosec // ids are allocated as uint32
}

func decodeRecord(doc string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling device record: %w", err)
	}
	return &rec, nil
}
