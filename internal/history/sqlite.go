package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using a local SQLite file. This is the
// default for the lite server, which runs without external services.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the order history database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS order_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL UNIQUE,
		patient_id TEXT NOT NULL,
		drug_code TEXT NOT NULL,
		dose REAL NOT NULL,
		dose_unit TEXT NOT NULL,
		route TEXT NOT NULL,
		frequency TEXT NOT NULL,
		duration_days INTEGER NOT NULL DEFAULT 0,
		physician_id TEXT NOT NULL,
		status TEXT NOT NULL,
		warnings TEXT DEFAULT '[]',
		overridden INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_order_history_patient ON order_history(patient_id);
	CREATE INDEX IF NOT EXISTS idx_order_history_created ON order_history(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface over sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var warnings string

	err := s.Scan(
		&rec.ID, &rec.OrderID, &rec.PatientID, &rec.DrugCode,
		&rec.Dose, &rec.DoseUnit, &rec.Route, &rec.Frequency,
		&rec.DurationDays, &rec.PhysicianID, &rec.Status,
		&warnings, &rec.Overridden, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if warnings != "" {
		if err := json.Unmarshal([]byte(warnings), &rec.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings: %w", err)
		}
	}
	return rec, nil
}

const recordColumns = `id, order_id, patient_id, drug_code, dose, dose_unit,
	route, frequency, duration_days, physician_id, status,
	warnings, overridden, created_at, updated_at`

// SaveSubmission inserts a new audit record for a submitted order.
func (s *SQLiteStore) SaveSubmission(ctx context.Context, rec *Record) error {
	warnings, err := json.Marshal(rec.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO order_history (
			order_id, patient_id, drug_code, dose, dose_unit,
			route, frequency, duration_days, physician_id, status,
			warnings, overridden, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.OrderID, rec.PatientID, rec.DrugCode, rec.Dose, rec.DoseUnit,
		rec.Route, rec.Frequency, rec.DurationDays, rec.PhysicianID, rec.Status,
		string(warnings), rec.Overridden, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	rec.ID = id

	return nil
}

// UpdateStatus sets the recorded status for an order.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, orderID, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE order_history SET status = ?, updated_at = ? WHERE order_id = ?
	`, status, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no history record for order %s", orderID)
	}
	return nil
}

// GetByOrderID returns the record for an order, or nil when unknown.
func (s *SQLiteStore) GetByOrderID(ctx context.Context, orderID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM order_history WHERE order_id = ? LIMIT 1", orderID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// ListByPatient returns the patient's records, newest first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM order_history WHERE patient_id = ? ORDER BY created_at DESC LIMIT ?",
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

// ListAll returns the newest records across all patients. A limit of zero
// or less returns everything.
func (s *SQLiteStore) ListAll(ctx context.Context, limit int) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM order_history ORDER BY created_at DESC"
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
