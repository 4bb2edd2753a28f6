package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL. The schema is created
// by migrations, not by this store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing connection.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a pooled connection from a URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// SaveSubmission inserts a new audit record for a submitted order.
func (s *PostgresStore) SaveSubmission(ctx context.Context, rec *Record) error {
	warnings, err := json.Marshal(rec.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO order_history (
			order_id, patient_id, drug_code, dose, dose_unit,
			route, frequency, duration_days, physician_id, status,
			warnings, overridden, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		rec.OrderID, rec.PatientID, rec.DrugCode, rec.Dose, rec.DoseUnit,
		rec.Route, rec.Frequency, rec.DurationDays, rec.PhysicianID, rec.Status,
		string(warnings), rec.Overridden, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// UpdateStatus sets the recorded status for an order.
func (s *PostgresStore) UpdateStatus(ctx context.Context, orderID, status string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE order_history SET status = $1, updated_at = $2 WHERE order_id = $3",
		status, time.Now(), orderID)
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
func (s *PostgresStore) GetByOrderID(ctx context.Context, orderID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM order_history WHERE order_id = $1 LIMIT 1", orderID)

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
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM order_history WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2",
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
func (s *PostgresStore) ListAll(ctx context.Context, limit int) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM order_history ORDER BY created_at DESC"
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+" LIMIT $1", limit)
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
