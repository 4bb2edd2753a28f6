// Package history persists an audit trail of order submissions and
// discontinuations. The HIS remains the system of record; this store only
// keeps what this server did, for review and reporting.
package history

import (
	"context"
	"time"
)

// Record is one audit entry for an order this server touched.
type Record struct {
	ID           int64     `json:"id"`
	OrderID      string    `json:"order_id"`
	PatientID    string    `json:"patient_id"`
	DrugCode     string    `json:"drug_code"`
	Dose         float64   `json:"dose"`
	DoseUnit     string    `json:"dose_unit"`
	Route        string    `json:"route"`
	Frequency    string    `json:"frequency"`
	DurationDays int       `json:"duration_days"`
	PhysicianID  string    `json:"physician_id"`
	Status       string    `json:"status"`
	Warnings     []string  `json:"warnings,omitempty"`
	Overridden   bool      `json:"overridden"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store is the order audit trail.
type Store interface {
	SaveSubmission(ctx context.Context, rec *Record) error
	UpdateStatus(ctx context.Context, orderID, status string) error
	GetByOrderID(ctx context.Context, orderID string) (*Record, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]Record, error)
	ListAll(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
