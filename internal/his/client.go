// Package his talks to the hospital information system. The mock client
// stands in for the real HIS during development and testing; both
// implementations share the Client interface so they can be swapped by
// configuration.
package his

import (
	"context"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// HIS error codes returned inside OrderResponse. These mirror the upstream
// system's responses and are never retried.
const (
	ErrCodePatientNotFound     = "PATIENT_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeAlreadyDiscontinued = "ALREADY_DISCONTINUED"
)

// OrderResponse is the HIS reply to an order mutation.
type OrderResponse struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"order_id,omitempty"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

// CreateOrderRequest carries a new medication order to the HIS.
type CreateOrderRequest struct {
	PatientID    string  `json:"patient_id"`
	DrugCode     string  `json:"drug_code"`
	DrugName     string  `json:"drug_name,omitempty"`
	Dose         float64 `json:"dose"`
	DoseUnit     string  `json:"dose_unit"`
	Route        string  `json:"route"`
	Frequency    string  `json:"frequency"`
	DurationDays int     `json:"duration_days"`
	PhysicianID  string  `json:"physician_id"`
	Notes        string  `json:"notes,omitempty"`
}

// Client is the hospital information system order interface.
// A nil patient with a nil error means the patient is unknown to the HIS.
type Client interface {
	GetPatient(ctx context.Context, patientID string) (*domain.Patient, error)
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error)
	DiscontinueOrder(ctx context.Context, orderID, reason string) (*OrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetPatientActiveOrders(ctx context.Context, patientID string) ([]domain.Order, error)
}
