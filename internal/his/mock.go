package his

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// MockClient simulates the HIS order API in memory. It never writes to any
// hospital system; the real HTTP client replaces it in deployment with the
// same interface.
type MockClient struct {
	logger *logrus.Logger

	mu       sync.Mutex
	orders   map[string]*domain.Order
	patients map[string]*domain.Patient
}

// NewMockClient creates a mock HIS seeded with three test patients.
func NewMockClient(logger *logrus.Logger) *MockClient {
	return &MockClient{
		logger: logger,
		orders: make(map[string]*domain.Order),
		patients: map[string]*domain.Patient{
			"P001": {
				PatientID:     "P001",
				Name:          "Wang Da-Ming",
				Age:           75,
				WeightKg:      60,
				Sex:           "male",
				Creatinine:    1.8,
				AdmissionDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			},
			"P002": {
				PatientID:     "P002",
				Name:          "Li Xiao-Mei",
				Age:           45,
				WeightKg:      55,
				Sex:           "female",
				Creatinine:    0.9,
				AdmissionDate: time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC),
			},
			"P003": {
				PatientID:     "P003",
				Name:          "Zhang Lao-Xian-Sheng",
				Age:           85,
				WeightKg:      50,
				Sex:           "male",
				Creatinine:    2.5,
				AdmissionDate: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

// GetPatient returns the patient record, or nil when unknown.
func (c *MockClient) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.patients[patientID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// CreateOrder stores a new active order and assigns it an order ID.
func (c *MockClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.patients[req.PatientID]; !ok {
		return &OrderResponse{
			Success:   false,
			Message:   fmt.Sprintf("patient %s not found", req.PatientID),
			ErrorCode: ErrCodePatientNotFound,
		}, nil
	}

	orderID := newOrderID()
	c.orders[orderID] = &domain.Order{
		OrderID:      orderID,
		PatientID:    req.PatientID,
		DrugCode:     req.DrugCode,
		DrugName:     req.DrugName,
		DoseValue:    req.Dose,
		DoseUnit:     req.DoseUnit,
		Route:        req.Route,
		Frequency:    req.Frequency,
		DurationDays: req.DurationDays,
		PhysicianID:  req.PhysicianID,
		Notes:        req.Notes,
		Status:       domain.OrderActive,
		CreatedAt:    time.Now(),
	}

	c.logger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"patient_id": req.PatientID,
		"drug_code":  req.DrugCode,
	}).Info("Mock HIS order created")

	return &OrderResponse{
		Success: true,
		OrderID: orderID,
		Message: "order created",
	}, nil
}

// DiscontinueOrder stops an active order. Stopping an unknown or already
// discontinued order fails with the matching error code.
func (c *MockClient) DiscontinueOrder(ctx context.Context, orderID, reason string) (*OrderResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.orders[orderID]
	if !ok {
		return &OrderResponse{
			Success:   false,
			Message:   fmt.Sprintf("order %s not found", orderID),
			ErrorCode: ErrCodeOrderNotFound,
		}, nil
	}

	if order.Status == domain.OrderDiscontinued {
		return &OrderResponse{
			Success:   false,
			Message:   "order already discontinued",
			ErrorCode: ErrCodeAlreadyDiscontinued,
		}, nil
	}

	order.Discontinue(reason)

	c.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"reason":   reason,
	}).Info("Mock HIS order discontinued")

	return &OrderResponse{
		Success: true,
		OrderID: orderID,
		Message: "order discontinued",
	}, nil
}

// GetOrder returns the order, or nil when unknown.
func (c *MockClient) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, ok := c.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

// GetPatientActiveOrders returns the patient's active orders.
func (c *MockClient) GetPatientActiveOrders(ctx context.Context, patientID string) ([]domain.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []domain.Order
	for _, o := range c.orders {
		if o.PatientID == patientID && o.Status == domain.OrderActive {
			result = append(result, *o)
		}
	}
	return result, nil
}

// AddPatient registers an extra patient. Test helper.
func (c *MockClient) AddPatient(p domain.Patient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patients[p.PatientID] = &p
}

// ClearOrders removes every stored order. Test helper.
func (c *MockClient) ClearOrders() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = make(map[string]*domain.Order)
}

// newOrderID produces order IDs like ORD-20260115-3F2A9B1C.
func newOrderID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix)
}
