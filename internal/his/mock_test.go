package his

import (
	"context"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-mcp-server/internal/domain"
)

func newTestClient() *MockClient {
	logger, _ := test.NewNullLogger()
	return NewMockClient(logger)
}

func TestMockClient_GetPatient(t *testing.T) {
	c := newTestClient()

	p, err := c.GetPatient(context.Background(), "P001")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 75, p.Age)
	assert.Equal(t, 1.8, p.Creatinine)

	p, err = c.GetPatient(context.Background(), "P999")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMockClient_CreateOrder(t *testing.T) {
	c := newTestClient()

	resp, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		PatientID:    "P001",
		DrugCode:     "GENTA-INJ",
		Dose:         80,
		DoseUnit:     "mg",
		Route:        "IV",
		Frequency:    "Q8H",
		DurationDays: 7,
		PhysicianID:  "DR001",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`), resp.OrderID)

	order, err := c.GetOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, domain.OrderActive, order.Status)
}

func TestMockClient_CreateOrder_UnknownPatient(t *testing.T) {
	c := newTestClient()

	resp, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		PatientID: "P999",
		DrugCode:  "GENTA-INJ",
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodePatientNotFound, resp.ErrorCode)
}

func TestMockClient_DiscontinueOrder(t *testing.T) {
	c := newTestClient()

	created, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		PatientID: "P002", DrugCode: "ASPIR-TAB", Dose: 100, DoseUnit: "mg",
		Route: "PO", Frequency: "QD", DurationDays: 30, PhysicianID: "DR002",
	})
	require.NoError(t, err)
	require.True(t, created.Success)

	resp, err := c.DiscontinueOrder(context.Background(), created.OrderID, "patient discharged")
	require.NoError(t, err)
	assert.True(t, resp.Success)

	// Second stop fails with ALREADY_DISCONTINUED.
	resp, err = c.DiscontinueOrder(context.Background(), created.OrderID, "again")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeAlreadyDiscontinued, resp.ErrorCode)

	order, err := c.GetOrder(context.Background(), created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDiscontinued, order.Status)
	assert.Equal(t, "patient discharged", order.DiscontinueReason)
}

func TestMockClient_DiscontinueOrder_Unknown(t *testing.T) {
	c := newTestClient()

	resp, err := c.DiscontinueOrder(context.Background(), "ORD-NOPE", "reason")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeOrderNotFound, resp.ErrorCode)
}

func TestMockClient_GetPatientActiveOrders(t *testing.T) {
	c := newTestClient()

	first, _ := c.CreateOrder(context.Background(), CreateOrderRequest{
		PatientID: "P003", DrugCode: "ACETA-TAB", Dose: 500, DoseUnit: "mg",
		Route: "PO", Frequency: "Q6H", DurationDays: 3, PhysicianID: "DR003",
	})
	second, _ := c.CreateOrder(context.Background(), CreateOrderRequest{
		PatientID: "P003", DrugCode: "LISIN-TAB", Dose: 10, DoseUnit: "mg",
		Route: "PO", Frequency: "QD", DurationDays: 30, PhysicianID: "DR003",
	})
	require.True(t, first.Success)
	require.True(t, second.Success)

	_, err := c.DiscontinueOrder(context.Background(), first.OrderID, "switched therapy")
	require.NoError(t, err)

	active, err := c.GetPatientActiveOrders(context.Background(), "P003")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.OrderID, active[0].OrderID)
}
