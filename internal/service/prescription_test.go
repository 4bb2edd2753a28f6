package service

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-mcp-server/internal/his"
	"github.com/pharmacy-mcp-server/internal/knowledge"
)

func newTestPrescriptionService() (*PrescriptionService, *his.MockClient) {
	logger, _ := test.NewNullLogger()
	mock := his.NewMockClient(logger)
	svc := NewPrescriptionService(
		knowledge.NewFormulary(logger),
		knowledge.NewRenalDosing(logger),
		mock,
		nil,
		logger,
	)
	return svc, mock
}

func crclPtr(v float64) *float64 { return &v }

func TestValidateOrder_Valid(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result := svc.ValidateOrder(ValidateOrderRequest{
		DrugCode: "GENTA-INJ", Dose: 80, DoseUnit: "mg", Route: "IV", Frequency: "Q8H",
	})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateOrder_UnknownDrugShortCircuits(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result := svc.ValidateOrder(ValidateOrderRequest{
		DrugCode: "NONEXISTENT", Dose: 100, DoseUnit: "mg", Route: "IV", Frequency: "QD",
	})
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not found")
	assert.Empty(t, result.Warnings)
}

func TestValidateOrder_InvalidRoute(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	// Gentamicin injection is IV/IM only.
	result := svc.ValidateOrder(ValidateOrderRequest{
		DrugCode: "GENTA-INJ", Dose: 80, DoseUnit: "mg", Route: "PO", Frequency: "Q8H",
	})
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "route PO")
	assert.Contains(t, result.Errors[0], "IV")
}

func TestValidateOrder_DoseOutOfRangeIsWarning(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result := svc.ValidateOrder(ValidateOrderRequest{
		DrugCode: "GENTA-INJ", Dose: 500, DoseUnit: "mg", Route: "IV", Frequency: "Q8H",
	})
	assert.True(t, result.Valid)
	require.NotEmpty(t, result.Warnings)

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "exceeds recommended maximum") {
			found = true
		}
	}
	assert.True(t, found)

	result = svc.ValidateOrder(ValidateOrderRequest{
		DrugCode: "GENTA-INJ", Dose: 10, DoseUnit: "mg", Route: "IV", Frequency: "Q8H",
	})
	assert.True(t, result.Valid)
	found = false
	for _, w := range result.Warnings {
		if strings.Contains(w, "below recommended minimum") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateOrder_DoseBoundariesInclusive(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	for _, dose := range []float64{60, 240} {
		result := svc.ValidateOrder(ValidateOrderRequest{
			DrugCode: "GENTA-INJ", Dose: dose, DoseUnit: "mg", Route: "IV", Frequency: "Q8H",
		})
		for _, w := range result.Warnings {
			assert.NotContains(t, w, "recommended", "dose %g should be in range", dose)
		}
	}
}

func TestValidateOrder_HighAlertWarning(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result := svc.ValidateOrder(ValidateOrderRequest{
		DrugCode: "WARF-TAB", Dose: 5, DoseUnit: "mg", Route: "PO", Frequency: "QD",
	})
	assert.True(t, result.Valid)

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "high-alert") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateOrder_RenalContraindicationIsError(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result := svc.ValidateOrder(ValidateOrderRequest{
		DrugCode: "METFOR-TAB", Dose: 500, DoseUnit: "mg", Route: "PO", Frequency: "BID",
		PatientCrCl: crclPtr(20),
	})
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "CrCl 20.0")
	assert.Nil(t, result.SuggestedAdjustments)
}

func TestValidateOrder_RenalAdjustmentIsWarningWithSuggestion(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result := svc.ValidateOrder(ValidateOrderRequest{
		DrugCode: "VANCO-INJ", Dose: 1000, DoseUnit: "mg", Route: "IV", Frequency: "Q12H",
		PatientCrCl: crclPtr(35),
	})
	assert.True(t, result.Valid)
	require.NotNil(t, result.SuggestedAdjustments)
	assert.True(t, result.SuggestedAdjustments.RenalAdjustment)
	assert.Equal(t, "Q24H", result.SuggestedAdjustments.SuggestedFrequency)
}

func TestValidateOrder_NoRenalCheckWithoutCrCl(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result := svc.ValidateOrder(ValidateOrderRequest{
		DrugCode: "METFOR-TAB", Dose: 500, DoseUnit: "mg", Route: "PO", Frequency: "BID",
	})
	assert.True(t, result.Valid)
	assert.Nil(t, result.SuggestedAdjustments)
}

func TestSubmitOrder_Success(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		PatientID: "P001", DrugCode: "GENTA-INJ", Dose: 80, DoseUnit: "mg",
		Route: "IV", Frequency: "Q8H", DurationDays: 7, PhysicianID: "DR001",
		OverrideWarnings: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.OrderID, "ORD-"))
}

func TestSubmitOrder_ValidationFailureRejects(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		PatientID: "P001", DrugCode: "NONEXISTENT", Dose: 100, DoseUnit: "mg",
		Route: "IV", Frequency: "QD", DurationDays: 7, PhysicianID: "DR001",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.OrderID)
}

func TestSubmitOrder_WarningsBlockWithoutOverride(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	// Gentamicin is high-alert, so a clean order still carries a warning.
	result, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		PatientID: "P001", DrugCode: "GENTA-INJ", Dose: 80, DoseUnit: "mg",
		Route: "IV", Frequency: "Q8H", DurationDays: 7, PhysicianID: "DR001",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "warnings need confirmation")
	assert.Contains(t, result.Message, "override_warnings")
}

func TestSubmitOrder_UnknownPatientFailsAtHIS(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	result, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		PatientID: "P999", DrugCode: "ASPIR-TAB", Dose: 100, DoseUnit: "mg",
		Route: "PO", Frequency: "QD", DurationDays: 7, PhysicianID: "DR001",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "HIS submission failed", result.Message)
}

func TestStopOrder(t *testing.T) {
	svc, mock := newTestPrescriptionService()

	created, err := mock.CreateOrder(context.Background(), his.CreateOrderRequest{
		PatientID: "P001", DrugCode: "ASPIR-TAB", Dose: 100, DoseUnit: "mg",
		Route: "PO", Frequency: "QD", DurationDays: 30, PhysicianID: "DR001",
	})
	require.NoError(t, err)

	result, err := svc.StopOrder(context.Background(), created.OrderID, "patient discharged")
	require.NoError(t, err)
	assert.True(t, result.Success)

	// Unknown order fails with the HIS message.
	result, err = svc.StopOrder(context.Background(), "ORD-NOPE", "reason")
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestFormularyPassthroughs(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	item := svc.GetFormularyItem("GENTA-INJ")
	require.NotNil(t, item)
	assert.Equal(t, "GENTA-INJ", item.DrugCode)
	assert.Nil(t, svc.GetFormularyItem("NONEXISTENT"))

	results := svc.SearchFormulary("genta", 10)
	require.NotEmpty(t, results)

	adj := svc.GetRenalAdjustment("VANCO-INJ", 25)
	assert.Equal(t, "Q48H", adj.SuggestedFrequency)

	assert.True(t, svc.IsHighAlertDrug("WARF-TAB"))
	assert.False(t, svc.IsHighAlertDrug("ACETA-TAB"))
	assert.False(t, svc.IsHighAlertDrug("NONEXISTENT"))

	highAlert := svc.ListHighAlertDrugs()
	require.NotEmpty(t, highAlert)
	for _, d := range highAlert {
		assert.True(t, d.HighAlert)
	}
}

func TestValidateOrder_Idempotent(t *testing.T) {
	svc, _ := newTestPrescriptionService()

	// A request that produces warnings and suggested adjustments, so the
	// comparison covers every result field.
	req := ValidateOrderRequest{
		DrugCode: "VANCO-INJ", Dose: 1000, DoseUnit: "mg", Route: "IV", Frequency: "Q12H",
		PatientCrCl: crclPtr(35),
	}

	first := svc.ValidateOrder(req)
	second := svc.ValidateOrder(req)
	assert.Equal(t, first, second)

	unknown := ValidateOrderRequest{
		DrugCode: "NONEXISTENT", Dose: 100, DoseUnit: "mg", Route: "IV", Frequency: "QD",
	}
	assert.Equal(t, svc.ValidateOrder(unknown), svc.ValidateOrder(unknown))
}
