package workflow

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-mcp-server/internal/his"
	"github.com/pharmacy-mcp-server/internal/knowledge"
	"github.com/pharmacy-mcp-server/internal/service"
)

func newTestPipeline(t *testing.T) (*Pipeline, *his.MockClient) {
	t.Helper()
	logger, _ := test.NewNullLogger()

	formulary := knowledge.NewFormulary(logger)
	renal := knowledge.NewRenalDosing(logger)
	hisClient := his.NewMockClient(logger)
	prescription := service.NewPrescriptionService(formulary, renal, hisClient, nil, logger)
	dosage := service.NewDosageService(logger)
	interaction := service.NewInteractionService(nil, logger)

	return NewPipeline(prescription, dosage, interaction, logger), hisClient
}

func TestPipeline_SubmitsCleanOrder(t *testing.T) {
	p, _ := newTestPipeline(t)

	outcome, err := p.Run(context.Background(), OrderIntake{
		PatientID:   "P002",
		DrugCode:    "ASPIR-TAB",
		Dose:        100,
		DoseUnit:    "mg",
		Route:       "PO",
		Frequency:   "QD",
		PhysicianID: "DR001",
	})
	require.NoError(t, err)

	assert.True(t, outcome.Submitted)
	assert.Empty(t, outcome.Reasons)
	require.NotNil(t, outcome.Patient)
	assert.Equal(t, "P002", outcome.Patient.PatientID)
	require.NotNil(t, outcome.CrCl)
	assert.Greater(t, outcome.CrCl.CreatinineClearance, 60.0)
	require.NotNil(t, outcome.Validation)
	assert.True(t, outcome.Validation.Valid)
	require.NotNil(t, outcome.Submission)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, outcome.Submission.OrderID)
}

func TestPipeline_UnknownPatient(t *testing.T) {
	p, _ := newTestPipeline(t)

	outcome, err := p.Run(context.Background(), OrderIntake{
		PatientID:   "P999",
		DrugCode:    "ASPIR-TAB",
		Dose:        100,
		DoseUnit:    "mg",
		Route:       "PO",
		Frequency:   "QD",
		PhysicianID: "DR001",
	})
	require.NoError(t, err)

	assert.False(t, outcome.Submitted)
	assert.Nil(t, outcome.Patient)
	require.Len(t, outcome.Reasons, 1)
	assert.Contains(t, outcome.Reasons[0], "P999")
}

func TestPipeline_InvalidOrderStopsBeforeSubmit(t *testing.T) {
	p, _ := newTestPipeline(t)

	outcome, err := p.Run(context.Background(), OrderIntake{
		PatientID:   "P002",
		DrugCode:    "NOPE-999",
		Dose:        100,
		DoseUnit:    "mg",
		Route:       "PO",
		Frequency:   "QD",
		PhysicianID: "DR001",
	})
	require.NoError(t, err)

	assert.False(t, outcome.Submitted)
	require.NotNil(t, outcome.Validation)
	assert.False(t, outcome.Validation.Valid)
	assert.NotEmpty(t, outcome.Reasons)
	assert.Nil(t, outcome.Submission)
}

func TestPipeline_SevereInteractionBlocks(t *testing.T) {
	p, hisClient := newTestPipeline(t)

	// Patient already on warfarin; aspirin on top is a high-severity pair.
	_, err := hisClient.CreateOrder(context.Background(), his.CreateOrderRequest{
		PatientID:   "P002",
		DrugCode:    "WARF-TAB",
		DrugName:    "warfarin",
		Dose:        5,
		DoseUnit:    "mg",
		Route:       "PO",
		Frequency:   "QD",
		PhysicianID: "DR001",
	})
	require.NoError(t, err)

	outcome, err := p.Run(context.Background(), OrderIntake{
		PatientID:   "P002",
		DrugCode:    "ASPIR-TAB",
		Dose:        100,
		DoseUnit:    "mg",
		Route:       "PO",
		Frequency:   "QD",
		PhysicianID: "DR001",
	})
	require.NoError(t, err)

	assert.False(t, outcome.Submitted)
	assert.Nil(t, outcome.Submission)
	require.NotNil(t, outcome.Interactions)
	assert.NotEmpty(t, outcome.Reasons)
	assert.Contains(t, outcome.Reasons[0], "warfarin")
	assert.Contains(t, outcome.Reasons[0], "aspirin")
}

func TestPipeline_RenalWarningNeedsOverride(t *testing.T) {
	p, _ := newTestPipeline(t)

	// P001 has an estimated CrCl of 30.1, so Q12H vancomycin draws a warning.
	intake := OrderIntake{
		PatientID:   "P001",
		DrugCode:    "VANCO-INJ",
		Dose:        1000,
		DoseUnit:    "mg",
		Route:       "IV",
		Frequency:   "Q12H",
		PhysicianID: "DR001",
	}

	outcome, err := p.Run(context.Background(), intake)
	require.NoError(t, err)

	assert.False(t, outcome.Submitted)
	require.NotNil(t, outcome.CrCl)
	assert.InDelta(t, 30.1, outcome.CrCl.CreatinineClearance, 0.001)
	require.NotNil(t, outcome.Submission)
	assert.Contains(t, outcome.Submission.Message, "override_warnings")

	intake.OverrideWarnings = true
	outcome, err = p.Run(context.Background(), intake)
	require.NoError(t, err)
	assert.True(t, outcome.Submitted)
}
