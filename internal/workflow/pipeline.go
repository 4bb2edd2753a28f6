// Package workflow orchestrates the end-to-end prescription flow: fetch the
// patient, estimate renal function, validate the order, screen interactions
// against the active medication list, and submit to the HIS. Each step is an
// atomic service call; this package only sequences them and decides where to
// stop.
package workflow

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/domain"
	"github.com/pharmacy-mcp-server/internal/service"
)

// OrderIntake is one prescription request entering the pipeline.
type OrderIntake struct {
	PatientID        string  `json:"patient_id"`
	DrugCode         string  `json:"drug_code"`
	Dose             float64 `json:"dose"`
	DoseUnit         string  `json:"dose_unit"`
	Route            string  `json:"route"`
	Frequency        string  `json:"frequency"`
	DurationDays     int     `json:"duration_days,omitempty"`
	PhysicianID      string  `json:"physician_id"`
	Notes            string  `json:"notes,omitempty"`
	OverrideWarnings bool    `json:"override_warnings,omitempty"`
}

// Outcome records what each pipeline step produced. When Submitted is false,
// Reasons explains which step stopped the order.
type Outcome struct {
	Patient      *domain.Patient            `json:"patient,omitempty"`
	CrCl         *domain.CrClResult         `json:"crcl,omitempty"`
	Validation   *domain.ValidationResult   `json:"validation,omitempty"`
	Interactions *service.MultiCheckResult  `json:"interactions,omitempty"`
	Submission   *domain.OrderResult        `json:"submission,omitempty"`
	Submitted    bool                       `json:"submitted"`
	Reasons      []string                   `json:"reasons,omitempty"`
}

// Pipeline wires the prescription services into a single guarded flow.
type Pipeline struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
	dosage       *service.DosageService
	interaction  *service.InteractionService
}

// NewPipeline creates a prescription pipeline.
func NewPipeline(
	prescription *service.PrescriptionService,
	dosage *service.DosageService,
	interaction *service.InteractionService,
	logger *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		logger:       logger,
		prescription: prescription,
		dosage:       dosage,
		interaction:  interaction,
	}
}

// Run executes the pipeline for one intake. Only infrastructure failures
// return an error; clinical rejections are reported in the Outcome.
func (p *Pipeline) Run(ctx context.Context, intake OrderIntake) (*Outcome, error) {
	outcome := &Outcome{}

	patient, err := p.prescription.GetPatient(ctx, intake.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patient %s: %w", intake.PatientID, err)
	}
	if patient == nil {
		outcome.Reasons = append(outcome.Reasons,
			fmt.Sprintf("patient %s not found", intake.PatientID))
		return outcome, nil
	}
	outcome.Patient = patient

	// Renal function is estimated only when the chart has the inputs. A
	// missing creatinine skips the renal branch rather than failing the order.
	var patientCrCl *float64
	if patient.Age > 0 && patient.WeightKg > 0 && patient.Creatinine > 0 {
		crcl, err := p.dosage.CalculateCreatinineClearance(
			patient.Age, patient.WeightKg, patient.Creatinine, patient.Sex)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"patient_id": patient.PatientID,
				"error":      err.Error(),
			}).Warn("Creatinine clearance estimate failed, skipping renal check")
		} else {
			outcome.CrCl = crcl
			patientCrCl = &crcl.CreatinineClearance
		}
	}

	validation := p.prescription.ValidateOrder(service.ValidateOrderRequest{
		DrugCode:    intake.DrugCode,
		Dose:        intake.Dose,
		DoseUnit:    intake.DoseUnit,
		Route:       intake.Route,
		Frequency:   intake.Frequency,
		PatientCrCl: patientCrCl,
	})
	outcome.Validation = &validation

	if !validation.Valid {
		outcome.Reasons = append(outcome.Reasons, validation.Errors...)
		return outcome, nil
	}

	interactions, err := p.screenInteractions(ctx, intake)
	if err != nil {
		return nil, err
	}
	outcome.Interactions = interactions

	if blocked := severeInteractions(interactions); len(blocked) > 0 {
		outcome.Reasons = append(outcome.Reasons, blocked...)
		return outcome, nil
	}

	result, err := p.prescription.SubmitOrder(ctx, service.SubmitOrderRequest{
		PatientID:        intake.PatientID,
		DrugCode:         intake.DrugCode,
		Dose:             intake.Dose,
		DoseUnit:         intake.DoseUnit,
		Route:            intake.Route,
		Frequency:        intake.Frequency,
		DurationDays:     intake.DurationDays,
		PhysicianID:      intake.PhysicianID,
		Notes:            intake.Notes,
		PatientCrCl:      patientCrCl,
		OverrideWarnings: intake.OverrideWarnings,
	})
	if err != nil {
		return nil, fmt.Errorf("order submission failed: %w", err)
	}
	outcome.Submission = &result
	outcome.Submitted = result.Success

	if !result.Success {
		outcome.Reasons = append(outcome.Reasons, result.Message)
	}

	p.logger.WithFields(logrus.Fields{
		"patient_id": intake.PatientID,
		"drug_code":  intake.DrugCode,
		"submitted":  outcome.Submitted,
	}).Info("Prescription pipeline completed")

	return outcome, nil
}

// screenInteractions checks the new drug against the patient's active
// medication list. With no active orders the check is a no-op.
func (p *Pipeline) screenInteractions(ctx context.Context, intake OrderIntake) (*service.MultiCheckResult, error) {
	orders, err := p.prescription.GetPatientActiveOrders(ctx, intake.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	newItem := p.prescription.GetFormularyItem(intake.DrugCode)

	drugs := make([]string, 0, len(orders)+1)
	seen := make(map[string]bool)
	addDrug := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		drugs = append(drugs, name)
	}

	if newItem != nil {
		addDrug(newItem.GenericName)
	}
	for _, o := range orders {
		if item := p.prescription.GetFormularyItem(o.DrugCode); item != nil {
			addDrug(item.GenericName)
		} else {
			addDrug(o.DrugName)
		}
	}

	if len(drugs) < 2 {
		return nil, nil
	}

	return p.interaction.CheckMultiple(ctx, drugs)
}

// severeInteractions returns a block message per contraindicated or
// high-severity interaction found.
func severeInteractions(result *service.MultiCheckResult) []string {
	if result == nil {
		return nil
	}

	var blocked []string
	for _, pair := range result.Interactions {
		for _, ix := range pair.Interactions {
			if ix.Severity.IsSevere() {
				blocked = append(blocked, fmt.Sprintf(
					"%s interaction between %s and %s: %s",
					ix.Severity, ix.DrugA, ix.DrugB, ix.Description))
			}
		}
	}
	return blocked
}
