package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/domain"
	"github.com/pharmacy-mcp-server/internal/his"
	"github.com/pharmacy-mcp-server/internal/history"
	"github.com/pharmacy-mcp-server/internal/knowledge"
)

// PrescriptionService provides atomic prescription operations. Every method
// is stateless and deterministic; orchestration state lives in the caller.
type PrescriptionService struct {
	logger    *logrus.Logger
	formulary *knowledge.Formulary
	renal     *knowledge.RenalDosing
	hisClient his.Client
	store     history.Store
}

// NewPrescriptionService creates a prescription service. store may be nil
// when no audit trail is configured.
func NewPrescriptionService(
	formulary *knowledge.Formulary,
	renal *knowledge.RenalDosing,
	hisClient his.Client,
	store history.Store,
	logger *logrus.Logger,
) *PrescriptionService {
	return &PrescriptionService{
		logger:    logger,
		formulary: formulary,
		renal:     renal,
		hisClient: hisClient,
		store:     store,
	}
}

// ValidateOrderRequest carries one proposed order through validation.
// PatientCrCl is optional; the renal check only runs when it is present.
type ValidateOrderRequest struct {
	DrugCode    string
	Dose        float64
	DoseUnit    string
	Route       string
	Frequency   string
	PatientCrCl *float64
}

// ValidateOrder checks a proposed order against the formulary and renal
// dosing rules. Only an unknown drug short-circuits; every other check
// accumulates its findings so the caller sees the complete picture.
func (s *PrescriptionService) ValidateOrder(req ValidateOrderRequest) domain.ValidationResult {
	var (
		errors    []string
		warnings  []string
		suggested *domain.SuggestedAdjustments
	)

	item := s.formulary.Get(req.DrugCode)
	if item == nil {
		return domain.ValidationFailure(
			[]string{fmt.Sprintf("drug code %s not found in formulary", req.DrugCode)}, nil)
	}

	if !item.AllowsRoute(req.Route) {
		errors = append(errors, fmt.Sprintf(
			"route %s not available for this drug, available routes: %s",
			req.Route, strings.Join(item.AvailableRoutes, ", ")))
	}

	if req.Dose < item.MinDose {
		warnings = append(warnings, fmt.Sprintf(
			"dose %g %s below recommended minimum %g %s",
			req.Dose, req.DoseUnit, item.MinDose, item.Unit))
	} else if req.Dose > item.MaxDose {
		warnings = append(warnings, fmt.Sprintf(
			"dose %g %s exceeds recommended maximum %g %s",
			req.Dose, req.DoseUnit, item.MaxDose, item.Unit))
	}

	if item.HighAlert {
		warnings = append(warnings, fmt.Sprintf("high-alert medication: %s", item.DrugName))
	}

	if req.PatientCrCl != nil && item.RequiresRenalAdjustment {
		crcl := *req.PatientCrCl
		adj := s.renal.AdjustmentForDose(req.DrugCode, crcl, req.Dose)

		switch {
		case adj.Contraindicated:
			errors = append(errors, fmt.Sprintf("CrCl %.1f mL/min: %s", crcl, adj.Recommendation))
		case adj.NeedsAdjustment:
			warnings = append(warnings, fmt.Sprintf("CrCl %.1f mL/min: %s", crcl, adj.Recommendation))
			suggested = &domain.SuggestedAdjustments{
				RenalAdjustment:    true,
				SuggestedFrequency: adj.SuggestedFrequency,
				Recommendation:     adj.Recommendation,
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"drug_code": req.DrugCode,
		"errors":    len(errors),
		"warnings":  len(warnings),
	}).Debug("Order validated")

	if len(errors) > 0 {
		return domain.ValidationFailure(errors, warnings)
	}
	if suggested != nil {
		return domain.ValidationWithAdjustment(warnings, suggested)
	}
	return domain.ValidationSuccess(warnings)
}

// SubmitOrderRequest carries an order submission through the gateway.
type SubmitOrderRequest struct {
	PatientID        string
	DrugCode         string
	Dose             float64
	DoseUnit         string
	Route            string
	Frequency        string
	DurationDays     int
	PhysicianID      string
	Notes            string
	PatientCrCl      *float64
	OverrideWarnings bool
}

// SubmitOrder validates the order and, when clean or explicitly overridden,
// forwards it to the HIS. Validation errors and unacknowledged warnings
// both reject the submission before the HIS is touched.
func (s *PrescriptionService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (domain.OrderResult, error) {
	validation := s.ValidateOrder(ValidateOrderRequest{
		DrugCode:    req.DrugCode,
		Dose:        req.Dose,
		DoseUnit:    req.DoseUnit,
		Route:       req.Route,
		Frequency:   req.Frequency,
		PatientCrCl: req.PatientCrCl,
	})

	if !validation.Valid {
		return domain.OrderRejected(validation.Errors, "validation failed, order not submitted"), nil
	}

	if len(validation.Warnings) > 0 && !req.OverrideWarnings {
		return domain.OrderRejected(
			[]string{fmt.Sprintf("warnings need confirmation: %s", strings.Join(validation.Warnings, "; "))},
			"set override_warnings=true to submit despite warnings"), nil
	}

	var drugName string
	if item := s.formulary.Get(req.DrugCode); item != nil {
		drugName = item.DrugName
	}

	resp, err := s.hisClient.CreateOrder(ctx, his.CreateOrderRequest{
		PatientID:    req.PatientID,
		DrugCode:     req.DrugCode,
		DrugName:     drugName,
		Dose:         req.Dose,
		DoseUnit:     req.DoseUnit,
		Route:        req.Route,
		Frequency:    req.Frequency,
		DurationDays: req.DurationDays,
		PhysicianID:  req.PhysicianID,
		Notes:        req.Notes,
	})
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("submitting order to HIS: %w", err)
	}

	if !resp.Success {
		return domain.OrderRejected([]string{resp.Message}, "HIS submission failed"), nil
	}

	s.recordSubmission(ctx, resp.OrderID, req, validation.Warnings)

	s.logger.WithFields(logrus.Fields{
		"order_id":   resp.OrderID,
		"patient_id": req.PatientID,
		"drug_code":  req.DrugCode,
		"overridden": req.OverrideWarnings && len(validation.Warnings) > 0,
	}).Info("Order submitted")

	return domain.OrderSubmitted(resp.OrderID, resp.Message), nil
}

// StopOrder discontinues an order in the HIS.
func (s *PrescriptionService) StopOrder(ctx context.Context, orderID, reason string) (domain.StopResult, error) {
	resp, err := s.hisClient.DiscontinueOrder(ctx, orderID, reason)
	if err != nil {
		return domain.StopResult{}, fmt.Errorf("discontinuing order in HIS: %w", err)
	}

	if resp.Success && s.store != nil {
		if err := s.store.UpdateStatus(ctx, orderID, string(domain.OrderDiscontinued)); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("Failed to update order history")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"success":  resp.Success,
	}).Info("Order stop requested")

	return domain.StopResult{Success: resp.Success, Message: resp.Message}, nil
}

// GetFormularyItem returns the formulary entry, or nil when unknown.
func (s *PrescriptionService) GetFormularyItem(drugCode string) *domain.FormularyItem {
	return s.formulary.Get(drugCode)
}

// SearchFormulary searches by code, brand name, or generic name.
func (s *PrescriptionService) SearchFormulary(query string, limit int) []domain.FormularyItem {
	return s.formulary.Search(query, limit)
}

// GetRenalAdjustment returns the dosing advice for a drug at the given CrCl.
func (s *PrescriptionService) GetRenalAdjustment(drugCode string, crcl float64) domain.RenalAdjustment {
	return s.renal.Adjustment(drugCode, crcl)
}

// IsHighAlertDrug reports whether the drug carries the high-alert flag.
// Unknown drugs are not high-alert.
func (s *PrescriptionService) IsHighAlertDrug(drugCode string) bool {
	item := s.formulary.Get(drugCode)
	return item != nil && item.HighAlert
}

// ListHighAlertDrugs returns the high-alert subset of the formulary.
func (s *PrescriptionService) ListHighAlertDrugs() []domain.FormularyItem {
	return s.formulary.HighAlertDrugs()
}

// ListRenalAdjustmentDrugs returns drugs that require renal adjustment.
func (s *PrescriptionService) ListRenalAdjustmentDrugs() []domain.FormularyItem {
	return s.formulary.RenalAdjustmentDrugs()
}

// GetPatient returns the HIS patient record, or nil when unknown.
func (s *PrescriptionService) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	return s.hisClient.GetPatient(ctx, patientID)
}

// GetPatientActiveOrders returns the patient's active orders from the HIS.
func (s *PrescriptionService) GetPatientActiveOrders(ctx context.Context, patientID string) ([]domain.Order, error) {
	return s.hisClient.GetPatientActiveOrders(ctx, patientID)
}

// recordSubmission writes the audit record. Failures are logged, not
// propagated: the HIS already accepted the order.
func (s *PrescriptionService) recordSubmission(ctx context.Context, orderID string, req SubmitOrderRequest, warnings []string) {
	if s.store == nil {
		return
	}

	now := time.Now()
	rec := &history.Record{
		OrderID:      orderID,
		PatientID:    req.PatientID,
		DrugCode:     req.DrugCode,
		Dose:         req.Dose,
		DoseUnit:     req.DoseUnit,
		Route:        req.Route,
		Frequency:    req.Frequency,
		DurationDays: req.DurationDays,
		PhysicianID:  req.PhysicianID,
		Status:       string(domain.OrderActive),
		Warnings:     warnings,
		Overridden:   req.OverrideWarnings && len(warnings) > 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.SaveSubmission(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("Failed to record order history")
	}
}
