package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/service"
)

// ValidateOrderTool implements the validate_order MCP tool
type ValidateOrderTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// ValidateOrderParams defines parameters for the validate_order tool
type ValidateOrderParams struct {
	DrugCode    string   `json:"drug_code"`
	Dose        float64  `json:"dose"`
	DoseUnit    string   `json:"dose_unit"`
	Route       string   `json:"route"`
	Frequency   string   `json:"frequency"`
	PatientCrCl *float64 `json:"patient_crcl,omitempty"`
}

// NewValidateOrderTool creates a new validate_order tool
func NewValidateOrderTool(logger *logrus.Logger, prescription *service.PrescriptionService) *ValidateOrderTool {
	return &ValidateOrderTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for validate_order
func (t *ValidateOrderTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params ValidateOrderParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result := t.prescription.ValidateOrder(service.ValidateOrderRequest{
		DrugCode:    params.DrugCode,
		Dose:        params.Dose,
		DoseUnit:    params.DoseUnit,
		Route:       params.Route,
		Frequency:   params.Frequency,
		PatientCrCl: params.PatientCrCl,
	})

	t.logger.WithFields(logrus.Fields{
		"tool":      "validate_order",
		"drug_code": params.DrugCode,
		"valid":     result.Valid,
		"warnings":  len(result.Warnings),
	}).Info("Order validation completed")

	return resultResponse(map[string]interface{}{
		"validation": result,
	})
}

// GetToolInfo returns tool metadata
func (t *ValidateOrderTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "validate_order",
		Description: "Validate a proposed medication order against the hospital formulary, dose ranges, routes, and renal dosing rules",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"drug_code": map[string]interface{}{
					"type":        "string",
					"description": "Formulary drug code",
					"examples":    []string{"VANCO-INJ", "METFOR-TAB"},
				},
				"dose": map[string]interface{}{
					"type":        "number",
					"description": "Dose amount per administration",
				},
				"dose_unit": map[string]interface{}{
					"type":        "string",
					"description": "Dose unit, e.g. mg or unit",
				},
				"route": map[string]interface{}{
					"type":        "string",
					"description": "Administration route: PO, IV, IM, SC, TOP, INH",
				},
				"frequency": map[string]interface{}{
					"type":        "string",
					"description": "Dosing frequency, e.g. QD, BID, Q8H",
				},
				"patient_crcl": map[string]interface{}{
					"type":        "number",
					"description": "Patient creatinine clearance in mL/min; enables the renal dosing check",
				},
			},
			"required": []string{"drug_code", "dose", "dose_unit", "route", "frequency"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *ValidateOrderTool) ValidateParams(params interface{}) error {
	var p ValidateOrderParams
	return t.parseAndValidateParams(params, &p)
}

func (t *ValidateOrderTool) parseAndValidateParams(params interface{}, target *ValidateOrderParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.DrugCode == "" {
		return fmt.Errorf("drug_code is required")
	}
	if target.Dose <= 0 {
		return fmt.Errorf("dose must be positive")
	}
	if target.Route == "" {
		return fmt.Errorf("route is required")
	}
	if target.Frequency == "" {
		return fmt.Errorf("frequency is required")
	}
	return nil
}

// SubmitOrderTool implements the submit_order MCP tool
type SubmitOrderTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// SubmitOrderParams defines parameters for the submit_order tool
type SubmitOrderParams struct {
	PatientID        string   `json:"patient_id"`
	DrugCode         string   `json:"drug_code"`
	Dose             float64  `json:"dose"`
	DoseUnit         string   `json:"dose_unit"`
	Route            string   `json:"route"`
	Frequency        string   `json:"frequency"`
	DurationDays     int      `json:"duration_days,omitempty"`
	PhysicianID      string   `json:"physician_id"`
	Notes            string   `json:"notes,omitempty"`
	PatientCrCl      *float64 `json:"patient_crcl,omitempty"`
	OverrideWarnings bool     `json:"override_warnings,omitempty"`
}

// NewSubmitOrderTool creates a new submit_order tool
func NewSubmitOrderTool(logger *logrus.Logger, prescription *service.PrescriptionService) *SubmitOrderTool {
	return &SubmitOrderTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for submit_order
func (t *SubmitOrderTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params SubmitOrderParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.prescription.SubmitOrder(ctx, service.SubmitOrderRequest{
		PatientID:        params.PatientID,
		DrugCode:         params.DrugCode,
		Dose:             params.Dose,
		DoseUnit:         params.DoseUnit,
		Route:            params.Route,
		Frequency:        params.Frequency,
		DurationDays:     params.DurationDays,
		PhysicianID:      params.PhysicianID,
		Notes:            params.Notes,
		PatientCrCl:      params.PatientCrCl,
		OverrideWarnings: params.OverrideWarnings,
	})
	if err != nil {
		t.logger.WithError(err).WithField("tool", "submit_order").Error("Order submission failed")
		return toolErrorResponse(err)
	}

	t.logger.WithFields(logrus.Fields{
		"tool":       "submit_order",
		"patient_id": params.PatientID,
		"drug_code":  params.DrugCode,
		"success":    result.Success,
		"order_id":   result.OrderID,
	}).Info("Order submission completed")

	return resultResponse(map[string]interface{}{
		"order": result,
	})
}

// GetToolInfo returns tool metadata
func (t *SubmitOrderTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "submit_order",
		Description: "Validate and submit a medication order to the hospital information system, with explicit warning acknowledgement via override_warnings",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"patient_id": map[string]interface{}{
					"type":        "string",
					"description": "Patient identifier in the HIS",
				},
				"drug_code": map[string]interface{}{
					"type":        "string",
					"description": "Formulary drug code",
				},
				"dose": map[string]interface{}{
					"type":        "number",
					"description": "Dose amount per administration",
				},
				"dose_unit": map[string]interface{}{
					"type":        "string",
					"description": "Dose unit, e.g. mg or unit",
				},
				"route": map[string]interface{}{
					"type":        "string",
					"description": "Administration route",
				},
				"frequency": map[string]interface{}{
					"type":        "string",
					"description": "Dosing frequency",
				},
				"duration_days": map[string]interface{}{
					"type":        "integer",
					"description": "Treatment duration in days",
				},
				"physician_id": map[string]interface{}{
					"type":        "string",
					"description": "Ordering physician identifier",
				},
				"notes": map[string]interface{}{
					"type":        "string",
					"description": "Free-text order notes",
				},
				"patient_crcl": map[string]interface{}{
					"type":        "number",
					"description": "Patient creatinine clearance in mL/min",
				},
				"override_warnings": map[string]interface{}{
					"type":        "boolean",
					"description": "Acknowledge validation warnings and submit anyway",
					"default":     false,
				},
			},
			"required": []string{"patient_id", "drug_code", "dose", "dose_unit", "route", "frequency", "physician_id"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *SubmitOrderTool) ValidateParams(params interface{}) error {
	var p SubmitOrderParams
	return t.parseAndValidateParams(params, &p)
}

func (t *SubmitOrderTool) parseAndValidateParams(params interface{}, target *SubmitOrderParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if target.DrugCode == "" {
		return fmt.Errorf("drug_code is required")
	}
	if target.Dose <= 0 {
		return fmt.Errorf("dose must be positive")
	}
	if target.PhysicianID == "" {
		return fmt.Errorf("physician_id is required")
	}
	return nil
}

// StopOrderTool implements the stop_order MCP tool
type StopOrderTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// StopOrderParams defines parameters for the stop_order tool
type StopOrderParams struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// NewStopOrderTool creates a new stop_order tool
func NewStopOrderTool(logger *logrus.Logger, prescription *service.PrescriptionService) *StopOrderTool {
	return &StopOrderTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for stop_order
func (t *StopOrderTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params StopOrderParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.prescription.StopOrder(ctx, params.OrderID, params.Reason)
	if err != nil {
		t.logger.WithError(err).WithField("tool", "stop_order").Error("Order discontinuation failed")
		return toolErrorResponse(err)
	}

	t.logger.WithFields(logrus.Fields{
		"tool":     "stop_order",
		"order_id": params.OrderID,
		"success":  result.Success,
	}).Info("Order discontinuation completed")

	return resultResponse(map[string]interface{}{
		"stop": result,
	})
}

// GetToolInfo returns tool metadata
func (t *StopOrderTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "stop_order",
		Description: "Discontinue an active medication order in the hospital information system",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"order_id": map[string]interface{}{
					"type":        "string",
					"description": "Order identifier, e.g. ORD-20260828-1A2B3C4D",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Reason for discontinuation",
				},
			},
			"required": []string{"order_id", "reason"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *StopOrderTool) ValidateParams(params interface{}) error {
	var p StopOrderParams
	return t.parseAndValidateParams(params, &p)
}

func (t *StopOrderTool) parseAndValidateParams(params interface{}, target *StopOrderParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.OrderID == "" {
		return fmt.Errorf("order_id is required")
	}
	if target.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	return nil
}
