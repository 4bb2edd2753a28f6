package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/service"
)

// GetPatientTool implements the get_patient MCP tool
type GetPatientTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// GetPatientParams defines parameters for the get_patient tool
type GetPatientParams struct {
	PatientID string `json:"patient_id"`
}

// NewGetPatientTool creates a new get_patient tool
func NewGetPatientTool(logger *logrus.Logger, prescription *service.PrescriptionService) *GetPatientTool {
	return &GetPatientTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for get_patient
func (t *GetPatientTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params GetPatientParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	patient, err := t.prescription.GetPatient(ctx, params.PatientID)
	if err != nil {
		t.logger.WithError(err).WithField("tool", "get_patient").Error("Patient lookup failed")
		return toolErrorResponse(err)
	}
	if patient == nil {
		return toolErrorResponse(fmt.Errorf("patient %s not found", params.PatientID))
	}

	return resultResponse(map[string]interface{}{
		"patient": patient,
	})
}

// GetToolInfo returns tool metadata
func (t *GetPatientTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "get_patient",
		Description: "Fetch a patient's demographics and latest serum creatinine from the hospital information system",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"patient_id": map[string]interface{}{
					"type":        "string",
					"description": "Patient identifier in the HIS",
					"examples":    []string{"P001"},
				},
			},
			"required": []string{"patient_id"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *GetPatientTool) ValidateParams(params interface{}) error {
	var p GetPatientParams
	return t.parseAndValidateParams(params, &p)
}

func (t *GetPatientTool) parseAndValidateParams(params interface{}, target *GetPatientParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	return nil
}

// GetPatientOrdersTool implements the get_patient_orders MCP tool
type GetPatientOrdersTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// GetPatientOrdersParams defines parameters for the get_patient_orders tool
type GetPatientOrdersParams struct {
	PatientID string `json:"patient_id"`
}

// NewGetPatientOrdersTool creates a new get_patient_orders tool
func NewGetPatientOrdersTool(logger *logrus.Logger, prescription *service.PrescriptionService) *GetPatientOrdersTool {
	return &GetPatientOrdersTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for get_patient_orders
func (t *GetPatientOrdersTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params GetPatientOrdersParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	orders, err := t.prescription.GetPatientActiveOrders(ctx, params.PatientID)
	if err != nil {
		t.logger.WithError(err).WithField("tool", "get_patient_orders").Error("Order lookup failed")
		return toolErrorResponse(err)
	}

	return resultResponse(map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetToolInfo returns tool metadata
func (t *GetPatientOrdersTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "get_patient_orders",
		Description: "List a patient's active medication orders from the hospital information system",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"patient_id": map[string]interface{}{
					"type":        "string",
					"description": "Patient identifier in the HIS",
				},
			},
			"required": []string{"patient_id"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *GetPatientOrdersTool) ValidateParams(params interface{}) error {
	var p GetPatientOrdersParams
	return t.parseAndValidateParams(params, &p)
}

func (t *GetPatientOrdersTool) parseAndValidateParams(params interface{}, target *GetPatientOrdersParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	return nil
}
