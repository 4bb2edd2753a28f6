package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/service"
)

// CalculateCrClTool implements the calculate_creatinine_clearance MCP tool
type CalculateCrClTool struct {
	logger *logrus.Logger
	dosage *service.DosageService
}

// CalculateCrClParams defines parameters for the calculate_creatinine_clearance tool
type CalculateCrClParams struct {
	AgeYears        int     `json:"age_years"`
	WeightKg        float64 `json:"weight_kg"`
	SerumCreatinine float64 `json:"serum_creatinine"`
	Sex             string  `json:"sex"`
}

// NewCalculateCrClTool creates a new calculate_creatinine_clearance tool
func NewCalculateCrClTool(logger *logrus.Logger, dosage *service.DosageService) *CalculateCrClTool {
	return &CalculateCrClTool{logger: logger, dosage: dosage}
}

// HandleTool implements the ToolHandler interface for calculate_creatinine_clearance
func (t *CalculateCrClTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params CalculateCrClParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.dosage.CalculateCreatinineClearance(
		params.AgeYears, params.WeightKg, params.SerumCreatinine, params.Sex)
	if err != nil {
		return toolErrorResponse(err)
	}

	t.logger.WithFields(logrus.Fields{
		"tool":     "calculate_creatinine_clearance",
		"crcl":     result.CreatinineClearance,
		"category": result.Category,
	}).Info("Creatinine clearance calculated")

	return resultResponse(map[string]interface{}{
		"crcl": result,
	})
}

// GetToolInfo returns tool metadata
func (t *CalculateCrClTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "calculate_creatinine_clearance",
		Description: "Estimate creatinine clearance with the Cockcroft-Gault formula and classify the renal function category",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"age_years": map[string]interface{}{
					"type":        "integer",
					"description": "Patient age in years",
				},
				"weight_kg": map[string]interface{}{
					"type":        "number",
					"description": "Patient weight in kilograms",
				},
				"serum_creatinine": map[string]interface{}{
					"type":        "number",
					"description": "Serum creatinine in mg/dL",
				},
				"sex": map[string]interface{}{
					"type":        "string",
					"description": "Patient sex: male or female",
					"enum":        []string{"male", "female"},
				},
			},
			"required": []string{"age_years", "weight_kg", "serum_creatinine", "sex"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *CalculateCrClTool) ValidateParams(params interface{}) error {
	var p CalculateCrClParams
	return t.parseAndValidateParams(params, &p)
}

func (t *CalculateCrClTool) parseAndValidateParams(params interface{}, target *CalculateCrClParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.Sex != "male" && target.Sex != "female" {
		return fmt.Errorf("sex must be male or female")
	}
	return nil
}

// RenalAdjustmentTool implements the get_renal_adjustment MCP tool
type RenalAdjustmentTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// RenalAdjustmentParams defines parameters for the get_renal_adjustment tool
type RenalAdjustmentParams struct {
	DrugCode string  `json:"drug_code"`
	CrCl     float64 `json:"crcl"`
}

// NewRenalAdjustmentTool creates a new get_renal_adjustment tool
func NewRenalAdjustmentTool(logger *logrus.Logger, prescription *service.PrescriptionService) *RenalAdjustmentTool {
	return &RenalAdjustmentTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for get_renal_adjustment
func (t *RenalAdjustmentTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params RenalAdjustmentParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	adjustment := t.prescription.GetRenalAdjustment(params.DrugCode, params.CrCl)

	t.logger.WithFields(logrus.Fields{
		"tool":             "get_renal_adjustment",
		"drug_code":        params.DrugCode,
		"crcl":             params.CrCl,
		"needs_adjustment": adjustment.NeedsAdjustment,
		"contraindicated":  adjustment.Contraindicated,
	}).Info("Renal adjustment looked up")

	return resultResponse(map[string]interface{}{
		"adjustment": adjustment,
	})
}

// GetToolInfo returns tool metadata
func (t *RenalAdjustmentTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "get_renal_adjustment",
		Description: "Look up the renal dosing recommendation for a drug at a given creatinine clearance",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"drug_code": map[string]interface{}{
					"type":        "string",
					"description": "Formulary drug code",
				},
				"crcl": map[string]interface{}{
					"type":        "number",
					"description": "Creatinine clearance in mL/min",
				},
			},
			"required": []string{"drug_code", "crcl"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *RenalAdjustmentTool) ValidateParams(params interface{}) error {
	var p RenalAdjustmentParams
	return t.parseAndValidateParams(params, &p)
}

func (t *RenalAdjustmentTool) parseAndValidateParams(params interface{}, target *RenalAdjustmentParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.DrugCode == "" {
		return fmt.Errorf("drug_code is required")
	}
	if target.CrCl < 0 {
		return fmt.Errorf("crcl must not be negative")
	}
	return nil
}
