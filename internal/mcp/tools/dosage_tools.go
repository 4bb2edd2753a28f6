package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/service"
)

// WeightBasedDoseTool implements the calculate_weight_based_dose MCP tool
type WeightBasedDoseTool struct {
	logger *logrus.Logger
	dosage *service.DosageService
}

// WeightBasedDoseParams defines parameters for the calculate_weight_based_dose tool
type WeightBasedDoseParams struct {
	DosePerKg float64 `json:"dose_per_kg"`
	WeightKg  float64 `json:"weight_kg"`
	DoseUnit  string  `json:"dose_unit"`
	MaxDose   float64 `json:"max_dose,omitempty"`
	RoundTo   float64 `json:"round_to,omitempty"`
}

// NewWeightBasedDoseTool creates a new calculate_weight_based_dose tool
func NewWeightBasedDoseTool(logger *logrus.Logger, dosage *service.DosageService) *WeightBasedDoseTool {
	return &WeightBasedDoseTool{logger: logger, dosage: dosage}
}

// HandleTool implements the ToolHandler interface for calculate_weight_based_dose
func (t *WeightBasedDoseTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params WeightBasedDoseParams
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.dosage.CalculateWeightBasedDose(
		params.DosePerKg, params.WeightKg, params.DoseUnit, params.MaxDose, params.RoundTo)
	if err != nil {
		return toolErrorResponse(err)
	}

	t.logger.WithFields(logrus.Fields{
		"tool":       "calculate_weight_based_dose",
		"final_dose": result.FinalDose,
		"capped":     result.Capped,
	}).Info("Weight-based dose calculated")

	return resultResponse(map[string]interface{}{
		"dose": result,
	})
}

// GetToolInfo returns tool metadata
func (t *WeightBasedDoseTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "calculate_weight_based_dose",
		Description: "Calculate a mg/kg dose for a patient weight, with optional maximum cap and rounding increment",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"dose_per_kg": map[string]interface{}{
					"type":        "number",
					"description": "Dose per kilogram of body weight",
				},
				"weight_kg": map[string]interface{}{
					"type":        "number",
					"description": "Patient weight in kilograms",
				},
				"dose_unit": map[string]interface{}{
					"type":        "string",
					"description": "Dose unit, e.g. mg",
				},
				"max_dose": map[string]interface{}{
					"type":        "number",
					"description": "Optional maximum dose cap",
				},
				"round_to": map[string]interface{}{
					"type":        "number",
					"description": "Optional rounding increment, e.g. 50 to round to the nearest 50 mg",
				},
			},
			"required": []string{"dose_per_kg", "weight_kg", "dose_unit"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *WeightBasedDoseTool) ValidateParams(params interface{}) error {
	var p WeightBasedDoseParams
	return ParseParams(params, &p)
}

// BSADoseTool implements the calculate_bsa_dose MCP tool
type BSADoseTool struct {
	logger *logrus.Logger
	dosage *service.DosageService
}

// BSADoseParams defines parameters for the calculate_bsa_dose tool
type BSADoseParams struct {
	DosePerM2 float64 `json:"dose_per_m2"`
	HeightCm  float64 `json:"height_cm"`
	WeightKg  float64 `json:"weight_kg"`
	DoseUnit  string  `json:"dose_unit"`
	MaxDose   float64 `json:"max_dose,omitempty"`
}

// NewBSADoseTool creates a new calculate_bsa_dose tool
func NewBSADoseTool(logger *logrus.Logger, dosage *service.DosageService) *BSADoseTool {
	return &BSADoseTool{logger: logger, dosage: dosage}
}

// HandleTool implements the ToolHandler interface for calculate_bsa_dose
func (t *BSADoseTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params BSADoseParams
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.dosage.CalculateBSABasedDose(
		params.DosePerM2, params.HeightCm, params.WeightKg, params.DoseUnit, params.MaxDose)
	if err != nil {
		return toolErrorResponse(err)
	}

	t.logger.WithFields(logrus.Fields{
		"tool":       "calculate_bsa_dose",
		"bsa":        result.BSA,
		"final_dose": result.FinalDose,
	}).Info("BSA-based dose calculated")

	return resultResponse(map[string]interface{}{
		"dose": result,
	})
}

// GetToolInfo returns tool metadata
func (t *BSADoseTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "calculate_bsa_dose",
		Description: "Calculate a body-surface-area dose using the Mosteller formula, with optional maximum cap",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"dose_per_m2": map[string]interface{}{
					"type":        "number",
					"description": "Dose per square meter of body surface area",
				},
				"height_cm": map[string]interface{}{
					"type":        "number",
					"description": "Patient height in centimeters",
				},
				"weight_kg": map[string]interface{}{
					"type":        "number",
					"description": "Patient weight in kilograms",
				},
				"dose_unit": map[string]interface{}{
					"type":        "string",
					"description": "Dose unit, e.g. mg",
				},
				"max_dose": map[string]interface{}{
					"type":        "number",
					"description": "Optional maximum dose cap",
				},
			},
			"required": []string{"dose_per_m2", "height_cm", "weight_kg", "dose_unit"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *BSADoseTool) ValidateParams(params interface{}) error {
	var p BSADoseParams
	return ParseParams(params, &p)
}

// PediatricDoseTool implements the calculate_pediatric_dose MCP tool
type PediatricDoseTool struct {
	logger *logrus.Logger
	dosage *service.DosageService
}

// PediatricDoseParams defines parameters for the calculate_pediatric_dose tool
type PediatricDoseParams struct {
	AdultDose     float64 `json:"adult_dose"`
	ChildWeightKg float64 `json:"child_weight_kg,omitempty"`
	DoseUnit      string  `json:"dose_unit"`
	Method        string  `json:"method"`
	ChildAgeYears int     `json:"child_age_years,omitempty"`
	ChildBSA      float64 `json:"child_bsa,omitempty"`
}

// NewPediatricDoseTool creates a new calculate_pediatric_dose tool
func NewPediatricDoseTool(logger *logrus.Logger, dosage *service.DosageService) *PediatricDoseTool {
	return &PediatricDoseTool{logger: logger, dosage: dosage}
}

// HandleTool implements the ToolHandler interface for calculate_pediatric_dose
func (t *PediatricDoseTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params PediatricDoseParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.dosage.CalculatePediatricDose(
		params.AdultDose, params.ChildWeightKg, params.DoseUnit,
		params.Method, params.ChildAgeYears, params.ChildBSA)
	if err != nil {
		return toolErrorResponse(err)
	}

	t.logger.WithFields(logrus.Fields{
		"tool":           "calculate_pediatric_dose",
		"method":         params.Method,
		"pediatric_dose": result.PediatricDose,
	}).Info("Pediatric dose calculated")

	return resultResponse(map[string]interface{}{
		"dose": result,
	})
}

// GetToolInfo returns tool metadata
func (t *PediatricDoseTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "calculate_pediatric_dose",
		Description: "Derive a pediatric dose from an adult dose by weight (Clark), age (Young), or body surface area",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"adult_dose": map[string]interface{}{
					"type":        "number",
					"description": "Standard adult dose",
				},
				"child_weight_kg": map[string]interface{}{
					"type":        "number",
					"description": "Child weight in kilograms (weight method)",
				},
				"dose_unit": map[string]interface{}{
					"type":        "string",
					"description": "Dose unit, e.g. mg",
				},
				"method": map[string]interface{}{
					"type":        "string",
					"description": "Derivation method",
					"enum":        []string{"weight", "age", "bsa"},
				},
				"child_age_years": map[string]interface{}{
					"type":        "integer",
					"description": "Child age in years (age method)",
				},
				"child_bsa": map[string]interface{}{
					"type":        "number",
					"description": "Child body surface area in square meters (bsa method)",
				},
			},
			"required": []string{"adult_dose", "dose_unit", "method"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *PediatricDoseTool) ValidateParams(params interface{}) error {
	var p PediatricDoseParams
	return t.parseAndValidateParams(params, &p)
}

func (t *PediatricDoseTool) parseAndValidateParams(params interface{}, target *PediatricDoseParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	switch target.Method {
	case "weight", "age", "bsa":
	default:
		return fmt.Errorf("method must be weight, age, or bsa")
	}
	return nil
}

// ConvertDoseUnitsTool implements the convert_dose_units MCP tool
type ConvertDoseUnitsTool struct {
	logger *logrus.Logger
	dosage *service.DosageService
}

// ConvertDoseUnitsParams defines parameters for the convert_dose_units tool
type ConvertDoseUnitsParams struct {
	Value    float64 `json:"value"`
	FromUnit string  `json:"from_unit"`
	ToUnit   string  `json:"to_unit"`
}

// NewConvertDoseUnitsTool creates a new convert_dose_units tool
func NewConvertDoseUnitsTool(logger *logrus.Logger, dosage *service.DosageService) *ConvertDoseUnitsTool {
	return &ConvertDoseUnitsTool{logger: logger, dosage: dosage}
}

// HandleTool implements the ToolHandler interface for convert_dose_units
func (t *ConvertDoseUnitsTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params ConvertDoseUnitsParams
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.dosage.ConvertDoseUnits(params.Value, params.FromUnit, params.ToUnit)
	if err != nil {
		return toolErrorResponse(err)
	}

	return resultResponse(map[string]interface{}{
		"conversion": result,
	})
}

// GetToolInfo returns tool metadata
func (t *ConvertDoseUnitsTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "convert_dose_units",
		Description: "Convert a dose value between mass units (mcg, mg, g)",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"value": map[string]interface{}{
					"type":        "number",
					"description": "Dose value to convert",
				},
				"from_unit": map[string]interface{}{
					"type":        "string",
					"description": "Source unit",
					"enum":        []string{"mcg", "mg", "g"},
				},
				"to_unit": map[string]interface{}{
					"type":        "string",
					"description": "Target unit",
					"enum":        []string{"mcg", "mg", "g"},
				},
			},
			"required": []string{"value", "from_unit", "to_unit"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *ConvertDoseUnitsTool) ValidateParams(params interface{}) error {
	var p ConvertDoseUnitsParams
	return ParseParams(params, &p)
}

// InfusionRateTool implements the calculate_infusion_rate MCP tool
type InfusionRateTool struct {
	logger *logrus.Logger
	dosage *service.DosageService
}

// InfusionRateParams defines parameters for the calculate_infusion_rate tool
type InfusionRateParams struct {
	TotalDose     float64 `json:"total_dose"`
	DoseUnit      string  `json:"dose_unit"`
	VolumeML      float64 `json:"volume_ml"`
	DurationHours float64 `json:"duration_hours"`
}

// NewInfusionRateTool creates a new calculate_infusion_rate tool
func NewInfusionRateTool(logger *logrus.Logger, dosage *service.DosageService) *InfusionRateTool {
	return &InfusionRateTool{logger: logger, dosage: dosage}
}

// HandleTool implements the ToolHandler interface for calculate_infusion_rate
func (t *InfusionRateTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params InfusionRateParams
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.dosage.CalculateInfusionRate(
		params.TotalDose, params.DoseUnit, params.VolumeML, params.DurationHours)
	if err != nil {
		return toolErrorResponse(err)
	}

	t.logger.WithFields(logrus.Fields{
		"tool":       "calculate_infusion_rate",
		"rate_ml_hr": result.RateMLPerHour,
	}).Info("Infusion rate calculated")

	return resultResponse(map[string]interface{}{
		"infusion": result,
	})
}

// GetToolInfo returns tool metadata
func (t *InfusionRateTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "calculate_infusion_rate",
		Description: "Calculate IV infusion rate in mL/hr and dose/hr from total dose, bag volume, and duration",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"total_dose": map[string]interface{}{
					"type":        "number",
					"description": "Total dose in the infusion bag",
				},
				"dose_unit": map[string]interface{}{
					"type":        "string",
					"description": "Dose unit, e.g. mg",
				},
				"volume_ml": map[string]interface{}{
					"type":        "number",
					"description": "Infusion bag volume in milliliters",
				},
				"duration_hours": map[string]interface{}{
					"type":        "number",
					"description": "Infusion duration in hours",
				},
			},
			"required": []string{"total_dose", "dose_unit", "volume_ml", "duration_hours"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *InfusionRateTool) ValidateParams(params interface{}) error {
	var p InfusionRateParams
	return ParseParams(params, &p)
}
