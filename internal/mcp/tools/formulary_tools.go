package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/service"
)

// SearchFormularyTool implements the search_formulary MCP tool
type SearchFormularyTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// SearchFormularyParams defines parameters for the search_formulary tool
type SearchFormularyParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// NewSearchFormularyTool creates a new search_formulary tool
func NewSearchFormularyTool(logger *logrus.Logger, prescription *service.PrescriptionService) *SearchFormularyTool {
	return &SearchFormularyTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for search_formulary
func (t *SearchFormularyTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params SearchFormularyParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	items := t.prescription.SearchFormulary(params.Query, params.Limit)

	t.logger.WithFields(logrus.Fields{
		"tool":    "search_formulary",
		"query":   params.Query,
		"matches": len(items),
	}).Info("Formulary search completed")

	return resultResponse(map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// GetToolInfo returns tool metadata
func (t *SearchFormularyTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "search_formulary",
		Description: "Search the hospital formulary by drug code, name, or generic name",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search text",
					"examples":    []string{"vanco", "metformin"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results",
					"default":     10,
				},
			},
			"required": []string{"query"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *SearchFormularyTool) ValidateParams(params interface{}) error {
	var p SearchFormularyParams
	return t.parseAndValidateParams(params, &p)
}

func (t *SearchFormularyTool) parseAndValidateParams(params interface{}, target *SearchFormularyParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.Query == "" {
		return fmt.Errorf("query is required")
	}
	return nil
}

// GetDrugInfoTool implements the get_drug_info MCP tool
type GetDrugInfoTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// GetDrugInfoParams defines parameters for the get_drug_info tool
type GetDrugInfoParams struct {
	DrugCode string `json:"drug_code"`
}

// NewGetDrugInfoTool creates a new get_drug_info tool
func NewGetDrugInfoTool(logger *logrus.Logger, prescription *service.PrescriptionService) *GetDrugInfoTool {
	return &GetDrugInfoTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for get_drug_info
func (t *GetDrugInfoTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params GetDrugInfoParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	item := t.prescription.GetFormularyItem(params.DrugCode)
	if item == nil {
		return toolErrorResponse(fmt.Errorf("drug code %s not found in formulary", params.DrugCode))
	}

	return resultResponse(map[string]interface{}{
		"drug": item,
	})
}

// GetToolInfo returns tool metadata
func (t *GetDrugInfoTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "get_drug_info",
		Description: "Get the full formulary record for a drug code, including dose range, routes, and renal adjustment flags",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"drug_code": map[string]interface{}{
					"type":        "string",
					"description": "Formulary drug code",
					"examples":    []string{"GENTA-INJ", "WARF-TAB"},
				},
			},
			"required": []string{"drug_code"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *GetDrugInfoTool) ValidateParams(params interface{}) error {
	var p GetDrugInfoParams
	return t.parseAndValidateParams(params, &p)
}

func (t *GetDrugInfoTool) parseAndValidateParams(params interface{}, target *GetDrugInfoParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.DrugCode == "" {
		return fmt.Errorf("drug_code is required")
	}
	return nil
}

// ListHighAlertDrugsTool implements the list_high_alert_drugs MCP tool
type ListHighAlertDrugsTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// NewListHighAlertDrugsTool creates a new list_high_alert_drugs tool
func NewListHighAlertDrugsTool(logger *logrus.Logger, prescription *service.PrescriptionService) *ListHighAlertDrugsTool {
	return &ListHighAlertDrugsTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for list_high_alert_drugs
func (t *ListHighAlertDrugsTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	items := t.prescription.ListHighAlertDrugs()

	return resultResponse(map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// GetToolInfo returns tool metadata
func (t *ListHighAlertDrugsTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "list_high_alert_drugs",
		Description: "List every high-alert medication in the formulary",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}
}

// ValidateParams validates tool parameters
func (t *ListHighAlertDrugsTool) ValidateParams(params interface{}) error {
	return nil
}

// ListRenalDrugsTool implements the list_renal_adjustment_drugs MCP tool
type ListRenalDrugsTool struct {
	logger       *logrus.Logger
	prescription *service.PrescriptionService
}

// NewListRenalDrugsTool creates a new list_renal_adjustment_drugs tool
func NewListRenalDrugsTool(logger *logrus.Logger, prescription *service.PrescriptionService) *ListRenalDrugsTool {
	return &ListRenalDrugsTool{logger: logger, prescription: prescription}
}

// HandleTool implements the ToolHandler interface for list_renal_adjustment_drugs
func (t *ListRenalDrugsTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	items := t.prescription.ListRenalAdjustmentDrugs()

	return resultResponse(map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// GetToolInfo returns tool metadata
func (t *ListRenalDrugsTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "list_renal_adjustment_drugs",
		Description: "List every formulary drug that requires renal dose adjustment",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}
}

// ValidateParams validates tool parameters
func (t *ListRenalDrugsTool) ValidateParams(params interface{}) error {
	return nil
}
