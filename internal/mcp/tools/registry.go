package tools

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/mcp/caching"
	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/service"
)

// cacheableTools names the read-only tools whose results may be cached.
// Order mutations and patient lookups always go to the live services.
var cacheableTools = map[string]bool{
	"get_drug_info":               true,
	"search_formulary":            true,
	"list_high_alert_drugs":       true,
	"list_renal_adjustment_drugs": true,
	"get_renal_adjustment":        true,
	"check_drug_interactions":     true,
	"check_food_interactions":     true,
}

// ToolRegistry manages registration of all MCP tools
type ToolRegistry struct {
	logger       *logrus.Logger
	router       *protocol.MessageRouter
	prescription *service.PrescriptionService
	dosage       *service.DosageService
	interaction  *service.InteractionService
	resultCache  *caching.ToolResultCache
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry(
	logger *logrus.Logger,
	router *protocol.MessageRouter,
	prescription *service.PrescriptionService,
	dosage *service.DosageService,
	interaction *service.InteractionService,
) *ToolRegistry {
	return &ToolRegistry{
		logger:       logger,
		router:       router,
		prescription: prescription,
		dosage:       dosage,
		interaction:  interaction,
	}
}

// SetResultCache enables result caching for read-only tools.
func (tr *ToolRegistry) SetResultCache(cache *caching.ToolResultCache) {
	tr.resultCache = cache
}

// RegisterAllTools registers all pharmacy tools with the MCP router
func (tr *ToolRegistry) RegisterAllTools() error {
	tr.logger.Info("Registering pharmacy tools")

	// Order workflow tools
	tr.router.RegisterToolHandler("validate_order", NewValidateOrderTool(tr.logger, tr.prescription))
	tr.router.RegisterToolHandler("submit_order", NewSubmitOrderTool(tr.logger, tr.prescription))
	tr.router.RegisterToolHandler("stop_order", NewStopOrderTool(tr.logger, tr.prescription))

	// Renal dosing tools
	tr.router.RegisterToolHandler("calculate_creatinine_clearance", NewCalculateCrClTool(tr.logger, tr.dosage))
	tr.router.RegisterToolHandler("get_renal_adjustment", NewRenalAdjustmentTool(tr.logger, tr.prescription))

	// Dose calculation tools
	tr.router.RegisterToolHandler("calculate_weight_based_dose", NewWeightBasedDoseTool(tr.logger, tr.dosage))
	tr.router.RegisterToolHandler("calculate_bsa_dose", NewBSADoseTool(tr.logger, tr.dosage))
	tr.router.RegisterToolHandler("calculate_pediatric_dose", NewPediatricDoseTool(tr.logger, tr.dosage))
	tr.router.RegisterToolHandler("convert_dose_units", NewConvertDoseUnitsTool(tr.logger, tr.dosage))
	tr.router.RegisterToolHandler("calculate_infusion_rate", NewInfusionRateTool(tr.logger, tr.dosage))

	// Interaction tools
	tr.router.RegisterToolHandler("check_drug_interactions", NewDrugInteractionTool(tr.logger, tr.interaction))
	tr.router.RegisterToolHandler("check_food_interactions", NewFoodInteractionTool(tr.logger, tr.interaction))

	// Formulary tools
	tr.router.RegisterToolHandler("search_formulary", NewSearchFormularyTool(tr.logger, tr.prescription))
	tr.router.RegisterToolHandler("get_drug_info", NewGetDrugInfoTool(tr.logger, tr.prescription))
	tr.router.RegisterToolHandler("list_high_alert_drugs", NewListHighAlertDrugsTool(tr.logger, tr.prescription))
	tr.router.RegisterToolHandler("list_renal_adjustment_drugs", NewListRenalDrugsTool(tr.logger, tr.prescription))

	// Patient tools
	tr.router.RegisterToolHandler("get_patient", NewGetPatientTool(tr.logger, tr.prescription))
	tr.router.RegisterToolHandler("get_patient_orders", NewGetPatientOrdersTool(tr.logger, tr.prescription))

	tr.logger.Info("Successfully registered all pharmacy tools")
	return nil
}

// ExecuteTool runs the named tool, consulting the result cache for
// read-only tools when one is configured.
func (tr *ToolRegistry) ExecuteTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	handler, exists := tr.router.GetToolHandler(req.Method)
	if !exists {
		return &protocol.JSONRPC2Response{
			Error: &protocol.RPCError{
				Code:    protocol.MethodNotFound,
				Message: "Tool not found",
				Data:    req.Method,
			},
		}
	}

	useCache := tr.resultCache != nil && cacheableTools[req.Method]
	if useCache {
		if cached, ok := tr.resultCache.Get(ctx, req.Method, req.Params); ok {
			tr.logger.WithField("tool", req.Method).Debug("Tool result served from cache")
			return &protocol.JSONRPC2Response{Result: cached.Result}
		}
	}

	response := handler.HandleTool(ctx, req)

	if useCache && response.Error == nil {
		tr.resultCache.Set(ctx, req.Method, req.Params, response.Result)
	}

	return response
}

// GetRegisteredToolsInfo returns information about all registered tools
func (tr *ToolRegistry) GetRegisteredToolsInfo() []protocol.ToolInfo {
	toolHandlers := tr.router.GetToolHandlers()
	toolsInfo := make([]protocol.ToolInfo, 0, len(toolHandlers))

	for _, handler := range toolHandlers {
		toolsInfo = append(toolsInfo, handler.GetToolInfo())
	}

	return toolsInfo
}

// ValidateAllTools validates all registered tools expose complete metadata
func (tr *ToolRegistry) ValidateAllTools() error {
	tr.logger.Info("Validating all registered tools")

	toolHandlers := tr.router.GetToolHandlers()

	for name, handler := range toolHandlers {
		toolInfo := handler.GetToolInfo()
		if toolInfo.Name == "" {
			tr.logger.WithField("tool", name).Error("Tool missing name")
			continue
		}

		if toolInfo.Description == "" {
			tr.logger.WithField("tool", name).Warn("Tool missing description")
		}

		if toolInfo.InputSchema == nil {
			tr.logger.WithField("tool", name).Warn("Tool missing input schema")
		}
	}

	tr.logger.Info("Tool validation completed")
	return nil
}
