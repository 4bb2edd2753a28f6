package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/service"
)

// DrugInteractionTool implements the check_drug_interactions MCP tool
type DrugInteractionTool struct {
	logger      *logrus.Logger
	interaction *service.InteractionService
}

// DrugInteractionParams defines parameters for the check_drug_interactions tool
type DrugInteractionParams struct {
	Drugs []string `json:"drugs"`
}

// NewDrugInteractionTool creates a new check_drug_interactions tool
func NewDrugInteractionTool(logger *logrus.Logger, interaction *service.InteractionService) *DrugInteractionTool {
	return &DrugInteractionTool{logger: logger, interaction: interaction}
}

// HandleTool implements the ToolHandler interface for check_drug_interactions
func (t *DrugInteractionTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params DrugInteractionParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.interaction.CheckMultiple(ctx, params.Drugs)
	if err != nil {
		return toolErrorResponse(err)
	}

	t.logger.WithFields(logrus.Fields{
		"tool":         "check_drug_interactions",
		"drug_count":   len(params.Drugs),
		"interactions": len(result.Interactions),
	}).Info("Drug interaction check completed")

	return resultResponse(map[string]interface{}{
		"interactions": result,
	})
}

// GetToolInfo returns tool metadata
func (t *DrugInteractionTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "check_drug_interactions",
		Description: "Check every pair in a medication list for known drug-drug interactions, ordered by severity",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"drugs": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Drug names to cross-check",
					"examples":    [][]string{{"warfarin", "aspirin", "amiodarone"}},
				},
			},
			"required": []string{"drugs"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *DrugInteractionTool) ValidateParams(params interface{}) error {
	var p DrugInteractionParams
	return t.parseAndValidateParams(params, &p)
}

func (t *DrugInteractionTool) parseAndValidateParams(params interface{}, target *DrugInteractionParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if len(target.Drugs) < 2 {
		return fmt.Errorf("at least two drugs are required")
	}
	return nil
}

// FoodInteractionTool implements the check_food_interactions MCP tool
type FoodInteractionTool struct {
	logger      *logrus.Logger
	interaction *service.InteractionService
}

// FoodInteractionParams defines parameters for the check_food_interactions tool
type FoodInteractionParams struct {
	DrugName string `json:"drug_name"`
}

// NewFoodInteractionTool creates a new check_food_interactions tool
func NewFoodInteractionTool(logger *logrus.Logger, interaction *service.InteractionService) *FoodInteractionTool {
	return &FoodInteractionTool{logger: logger, interaction: interaction}
}

// HandleTool implements the ToolHandler interface for check_food_interactions
func (t *FoodInteractionTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params FoodInteractionParams
	if err := t.parseAndValidateParams(req.Params, &params); err != nil {
		return invalidParamsResponse(err)
	}

	result, err := t.interaction.CheckFood(ctx, params.DrugName)
	if err != nil {
		return toolErrorResponse(err)
	}

	return resultResponse(map[string]interface{}{
		"food_interactions": result,
	})
}

// GetToolInfo returns tool metadata
func (t *FoodInteractionTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "check_food_interactions",
		Description: "List known food and beverage interactions for a drug",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"drug_name": map[string]interface{}{
					"type":        "string",
					"description": "Drug name",
					"examples":    []string{"warfarin", "simvastatin"},
				},
			},
			"required": []string{"drug_name"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *FoodInteractionTool) ValidateParams(params interface{}) error {
	var p FoodInteractionParams
	return t.parseAndValidateParams(params, &p)
}

func (t *FoodInteractionTool) parseAndValidateParams(params interface{}, target *FoodInteractionParams) error {
	if err := ParseParams(params, target); err != nil {
		return err
	}
	if target.DrugName == "" {
		return fmt.Errorf("drug_name is required")
	}
	return nil
}
