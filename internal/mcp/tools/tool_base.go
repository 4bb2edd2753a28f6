package tools

import (
	"encoding/json"
	"fmt"

	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
)

// ParseParams parses and validates generic parameters from interface{} to a target struct.
// This eliminates the duplicate marshal/unmarshal pattern found across all tool handlers.
//
// Usage:
//
//	var params MyParams
//	if err := ParseParams(req.Params, &params); err != nil {
//	    return invalidParamsResponse(err)
//	}
func ParseParams(params interface{}, target interface{}) error {
	if params == nil {
		return fmt.Errorf("missing required parameters")
	}

	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	if err := json.Unmarshal(paramsBytes, target); err != nil {
		return fmt.Errorf("failed to parse parameters: %w", err)
	}

	return nil
}

// invalidParamsResponse builds the standard error response for bad tool input.
func invalidParamsResponse(err error) *protocol.JSONRPC2Response {
	return &protocol.JSONRPC2Response{
		Error: &protocol.RPCError{
			Code:    protocol.InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		},
	}
}

// toolErrorResponse builds an error response for a failed tool execution.
func toolErrorResponse(err error) *protocol.JSONRPC2Response {
	return &protocol.JSONRPC2Response{
		Error: &protocol.RPCError{
			Code:    protocol.MCPToolError,
			Message: "Tool execution failed",
			Data:    err.Error(),
		},
	}
}

// resultResponse wraps a successful tool result.
func resultResponse(result interface{}) *protocol.JSONRPC2Response {
	return &protocol.JSONRPC2Response{Result: result}
}
