package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ToolHandler defines the interface for MCP tool handlers
type ToolHandler interface {
	HandleTool(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response
	GetToolInfo() ToolInfo
	ValidateParams(params interface{}) error
}

// ToolInfo contains metadata about a tool
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
}

// MessageRouter routes MCP messages to registered tool handlers. It also
// serves the initialize, tools/list, and tools/call protocol methods.
type MessageRouter struct {
	logger       *logrus.Logger
	toolHandlers map[string]ToolHandler
	serverName   string
	version      string
	mu           sync.RWMutex
}

// NewMessageRouter creates a new message router
func NewMessageRouter(logger *logrus.Logger) *MessageRouter {
	return &MessageRouter{
		logger:       logger,
		toolHandlers: make(map[string]ToolHandler),
		serverName:   "pharmacy-mcp-server",
		version:      "v0.1.0",
	}
}

// HandleRequest implements MessageHandler interface for routing messages
func (mr *MessageRouter) HandleRequest(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response {
	mr.logger.WithField("method", req.Method).Debug("Routing message")

	switch req.Method {
	case "initialize":
		return mr.handleInitialize(req)
	case "tools/list":
		return mr.handleToolsList(req)
	case "tools/call":
		return mr.handleToolsCall(ctx, req)
	}

	// Direct tool invocation by name is also accepted.
	if handler, exists := mr.GetToolHandler(req.Method); exists {
		return handler.HandleTool(ctx, req)
	}

	return &JSONRPC2Response{
		Error: &RPCError{
			Code:    MethodNotFound,
			Message: "Method not found",
			Data:    fmt.Sprintf("No handler found for method: %s", req.Method),
		},
	}
}

// GetSupportedMethods returns all supported methods
func (mr *MessageRouter) GetSupportedMethods() []string {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	methods := []string{"initialize", "tools/list", "tools/call"}
	for name := range mr.toolHandlers {
		methods = append(methods, name)
	}
	return methods
}

// RegisterToolHandler registers a tool handler
func (mr *MessageRouter) RegisterToolHandler(name string, handler ToolHandler) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	mr.toolHandlers[name] = handler
	mr.logger.WithField("tool_name", name).Debug("Registered tool handler")
}

// GetToolHandlers returns all registered tool handlers
func (mr *MessageRouter) GetToolHandlers() map[string]ToolHandler {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	handlers := make(map[string]ToolHandler, len(mr.toolHandlers))
	for name, handler := range mr.toolHandlers {
		handlers[name] = handler
	}
	return handlers
}

// GetToolHandler retrieves a specific tool handler
func (mr *MessageRouter) GetToolHandler(name string) (ToolHandler, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	handler, exists := mr.toolHandlers[name]
	return handler, exists
}

// handleInitialize answers the MCP initialize handshake.
func (mr *MessageRouter) handleInitialize(req *JSONRPC2Request) *JSONRPC2Response {
	return &JSONRPC2Response{
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]interface{}{
				"name":    mr.serverName,
				"version": mr.version,
			},
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList answers tools/list with metadata for every registered tool.
func (mr *MessageRouter) handleToolsList(req *JSONRPC2Request) *JSONRPC2Response {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	toolsInfo := make([]ToolInfo, 0, len(mr.toolHandlers))
	for _, handler := range mr.toolHandlers {
		toolsInfo = append(toolsInfo, handler.GetToolInfo())
	}

	return &JSONRPC2Response{
		Result: map[string]interface{}{
			"tools": toolsInfo,
		},
	}
}

// toolsCallParams is the parameter envelope for tools/call.
type toolsCallParams struct {
	Name      string      `json:"name"`
	Arguments interface{} `json:"arguments"`
}

// handleToolsCall dispatches tools/call to the named tool handler.
func (mr *MessageRouter) handleToolsCall(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response {
	params, ok := req.Params.(map[string]interface{})
	if !ok {
		return &JSONRPC2Response{
			Error: &RPCError{
				Code:    InvalidParams,
				Message: "Invalid parameters",
				Data:    "tools/call requires an object with name and arguments",
			},
		}
	}

	name, _ := params["name"].(string)
	handler, exists := mr.GetToolHandler(name)
	if !exists {
		return &JSONRPC2Response{
			Error: &RPCError{
				Code:    MethodNotFound,
				Message: "Tool not found",
				Data:    fmt.Sprintf("No tool registered with name: %s", name),
			},
		}
	}

	toolReq := &JSONRPC2Request{
		JSONRPC: req.JSONRPC,
		Method:  name,
		Params:  params["arguments"],
		ID:      req.ID,
	}

	return handler.HandleTool(ctx, toolReq)
}

// GetStats returns router statistics
func (mr *MessageRouter) GetStats() map[string]interface{} {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	return map[string]interface{}{
		"registered_tools": len(mr.toolHandlers),
	}
}
