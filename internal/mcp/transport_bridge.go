package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/mcp/tools"
	"github.com/pharmacy-mcp-server/internal/mcp/transport"
)

// MCPTransportBridge bridges our custom transport interface with MCP SDK Transport
type MCPTransportBridge struct {
	customTransport transport.Transport
	logger          *logrus.Logger
}

// NewMCPTransportBridge creates a new transport bridge
func NewMCPTransportBridge(customTransport transport.Transport, logger *logrus.Logger) mcp.Transport {
	return &MCPTransportBridge{
		customTransport: customTransport,
		logger:          logger,
	}
}

// Connect implements mcp.Transport interface
func (b *MCPTransportBridge) Connect(ctx context.Context) (mcp.Connection, error) {
	return b, nil
}

// Read implements mcp.Connection interface
func (b *MCPTransportBridge) Read(ctx context.Context) (jsonrpc.Message, error) {
	data, err := b.ReadMessage()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, io.EOF
	}
	return jsonrpc.DecodeMessage(data)
}

// Write implements mcp.Connection interface
func (b *MCPTransportBridge) Write(ctx context.Context, msg jsonrpc.Message) error {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode JSON-RPC message: %w", err)
	}
	return b.WriteMessage(data)
}

// SessionID implements mcp.Connection interface
func (b *MCPTransportBridge) SessionID() string {
	return ""
}

// ReadMessage reads a raw message from the underlying transport
func (b *MCPTransportBridge) ReadMessage() ([]byte, error) {
	b.logger.Debug("Reading message through transport bridge")
	return b.customTransport.ReadMessage()
}

// WriteMessage implements mcp.Transport interface
func (b *MCPTransportBridge) WriteMessage(data []byte) error {
	b.logger.Debug("Writing message through transport bridge")
	return b.customTransport.WriteMessage(data)
}

// Close implements mcp.Transport interface
func (b *MCPTransportBridge) Close() error {
	b.logger.Debug("Closing transport through bridge")
	return b.customTransport.Close()
}

// ReadJSONMessage reads and unmarshals a JSON message
func (b *MCPTransportBridge) ReadJSONMessage(v interface{}) error {
	data, err := b.ReadMessage()
	if err != nil {
		if err == io.EOF {
			return err // Pass through EOF as-is for proper handling
		}
		return fmt.Errorf("failed to read message: %w", err)
	}

	if len(data) == 0 {
		return io.EOF
	}

	if err := json.Unmarshal(data, v); err != nil {
		b.logger.WithError(err).WithField("data", string(data)).Error("Failed to unmarshal JSON message")
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}

// WriteJSONMessage marshals and writes a JSON message
func (b *MCPTransportBridge) WriteJSONMessage(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.WithError(err).Error("Failed to marshal JSON message")
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return b.WriteMessage(data)
}

// Start starts the underlying transport
func (b *MCPTransportBridge) Start(ctx context.Context) error {
	b.logger.Info("Starting transport bridge")
	return b.customTransport.Start(ctx)
}

// IsClosed returns whether the transport is closed
func (b *MCPTransportBridge) IsClosed() bool {
	return b.customTransport.IsClosed()
}

// MCPToolHandler bridges MCP SDK tool calls to our internal tool registry
type MCPToolHandler struct {
	toolRegistry *tools.ToolRegistry
	toolName     string
	logger       *logrus.Logger
}

// NewMCPToolHandler creates a new MCP tool handler
func NewMCPToolHandler(toolRegistry *tools.ToolRegistry, toolName string, logger *logrus.Logger) mcp.ToolHandler {
	h := &MCPToolHandler{
		toolRegistry: toolRegistry,
		toolName:     toolName,
		logger:       logger,
	}
	return h.CallTool
}

// CallTool adapts Handle to the mcp.ToolHandler function signature
func (h *MCPToolHandler) CallTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := map[string]interface{}{}
	if req != nil && req.Params != nil && req.Params.Arguments != nil {
		raw, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool arguments: %w", err)
		}
	}

	result, err := h.Handle(ctx, params)
	if err != nil {
		return nil, err
	}

	return &mcp.CallToolResult{StructuredContent: result}, nil
}

// Handle implements mcp.ToolHandler interface
func (h *MCPToolHandler) Handle(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	h.logger.WithField("tool", h.toolName).Debug("Handling MCP tool call")

	req := &protocol.JSONRPC2Request{
		Method: h.toolName,
		Params: params,
	}

	response := h.toolRegistry.ExecuteTool(ctx, req)

	if response.Error != nil {
		return nil, fmt.Errorf("tool execution failed: %s", response.Error.Message)
	}

	return response.Result, nil
}
