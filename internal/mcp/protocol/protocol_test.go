package protocol

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct {
	name string
}

func (e *echoTool) HandleTool(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response {
	return &JSONRPC2Response{Result: map[string]interface{}{"echo": req.Params}}
}

func (e *echoTool) GetToolInfo() ToolInfo {
	return ToolInfo{Name: e.name, Description: "echoes parameters back"}
}

func (e *echoTool) ValidateParams(params interface{}) error { return nil }

func TestProcessMessage_ParseError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	core := NewProtocolCore(logger)

	out, err := core.ProcessMessage(context.Background(), "client-1", []byte("{not json"))
	require.NoError(t, err)

	var resp JSONRPC2Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ParseError, resp.Error.Code)
}

func TestProcessMessage_InvalidVersion(t *testing.T) {
	logger, _ := test.NewNullLogger()
	core := NewProtocolCore(logger)

	out, err := core.ProcessMessage(context.Background(), "client-1",
		[]byte(`{"jsonrpc":"1.0","method":"tools/list","id":1}`))
	require.NoError(t, err)

	var resp JSONRPC2Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)
}

func TestProcessMessage_MethodNotFound(t *testing.T) {
	logger, _ := test.NewNullLogger()
	core := NewProtocolCore(logger)

	out, err := core.ProcessMessage(context.Background(), "client-1",
		[]byte(`{"jsonrpc":"2.0","method":"no/such/method","id":7}`))
	require.NoError(t, err)

	var resp JSONRPC2Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
	assert.Equal(t, float64(7), resp.ID)
}

func TestRouter_ToolsList(t *testing.T) {
	logger, _ := test.NewNullLogger()
	router := NewMessageRouter(logger)
	router.RegisterToolHandler("validate_order", &echoTool{name: "validate_order"})
	router.RegisterToolHandler("submit_order", &echoTool{name: "submit_order"})

	resp := router.HandleRequest(context.Background(), &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tools/list",
	})

	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	tools, ok := result["tools"].([]ToolInfo)
	require.True(t, ok)
	assert.Len(t, tools, 2)
}

func TestRouter_ToolsCall(t *testing.T) {
	logger, _ := test.NewNullLogger()
	router := NewMessageRouter(logger)
	router.RegisterToolHandler("validate_order", &echoTool{name: "validate_order"})

	resp := router.HandleRequest(context.Background(), &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name":      "validate_order",
			"arguments": map[string]interface{}{"drug_code": "VANCO-INJ"},
		},
	})

	require.Nil(t, resp.Error)
}

func TestRouter_ToolsCall_UnknownTool(t *testing.T) {
	logger, _ := test.NewNullLogger()
	router := NewMessageRouter(logger)

	resp := router.HandleRequest(context.Background(), &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name": "nonexistent_tool",
		},
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
}

func TestRouter_Initialize(t *testing.T) {
	logger, _ := test.NewNullLogger()
	router := NewMessageRouter(logger)

	resp := router.HandleRequest(context.Background(), &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "initialize",
	})

	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, result, "serverInfo")
	assert.Contains(t, result, "capabilities")
}

func TestRateLimiter_Burst(t *testing.T) {
	logger, _ := test.NewNullLogger()
	rl := NewRateLimiter(logger)

	allowed := 0
	for i := 0; i < 20; i++ {
		if rl.AllowRequest("burst-client") {
			allowed++
		}
	}

	// Burst limit of 10 tokens, refill is too slow to matter here.
	assert.Equal(t, 10, allowed)

	stats := rl.GetClientStats("burst-client")
	require.NotNil(t, stats)
	assert.Equal(t, int64(10), stats["allowed"])
	assert.Equal(t, int64(10), stats["denied"])
}
