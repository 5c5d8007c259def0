package builtin

import (
	"context"
	"encoding/json"

	"github.com/bdobrica/Kagami/internal/kagami/tools"
)

// McpCaller is the MCP connection manager surface the proxy delegates to.
// Connection management and protocol framing live outside the core.
type McpCaller interface {
	// CallTool invokes tool on server and returns the raw result document,
	// or an error string from the server.
	CallTool(ctx context.Context, server, tool string, arguments json.RawMessage) (json.RawMessage, error)
}

// McpProxy is the catch-all handler for `mcp__<server>__<tool>` names.
type McpProxy struct {
	tools.NonMutating
	caller McpCaller
}

// NewMcpProxy builds the proxy over the given caller.
func NewMcpProxy(caller McpCaller) *McpProxy {
	return &McpProxy{caller: caller}
}

// Kind implements tools.Handler.
func (h *McpProxy) Kind() tools.Kind { return tools.KindMcp }

// Handle implements tools.Handler.  Server errors become MCP error results
// (success=false downstream), not dispatch failures.
func (h *McpProxy) Handle(ctx context.Context, inv *tools.Invocation) (*tools.Output, error) {
	payload, ok := inv.Payload.(tools.McpPayload)
	if !ok {
		return nil, tools.Fatalf("mcp proxy invoked with a non-mcp payload")
	}
	if h.caller == nil {
		return nil, tools.RespondToModelf("no MCP servers are configured")
	}

	provenance := tools.McpProvenance{Server: payload.Server, Tool: payload.Tool}
	result, err := h.caller.CallTool(ctx, payload.Server, payload.Tool, payload.RawArguments)
	if err != nil {
		return tools.McpOutput(nil, err.Error(), provenance), nil
	}
	return tools.McpOutput(result, "", provenance), nil
}
