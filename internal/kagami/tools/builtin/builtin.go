// Package builtin provides the built-in tool handlers Kagami registers at
// startup: local file reads, local shell execution, and the MCP catch-all
// proxy.  The read_file and shell handlers validate function-call arguments
// against the tool's JSON schema before touching the host; the MCP proxy
// forwards its arguments unchecked.
package builtin

import (
	"encoding/json"

	"github.com/bdobrica/Kagami/common/spec/toolspec"
	"github.com/bdobrica/Kagami/internal/kagami/tools"
)

// Register wires the built-in specs and handlers into the builder.  The MCP
// proxy is registered under the catch-all key so every `mcp__<server>__
// <tool>` name routes to it.
func Register(builder *tools.Builder, mcpCaller McpCaller) {
	readFile := NewReadFile()
	builder.PushSpec(readFile.Spec())
	builder.RegisterHandler("read_file", readFile)

	shell := NewShell()
	builder.PushSpecWithParallelSupport(shell.Spec(), true)
	builder.RegisterHandler("shell", shell)

	builder.RegisterHandler(tools.McpFallbackName, NewMcpProxy(mcpCaller))
}

// mustSpec builds a literal tool spec, panicking on a malformed schema.
func mustSpec(name, description, schema string) *toolspec.Spec {
	return toolspec.MustNew(name, description, json.RawMessage(schema))
}
