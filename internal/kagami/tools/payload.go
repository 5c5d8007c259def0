// Package tools implements the tool registry and the dispatcher that runs
// one tool invocation end to end: plan-mode gating, handler lookup and kind
// checking, mutation serialisation, telemetry, the after-tool hook, and the
// sensitive-content and unattested-output policies.
package tools

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the two handler capabilities.
type Kind int

const (
	KindFunction Kind = iota
	KindMcp
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMcp:
		return "mcp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ShellParams are the parameters of a local shell invocation.
type ShellParams struct {
	Command            []string `json:"command"`
	Workdir            string   `json:"workdir,omitempty"`
	TimeoutMS          int64    `json:"timeout_ms,omitempty"`
	SandboxPermissions string   `json:"sandbox_permissions,omitempty"`
	Justification      string   `json:"justification,omitempty"`
}

// Payload is the tagged variant produced by the model stream for one call.
type Payload interface {
	// LogPreview is a compact representation for telemetry.
	LogPreview() string

	isPayload()
}

// FunctionPayload carries raw JSON arguments for a function tool.
type FunctionPayload struct {
	Arguments json.RawMessage
}

// CustomPayload carries the free-form input of a custom tool call.
type CustomPayload struct {
	Input string
}

// LocalShellPayload carries a local shell command.
type LocalShellPayload struct {
	Params ShellParams
}

// McpPayload routes a call to an MCP server tool.
type McpPayload struct {
	Server       string
	Tool         string
	RawArguments json.RawMessage
}

func (FunctionPayload) isPayload()   {}
func (CustomPayload) isPayload()     {}
func (LocalShellPayload) isPayload() {}
func (McpPayload) isPayload()        {}

func (p FunctionPayload) LogPreview() string { return string(p.Arguments) }
func (p CustomPayload) LogPreview() string   { return p.Input }
func (p LocalShellPayload) LogPreview() string {
	return fmt.Sprintf("%v", p.Params.Command)
}
func (p McpPayload) LogPreview() string {
	return fmt.Sprintf("%s/%s %s", p.Server, p.Tool, string(p.RawArguments))
}

// matchesKind reports whether a handler of the given kind accepts payload.
func matchesKind(kind Kind, payload Payload) bool {
	switch payload.(type) {
	case FunctionPayload:
		return kind == KindFunction
	case McpPayload:
		return kind == KindMcp
	default:
		return false
	}
}

// unsupportedToolCallMessage is the model-visible text for a lookup miss.
func unsupportedToolCallMessage(payload Payload, toolName string) string {
	if _, ok := payload.(CustomPayload); ok {
		return fmt.Sprintf("unsupported custom tool call: %s", toolName)
	}
	return fmt.Sprintf("unsupported call: %s", toolName)
}
