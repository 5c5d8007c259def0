// Package hookwire defines the wire-stable payload types delivered to
// after-tool hooks.  Hook processes consume these as JSON; the field names
// and shapes here are a compatibility contract and are deliberately
// decoupled from the in-process tool runtime representation.
package hookwire

import (
	"encoding/json"
	"fmt"
	"time"
)

// ToolKind classifies the payload that triggered the hook.
type ToolKind string

const (
	ToolKindFunction   ToolKind = "function"
	ToolKindCustom     ToolKind = "custom"
	ToolKindLocalShell ToolKind = "local_shell"
	ToolKindMcp        ToolKind = "mcp"
)

// LocalShellInput mirrors the parameters of a local shell invocation.
type LocalShellInput struct {
	Command            []string `json:"command"`
	Workdir            string   `json:"workdir,omitempty"`
	TimeoutMS          int64    `json:"timeout_ms,omitempty"`
	SandboxPermissions string   `json:"sandbox_permissions,omitempty"`
	Justification      string   `json:"justification,omitempty"`
}

// ToolInput is the wire-stable projection of a tool payload.  Kind selects
// which variant fields are populated: Arguments for Function, Input for
// Custom, Shell for LocalShell, and Server, Tool and Arguments for Mcp.
type ToolInput struct {
	Kind ToolKind `json:"kind"`

	// Function / Mcp arguments as raw JSON.
	Arguments json.RawMessage `json:"arguments,omitempty"`

	// Custom free-form input.
	Input string `json:"input,omitempty"`

	// LocalShell parameters.
	Shell *LocalShellInput `json:"shell,omitempty"`

	// Mcp routing.
	Server string `json:"server,omitempty"`
	Tool   string `json:"tool,omitempty"`
}

// AfterToolUse carries the observable result of one tool invocation.
type AfterToolUse struct {
	TurnID        string    `json:"turn_id"`
	CallID        string    `json:"call_id"`
	ToolName      string    `json:"tool_name"`
	ToolKind      ToolKind  `json:"tool_kind"`
	ToolInput     ToolInput `json:"tool_input"`
	Executed      bool      `json:"executed"`
	Success       bool      `json:"success"`
	DurationMS    int64     `json:"duration_ms"`
	Mutating      bool      `json:"mutating"`
	Sandbox       string    `json:"sandbox"`
	SandboxPolicy string    `json:"sandbox_policy"`
	OutputPreview string    `json:"output_preview"`
}

// Payload is the envelope delivered to hook processes.
type Payload struct {
	SessionID    string        `json:"session_id"`
	Cwd          string        `json:"cwd"`
	TriggeredAt  time.Time     `json:"triggered_at"`
	AfterToolUse *AfterToolUse `json:"after_tool_use,omitempty"`
}

// Validate checks that a Payload is structurally valid before dispatch.
func (p *Payload) Validate() error {
	if p == nil {
		return fmt.Errorf("payload must not be nil")
	}
	if p.SessionID == "" {
		return fmt.Errorf("session_id must not be empty")
	}
	if p.TriggeredAt.IsZero() {
		return fmt.Errorf("triggered_at must not be zero")
	}
	if p.AfterToolUse == nil {
		return fmt.Errorf("payload carries no event")
	}
	if p.AfterToolUse.CallID == "" {
		return fmt.Errorf("after_tool_use.call_id must not be empty")
	}
	if p.AfterToolUse.ToolName == "" {
		return fmt.Errorf("after_tool_use.tool_name must not be empty")
	}
	if p.AfterToolUse.DurationMS < 0 {
		return fmt.Errorf("after_tool_use.duration_ms must not be negative")
	}
	return nil
}

// Parse decodes a JSON-encoded Payload and validates it.
func Parse(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("hookwire parse: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("hookwire validate: %w", err)
	}
	return &p, nil
}
