package session

import (
	"github.com/bdobrica/Kagami/internal/kagami/config"
	"github.com/bdobrica/Kagami/internal/kagami/gateway"
)

// TurnContext carries the per-turn settings shared by every tool invocation
// of one model turn.  It is read-mostly: the exclusion counters and the call
// gate are the only mutable members and are individually synchronised.
type TurnContext struct {
	// Cwd is the working directory tools resolve relative paths against.
	Cwd string

	// KagamiHome is the state directory (redaction logs, store).
	KagamiHome string

	// TurnID identifies this turn in hook payloads and telemetry.
	TurnID string

	// SandboxPolicy and WindowsSandboxLevel determine the sandbox tags.
	SandboxPolicy       config.SandboxPolicy
	WindowsSandboxLevel int

	// Exclusion is the sensitive-content configuration for this turn.
	Exclusion config.Exclusion

	// ExtraSecretPatterns and ExtraAllowPatterns are session-added patterns
	// layered over the configured ones.
	ExtraSecretPatterns []string
	ExtraAllowPatterns  []string

	// SensitivePaths resolves send decisions and the ignore epoch.
	SensitivePaths gateway.SensitivePaths

	// Counters tallies gateway redactions and blocks process-wide.
	Counters *gateway.Counters

	// CollaborationMode gates file-mutation tools in plan mode.
	CollaborationMode config.ModeKind

	// Gate serialises mutating tool calls against privileged operations.
	Gate *CallGate

	// UnattestedOutputPolicy applies to shell/MCP/unattested provenance.
	UnattestedOutputPolicy config.UnattestedOutputPolicy
}

// SandboxTag returns the `sandbox` metric tag for this turn.
func (t *TurnContext) SandboxTag() string {
	return config.SandboxTag(t.SandboxPolicy, t.WindowsSandboxLevel)
}

// SandboxPolicyTag returns the `sandbox_policy` metric tag for this turn.
func (t *TurnContext) SandboxPolicyTag() string {
	return config.SandboxPolicyTag(t.SandboxPolicy)
}
