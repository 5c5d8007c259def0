package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/bdobrica/Kagami/common/spec/hookwire"
	"github.com/bdobrica/Kagami/internal/kagami/session"
)

// hookOutcome carries the per-call fields of one after-tool hook dispatch.
type hookOutcome struct {
	outputPreview string
	success       bool
	executed      bool
	duration      time.Duration
	mutating      bool
}

// hookToolInput projects the in-process payload onto the wire-stable hook
// representation.
func hookToolInput(payload Payload) hookwire.ToolInput {
	switch p := payload.(type) {
	case FunctionPayload:
		return hookwire.ToolInput{Kind: hookwire.ToolKindFunction, Arguments: p.Arguments}
	case CustomPayload:
		return hookwire.ToolInput{Kind: hookwire.ToolKindCustom, Input: p.Input}
	case LocalShellPayload:
		return hookwire.ToolInput{Kind: hookwire.ToolKindLocalShell, Shell: &hookwire.LocalShellInput{
			Command:            p.Params.Command,
			Workdir:            p.Params.Workdir,
			TimeoutMS:          p.Params.TimeoutMS,
			SandboxPermissions: p.Params.SandboxPermissions,
			Justification:      p.Params.Justification,
		}}
	case McpPayload:
		return hookwire.ToolInput{Kind: hookwire.ToolKindMcp, Server: p.Server, Tool: p.Tool, Arguments: p.RawArguments}
	default:
		return hookwire.ToolInput{Kind: hookwire.ToolKindFunction}
	}
}

// dispatchAfterToolUseHook fires exactly one AfterToolUse hook for the
// invocation.  Dispatch is awaited; failures are logged and swallowed so a
// broken hook never fails the tool call.
func dispatchAfterToolUseHook(ctx context.Context, inv *Invocation, outcome hookOutcome) {
	toolInput := hookToolInput(inv.Payload)
	payload := &hookwire.Payload{
		SessionID:   inv.Session.ConversationID(),
		Cwd:         inv.Turn.Cwd,
		TriggeredAt: time.Now().UTC(),
		AfterToolUse: &hookwire.AfterToolUse{
			TurnID:        inv.Turn.TurnID,
			CallID:        inv.CallID,
			ToolName:      inv.ToolName,
			ToolKind:      toolInput.Kind,
			ToolInput:     toolInput,
			Executed:      outcome.executed,
			Success:       outcome.success,
			DurationMS:    outcome.duration.Milliseconds(),
			Mutating:      outcome.mutating,
			Sandbox:       inv.Turn.SandboxTag(),
			SandboxPolicy: inv.Turn.SandboxPolicyTag(),
			OutputPreview: outcome.outputPreview,
		},
	}
	if err := inv.Session.Hooks().Dispatch(ctx, payload); err != nil {
		slog.Warn("after-tool hook dispatch failed", "tool", inv.ToolName, "call_id", inv.CallID, "err", err)
	}
}

// sessionWarning wraps a message as a warning event.
func sessionWarning(message string) session.EventMsg {
	return session.EventMsg{Kind: session.EventWarning, Message: message}
}
