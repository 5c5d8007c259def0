package tools

import (
	"context"
	"time"

	"github.com/bdobrica/Kagami/internal/kagami/telemetry"
)

// Dispatcher orchestrates one tool invocation end to end.  Multiple
// invocations may be in flight concurrently; the only cross-invocation
// ordering it guarantees is that mutating calls hold the turn's CallGate
// exclusively while their handler runs.
type Dispatcher struct {
	registry  *Registry
	telemetry *telemetry.Manager
}

// NewDispatcher builds a Dispatcher over the given registry.
func NewDispatcher(registry *Registry, manager *telemetry.Manager) *Dispatcher {
	return &Dispatcher{registry: registry, telemetry: manager}
}

// Dispatch runs the invocation through the ordered phases described in the
// package documentation and returns the packaged response or an error from
// the taxonomy in handler.go.  Policy outcomes (gateway denials, unattested
// blocks) are successful responses carrying success=false, never errors.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *Invocation) (*ResponseItem, error) {
	turn := inv.Turn
	sess := inv.Session
	logPayload := inv.Payload.LogPreview()
	tags := []telemetry.Tag{
		{Key: "sandbox", Value: turn.SandboxTag()},
		{Key: "sandbox_policy", Value: turn.SandboxPolicyTag()},
	}

	// Plan-mode gate.
	if message := PlanModeBlockMessage(turn.CollaborationMode, inv.ToolName); message != "" {
		d.telemetry.ToolResult(ctx, inv.ToolName, inv.CallID, logPayload, 0, false, message, tags)
		dispatchAfterToolUseHook(ctx, inv, hookOutcome{
			outputPreview: message,
			executed:      true,
		})
		return nil, &RespondToModelError{Message: message}
	}

	// Handler lookup.
	handler := d.registry.Handler(inv.ToolName)
	if handler == nil {
		message := unsupportedToolCallMessage(inv.Payload, inv.ToolName)
		d.telemetry.ToolResult(ctx, inv.ToolName, inv.CallID, logPayload, 0, false, message, tags)
		dispatchAfterToolUseHook(ctx, inv, hookOutcome{outputPreview: message})
		return nil, &RespondToModelError{Message: message}
	}

	// Kind compatibility.
	if !matchesKind(handler.Kind(), inv.Payload) {
		message := "tool " + inv.ToolName + " invoked with incompatible payload"
		d.telemetry.ToolResult(ctx, inv.ToolName, inv.CallID, logPayload, 0, false, message, tags)
		dispatchAfterToolUseHook(ctx, inv, hookOutcome{outputPreview: message})
		return nil, &FatalError{Message: message}
	}

	isMutating := handler.IsMutating(ctx, inv)

	// Handler execution inside the telemetry span; mutating calls hold the
	// gate for the duration of the handler body.
	var output *Output
	started := time.Now()
	preview, success, err := d.telemetry.LogToolResult(ctx, inv.ToolName, inv.CallID, logPayload, tags,
		func(ctx context.Context) (string, bool, error) {
			if isMutating {
				if err := turn.Gate.Acquire(ctx); err != nil {
					return "", false, Fatalf("tool %s cancelled while waiting for the call gate: %v", inv.ToolName, err)
				}
				defer turn.Gate.Release()
			}
			out, err := handler.Handle(ctx, inv)
			if err != nil {
				return "", false, err
			}
			if out == nil {
				return "", false, nil
			}
			output = out
			return out.LogPreview(), out.SuccessForLogging(), nil
		})
	duration := time.Since(started)

	outcome := hookOutcome{
		outputPreview: telemetry.Preview(preview),
		success:       success,
		executed:      true,
		duration:      duration,
		mutating:      isMutating,
	}
	if err != nil {
		outcome.outputPreview = telemetry.Preview(err.Error())
		outcome.success = false
	}
	dispatchAfterToolUseHook(ctx, inv, outcome)

	if err != nil {
		return nil, err
	}
	if output == nil {
		return nil, &FatalError{Message: "tool produced no output"}
	}

	// Sensitive-content enforcement, then the unattested-output policy.
	output = enforceSensitiveSendPolicy(ctx, output, sess, turn, inv.ToolName, inv.CallID)
	if isUnattestedOutput(output) {
		output = enforceUnattestedOutputPolicy(ctx, output, turn.UnattestedOutputPolicy, inv.ToolName, inv.CallID,
			func(ctx context.Context, message string) {
				sess.SendEvent(ctx, sessionWarning(message))
			},
			func(ctx context.Context, command []string) string {
				return string(sess.RequestCommandApproval(ctx, inv.CallID, command, turn.Cwd,
					"unattested MCP output would be sent to the model"))
			})
	}

	return output.IntoResponse(inv.CallID), nil
}
