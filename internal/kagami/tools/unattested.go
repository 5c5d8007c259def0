package tools

import (
	"context"
	"fmt"

	"github.com/bdobrica/Kagami/internal/kagami/config"
	"github.com/bdobrica/Kagami/internal/kagami/session"
)

// unattestedBlockedMessage replaces the body of output blocked by the
// unattested-output policy.
const unattestedBlockedMessage = "unattested tool output blocked by policy"

// isUnattestedOutput reports whether the output's bytes were produced by a
// component Kagami does not itself gate.
func isUnattestedOutput(output *Output) bool {
	switch output.Provenance.(type) {
	case ShellProvenance, UnattestedProvenance:
		return output.Kind == KindFunction
	case McpProvenance:
		return true
	default:
		return false
	}
}

// warnFunc emits a warning event; approvalFunc asks the operator to approve
// a command vector and returns the decision.  They are injected so the
// policy logic is testable without a full session.
type warnFunc func(ctx context.Context, message string)
type approvalFunc func(ctx context.Context, command []string) string

// enforceUnattestedOutputPolicy applies the configured policy to an
// unattested output.  Denials and aborts replace the body with the policy
// message and mark the result unsuccessful; they are never errors.
func enforceUnattestedOutputPolicy(ctx context.Context, output *Output, policy config.UnattestedOutputPolicy, toolName, callID string, warn warnFunc, requestApproval approvalFunc) *Output {
	switch policy {
	case config.UnattestedAllow:
		return output
	case config.UnattestedWarn:
		warn(ctx, unattestedOutputWarningMessage(output, policy, toolName, callID))
		return output
	case config.UnattestedConfirm:
		warn(ctx, unattestedOutputWarningMessage(output, policy, toolName, callID))

		command := []string{"send_unattested_output", toolName, output.Provenance.OriginType()}
		if path, ok := output.Provenance.OriginPath(); ok {
			command = append(command, path)
		}

		decision := session.ReviewDecision(requestApproval(ctx, command))
		if decision.IsApproved() {
			return output
		}
		return blockUnattestedOutput(output)
	default: // config.UnattestedBlock
		return blockUnattestedOutput(output)
	}
}

// unattestedOutputWarningMessage is the operator-visible warning emitted
// before an unattested output is passed or confirmed.
func unattestedOutputWarningMessage(output *Output, policy config.UnattestedOutputPolicy, toolName, callID string) string {
	origin := "<unknown>"
	if path, ok := output.Provenance.OriginPath(); ok {
		origin = path
	}
	return fmt.Sprintf("unattested tool output (%s, call_id=%s, origin=%s) may contain sensitive data; policy=%s",
		toolName, callID, origin, policy)
}

// blockUnattestedOutput replaces the output's payload with the policy
// message, preserving provenance.
func blockUnattestedOutput(output *Output) *Output {
	switch output.Kind {
	case KindMcp:
		return &Output{Kind: KindMcp, McpErr: unattestedBlockedMessage, Provenance: output.Provenance}
	default:
		return &Output{
			Kind:       KindFunction,
			Body:       TextBody(unattestedBlockedMessage),
			Success:    boolPtr(false),
			Provenance: output.Provenance,
		}
	}
}
