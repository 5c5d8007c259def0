// Package session defines the collaborator surface the tool dispatcher and
// content gateway consume: event emission, interactive prompts, command
// approvals, hook dispatch, and the per-session gateway cache.  The concrete
// session (conversation wiring, transport, composer) lives outside the core
// and implements these interfaces.
package session

import (
	"context"

	"github.com/bdobrica/Kagami/common/spec/hookwire"
	"github.com/bdobrica/Kagami/internal/kagami/gateway"
)

// ReviewDecision is the operator's answer to a command-approval request.
type ReviewDecision string

const (
	ReviewApproved                    ReviewDecision = "approved"
	ReviewApprovedForSession          ReviewDecision = "approved_for_session"
	ReviewApprovedExecpolicyAmendment ReviewDecision = "approved_execpolicy_amendment"
	ReviewDenied                      ReviewDecision = "denied"
	ReviewAbort                       ReviewDecision = "abort"
)

// IsApproved reports whether the decision permits the action.  An execpolicy
// amendment is treated the same as a plain approval; the amendment itself is
// not recorded here.
func (d ReviewDecision) IsApproved() bool {
	switch d {
	case ReviewApproved, ReviewApprovedForSession, ReviewApprovedExecpolicyAmendment:
		return true
	default:
		return false
	}
}

// EventMsg is a status event emitted to the operator's UI.
type EventMsg struct {
	Kind    EventKind
	Message string
}

// EventKind classifies an EventMsg.
type EventKind string

const (
	EventInfo    EventKind = "info"
	EventWarning EventKind = "warning"
	EventError   EventKind = "error"
)

// UserInputOption is one selectable answer of an interactive question.
type UserInputOption struct {
	Label       string
	Description string
}

// UserInputQuestion is a single labelled question shown to the operator.
type UserInputQuestion struct {
	Header   string
	ID       string
	Question string
	Options  []UserInputOption
}

// UserInputArgs is the prompt request passed to the UI.
type UserInputArgs struct {
	Questions []UserInputQuestion
}

// UserInputResponse maps question IDs to the chosen answer labels.  A nil
// response means the prompt was dismissed.
type UserInputResponse struct {
	Answers map[string][]string
}

// First returns the first answer for the question with the given ID, or ""
// when absent.
func (r *UserInputResponse) First(id string) string {
	if r == nil {
		return ""
	}
	answers := r.Answers[id]
	if len(answers) == 0 {
		return ""
	}
	return answers[0]
}

// HookDispatcher delivers hook payloads to configured hook processes.
// Dispatch is awaited but its errors do not propagate into the tool call
// path; the tool dispatcher logs and swallows any error Dispatch returns.
type HookDispatcher interface {
	Dispatch(ctx context.Context, payload *hookwire.Payload) error
}

// Session is the per-conversation collaborator surface.  Implementations
// must be safe for concurrent use from multiple dispatch tasks.
type Session interface {
	// ConversationID identifies the conversation for hooks and telemetry.
	ConversationID() string

	// SendEvent emits a status event to the UI.  Best effort.
	SendEvent(ctx context.Context, event EventMsg)

	// RequestUserInput shows an interactive prompt and waits for the answer.
	// A nil response means the operator dismissed the prompt.
	RequestUserInput(ctx context.Context, callID string, args UserInputArgs) *UserInputResponse

	// RequestCommandApproval asks the operator to approve a command vector.
	RequestCommandApproval(ctx context.Context, callID string, command []string, cwd string, reason string) ReviewDecision

	// Hooks returns the hook dispatcher for this session.
	Hooks() HookDispatcher

	// AddExclusionSecretPattern persists a secret pattern (allowlist or
	// blocklist) onto the running session and its store.
	AddExclusionSecretPattern(ctx context.Context, value string, allowlist bool)

	// GatewayCache returns the session-wide content-gateway cache.
	GatewayCache() *gateway.Cache
}
