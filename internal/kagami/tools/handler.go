package tools

import (
	"context"
	"fmt"

	"github.com/bdobrica/Kagami/internal/kagami/session"
)

// Invocation is the immutable record of one tool call.  Handlers receive it
// by pointer but must not mutate it; Session and Turn are shared across all
// concurrent invocations of a turn.
type Invocation struct {
	ToolName string
	CallID   string
	Payload  Payload
	Session  session.Session
	Turn     *session.TurnContext
}

// Handler executes one named tool.
type Handler interface {
	// Kind declares which payload family this handler accepts.
	Kind() Kind

	// IsMutating reports whether the invocation might mutate the user's
	// environment (filesystem, OS state).  Implementations must be
	// conservative and return true on doubt.
	IsMutating(ctx context.Context, inv *Invocation) bool

	// Handle performs the invocation and returns the output to send to the
	// model, or an error from the taxonomy below.
	Handle(ctx context.Context, inv *Invocation) (*Output, error)
}

// NonMutating can be embedded by handlers whose tools never write.
type NonMutating struct{}

// IsMutating always reports false.
func (NonMutating) IsMutating(context.Context, *Invocation) bool { return false }

// RespondToModelError carries a user/model-visible message returned as the
// tool result.  Non-fatal: plan-mode blocks, unsupported tools, and invalid
// handler arguments all surface this way.
type RespondToModelError struct {
	Message string
}

func (e *RespondToModelError) Error() string { return e.Message }

// RespondToModelf builds a RespondToModelError.
func RespondToModelf(format string, args ...any) *RespondToModelError {
	return &RespondToModelError{Message: fmt.Sprintf(format, args...)}
}

// FatalError marks a host-side invariant violation (handler/payload kind
// mismatch, missing output).  It propagates to the caller.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string { return e.Message }

// Fatalf builds a FatalError.
func Fatalf(format string, args ...any) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...)}
}
