// Package trace provides turn and call ID generation and context propagation
// so that log lines emitted during a tool invocation can be correlated with
// the model turn that produced them.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// turnKey is the unexported context key used to store the turn ID.
type turnKey struct{}

// callKey is the unexported context key used to store the tool call ID.
type callKey struct{}

// NewTurnID generates a unique turn ID.
func NewTurnID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID if random fails (should never happen)
		return fmt.Sprintf("turn_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(bytes)
}

// NewCallID generates a short call ID for one tool invocation.
func NewCallID() string {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("call_%d", time.Now().UnixNano())
	}
	return "call_" + hex.EncodeToString(bytes)
}

// WithTurnID returns a child context carrying the given turn ID.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnKey{}, id)
}

// TurnID extracts the turn ID from ctx, returning "" if absent.
func TurnID(ctx context.Context) string {
	if v, ok := ctx.Value(turnKey{}).(string); ok {
		return v
	}
	return ""
}

// WithCallID returns a child context carrying the given call ID.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callKey{}, id)
}

// CallID extracts the call ID from ctx, returning "" if absent.
func CallID(ctx context.Context) string {
	if v, ok := ctx.Value(callKey{}).(string); ok {
		return v
	}
	return ""
}
