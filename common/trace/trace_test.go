package trace_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bdobrica/Kagami/common/trace"
)

func TestTurnIDRoundTrip(t *testing.T) {
	id := trace.NewTurnID()
	if !strings.HasPrefix(id, "t_") {
		t.Errorf("turn ID shape: %q", id)
	}
	ctx := trace.WithTurnID(context.Background(), id)
	if got := trace.TurnID(ctx); got != id {
		t.Errorf("got %q, want %q", got, id)
	}
	if trace.TurnID(context.Background()) != "" {
		t.Error("empty context must yield empty turn ID")
	}
}

func TestCallIDRoundTrip(t *testing.T) {
	id := trace.NewCallID()
	if !strings.HasPrefix(id, "call_") {
		t.Errorf("call ID shape: %q", id)
	}
	ctx := trace.WithCallID(context.Background(), id)
	if got := trace.CallID(ctx); got != id {
		t.Errorf("got %q, want %q", got, id)
	}
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := trace.NewTurnID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate turn ID %q", id)
		}
		seen[id] = struct{}{}
	}
}
