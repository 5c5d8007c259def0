package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bdobrica/Kagami/internal/kagami/config"
	"github.com/bdobrica/Kagami/internal/kagami/tools"
)

func TestPlanModeBlocksFileMutationTools(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()
	turn.CollaborationMode = config.ModePlan
	d := buildDispatcher(map[string]tools.Handler{
		"mcp__fs__write_file": textHandler("ok", tools.FilesystemProvenance{Path: "/work/a.txt"}),
	})

	_, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "mcp__fs__write_file",
		CallID:   "call-1",
		Payload:  tools.FunctionPayload{Arguments: json.RawMessage(`{}`)},
		Session:  sess,
		Turn:     turn,
	})

	var respond *tools.RespondToModelError
	if !errors.As(err, &respond) {
		t.Fatalf("expected RespondToModelError, got %v", err)
	}
	want := "`mcp__fs__write_file` is blocked in Plan mode because it can mutate files. Switch to Default mode to run file edits."
	if respond.Message != want {
		t.Errorf("message:\n got %q\nwant %q", respond.Message, want)
	}

	hooks := sess.hooks.all()
	if len(hooks) != 1 {
		t.Fatalf("expected exactly one hook, got %d", len(hooks))
	}
	event := hooks[0].AfterToolUse
	if event.Success || !event.Executed || event.Mutating {
		t.Errorf("hook fields wrong: success=%v executed=%v mutating=%v", event.Success, event.Executed, event.Mutating)
	}
}

func TestPlanModeDoesNotGateReadOnlyTools(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()
	turn.CollaborationMode = config.ModePlan
	d := buildDispatcher(map[string]tools.Handler{
		"read_file": textHandler("contents", tools.FilesystemProvenance{Path: "/work/a.go"}),
	})

	response, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "read_file",
		CallID:   "call-1",
		Payload:  tools.FunctionPayload{Arguments: json.RawMessage(`{}`)},
		Session:  sess,
		Turn:     turn,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if response.Body.Text != "contents" {
		t.Errorf("body: got %q", response.Body.Text)
	}
}

func TestDefaultModeDoesNotGateMutationToolNames(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()
	d := buildDispatcher(map[string]tools.Handler{
		"apply_patch": textHandler("applied", tools.FilesystemProvenance{Path: "/work/a.go"}),
	})

	if _, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "apply_patch",
		CallID:   "call-1",
		Payload:  tools.FunctionPayload{},
		Session:  sess,
		Turn:     turn,
	}); err != nil {
		t.Fatalf("apply_patch must run outside plan mode: %v", err)
	}
}

func TestUnknownToolRespondsToModel(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()
	d := buildDispatcher(nil)

	_, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "nope",
		CallID:   "call-1",
		Payload:  tools.FunctionPayload{},
		Session:  sess,
		Turn:     turn,
	})
	var respond *tools.RespondToModelError
	if !errors.As(err, &respond) || respond.Message != "unsupported call: nope" {
		t.Fatalf("got %v", err)
	}

	_, err = d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "nope",
		CallID:   "call-2",
		Payload:  tools.CustomPayload{Input: "x"},
		Session:  sess,
		Turn:     turn,
	})
	if !errors.As(err, &respond) || respond.Message != "unsupported custom tool call: nope" {
		t.Fatalf("custom miss: got %v", err)
	}
}

func TestMcpPrefixFallsBackToCatchAll(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()
	handler := &funcHandler{
		kind: tools.KindMcp,
		handle: func(_ context.Context, inv *tools.Invocation) (*tools.Output, error) {
			return tools.McpOutput(json.RawMessage(`{"content": []}`), "", tools.McpProvenance{Server: "srv", Tool: "t"}), nil
		},
	}
	d := buildDispatcher(map[string]tools.Handler{tools.McpFallbackName: handler})

	response, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "mcp__srv__t",
		CallID:   "call-1",
		Payload:  tools.McpPayload{Server: "srv", Tool: "t"},
		Session:  sess,
		Turn:     turn,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if response.Kind != tools.KindMcp {
		t.Errorf("kind: got %v", response.Kind)
	}
}

func TestKindMismatchIsFatal(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()
	d := buildDispatcher(map[string]tools.Handler{
		"shell": textHandler("out", tools.ShellProvenance{Cwd: "/work"}),
	})

	_, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "shell",
		CallID:   "call-1",
		Payload:  tools.McpPayload{Server: "s", Tool: "t"},
		Session:  sess,
		Turn:     turn,
	})
	var fatal *tools.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
}

func TestExactlyOneHookPerCallWithFields(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()
	handler := &funcHandler{
		kind:     tools.KindFunction,
		mutating: true,
		handle: func(context.Context, *tools.Invocation) (*tools.Output, error) {
			time.Sleep(5 * time.Millisecond)
			success := true
			return tools.FunctionOutput(tools.TextBody("done"), &success, tools.FilesystemProvenance{Path: "/work/a.go"}), nil
		},
	}
	d := buildDispatcher(map[string]tools.Handler{"write_file": handler})

	if _, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "write_file",
		CallID:   "call-9",
		Payload:  tools.FunctionPayload{Arguments: json.RawMessage(`{"path":"a.go"}`)},
		Session:  sess,
		Turn:     turn,
	}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	hooks := sess.hooks.all()
	if len(hooks) != 1 {
		t.Fatalf("expected exactly one hook, got %d", len(hooks))
	}
	event := hooks[0].AfterToolUse
	if !event.Executed || !event.Success || !event.Mutating {
		t.Errorf("hook flags: %+v", event)
	}
	if event.DurationMS < 0 {
		t.Errorf("duration must be >= 0, got %d", event.DurationMS)
	}
	if event.CallID != "call-9" || event.ToolName != "write_file" {
		t.Errorf("hook identity: %+v", event)
	}
	if event.Sandbox == "" || event.SandboxPolicy != "workspace-write" {
		t.Errorf("sandbox tags: %q %q", event.Sandbox, event.SandboxPolicy)
	}
}

func TestHookFiresOnHandlerError(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()
	handler := &funcHandler{
		kind: tools.KindFunction,
		handle: func(context.Context, *tools.Invocation) (*tools.Output, error) {
			return nil, tools.RespondToModelf("handler exploded")
		},
	}
	d := buildDispatcher(map[string]tools.Handler{"boom": handler})

	_, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "boom",
		CallID:   "call-1",
		Payload:  tools.FunctionPayload{},
		Session:  sess,
		Turn:     turn,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	hooks := sess.hooks.all()
	if len(hooks) != 1 {
		t.Fatalf("expected one hook, got %d", len(hooks))
	}
	if hooks[0].AfterToolUse.Success {
		t.Error("hook success must be false on handler error")
	}
	if !hooks[0].AfterToolUse.Executed {
		t.Error("hook executed must be true when the handler ran")
	}
}

func TestHookErrorsAreSwallowed(t *testing.T) {
	sess := newFakeSession()
	sess.hooks.err = errors.New("hook process died")
	turn := newTurn()
	d := buildDispatcher(map[string]tools.Handler{
		"read_file": textHandler("contents", tools.FilesystemProvenance{Path: "/work/a.go"}),
	})

	if _, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "read_file",
		CallID:   "call-1",
		Payload:  tools.FunctionPayload{},
		Session:  sess,
		Turn:     turn,
	}); err != nil {
		t.Fatalf("hook failure must not fail the call: %v", err)
	}
}

func TestMutatingInvocationsSerialise(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()

	var mu sync.Mutex
	running := 0
	maxRunning := 0
	handler := &funcHandler{
		kind:     tools.KindFunction,
		mutating: true,
		handle: func(context.Context, *tools.Invocation) (*tools.Output, error) {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			success := true
			return tools.FunctionOutput(tools.TextBody("ok"), &success, tools.FilesystemProvenance{Path: "/work/a.go"}), nil
		},
	}
	d := buildDispatcher(map[string]tools.Handler{"write_file": handler})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Dispatch(context.Background(), &tools.Invocation{
				ToolName: "write_file",
				CallID:   "call",
				Payload:  tools.FunctionPayload{},
				Session:  sess,
				Turn:     turn,
			}); err != nil {
				t.Errorf("Dispatch: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxRunning != 1 {
		t.Errorf("mutating handler bodies overlapped: max concurrency %d", maxRunning)
	}
}

func TestNonMutatingInvocationsMayOverlap(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()

	// Hold the gate exclusively the whole test; non-mutating calls must not
	// wait on it.
	if err := turn.Gate.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer turn.Gate.Release()

	d := buildDispatcher(map[string]tools.Handler{
		"read_file": textHandler("contents", tools.FilesystemProvenance{Path: "/work/a.go"}),
	})

	done := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(context.Background(), &tools.Invocation{
			ToolName: "read_file",
			CallID:   "call-1",
			Payload:  tools.FunctionPayload{},
			Session:  sess,
			Turn:     turn,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("non-mutating call blocked on the held gate")
	}
}

func TestMissingOutputIsFatal(t *testing.T) {
	sess := newFakeSession()
	turn := newTurn()
	handler := &funcHandler{
		kind: tools.KindFunction,
		handle: func(context.Context, *tools.Invocation) (*tools.Output, error) {
			return nil, nil
		},
	}
	d := buildDispatcher(map[string]tools.Handler{"weird": handler})

	_, err := d.Dispatch(context.Background(), &tools.Invocation{
		ToolName: "weird",
		CallID:   "call-1",
		Payload:  tools.FunctionPayload{},
		Session:  sess,
		Turn:     turn,
	})
	var fatal *tools.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError for nil output, got %v", err)
	}
}
