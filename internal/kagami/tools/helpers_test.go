package tools_test

import (
	"context"
	"sync"

	"github.com/bdobrica/Kagami/common/spec/hookwire"
	"github.com/bdobrica/Kagami/internal/kagami/config"
	"github.com/bdobrica/Kagami/internal/kagami/gateway"
	"github.com/bdobrica/Kagami/internal/kagami/session"
	"github.com/bdobrica/Kagami/internal/kagami/telemetry"
	"github.com/bdobrica/Kagami/internal/kagami/tools"
)

// newTestTelemetry returns a manager backed by the global no-op providers.
func newTestTelemetry() *telemetry.Manager {
	return telemetry.NewManager()
}

// fakeHooks records every dispatched hook payload.
type fakeHooks struct {
	mu       sync.Mutex
	payloads []*hookwire.Payload
	err      error
}

func (h *fakeHooks) Dispatch(_ context.Context, payload *hookwire.Payload) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = append(h.payloads, payload)
	return h.err
}

func (h *fakeHooks) all() []*hookwire.Payload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*hookwire.Payload(nil), h.payloads...)
}

// patternAdd records one AddExclusionSecretPattern call.
type patternAdd struct {
	value     string
	allowlist bool
}

// fakeSession implements session.Session for dispatcher tests.
type fakeSession struct {
	mu sync.Mutex

	hooks *fakeHooks
	cache *gateway.Cache

	// answers is a queue of prompt answers keyed by question ID.
	answers []map[string]string

	approvalDecision session.ReviewDecision
	approvals        [][]string

	events   []session.EventMsg
	patterns []patternAdd
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		hooks:            &fakeHooks{},
		cache:            gateway.NewCache(),
		approvalDecision: session.ReviewApproved,
	}
}

func (s *fakeSession) ConversationID() string { return "conv-1" }

func (s *fakeSession) SendEvent(_ context.Context, event session.EventMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSession) RequestUserInput(_ context.Context, _ string, args session.UserInputArgs) *session.UserInputResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.answers) == 0 {
		return nil
	}
	next := s.answers[0]
	s.answers = s.answers[1:]
	answers := make(map[string][]string)
	for _, q := range args.Questions {
		if answer, ok := next[q.ID]; ok {
			answers[q.ID] = []string{answer}
		}
	}
	return &session.UserInputResponse{Answers: answers}
}

func (s *fakeSession) RequestCommandApproval(_ context.Context, _ string, command []string, _ string, _ string) session.ReviewDecision {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals = append(s.approvals, command)
	return s.approvalDecision
}

func (s *fakeSession) Hooks() session.HookDispatcher { return s.hooks }

func (s *fakeSession) AddExclusionSecretPattern(_ context.Context, value string, allowlist bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, patternAdd{value: value, allowlist: allowlist})
}

func (s *fakeSession) GatewayCache() *gateway.Cache { return s.cache }

func (s *fakeSession) warnings() []session.EventMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []session.EventMsg
	for _, event := range s.events {
		if event.Kind == session.EventWarning {
			out = append(out, event)
		}
	}
	return out
}

// newTurn builds a TurnContext with sane defaults for tests.
func newTurn() *session.TurnContext {
	return &session.TurnContext{
		Cwd:               "/work",
		KagamiHome:        "/tmp/kagami-test-home",
		TurnID:            "t_test",
		SandboxPolicy:     config.SandboxWorkspaceWrite,
		CollaborationMode: config.ModeDefault,
		Exclusion: config.Exclusion{
			LayerSendFirewallEnabled:       true,
			LayerOutputSanitizationEnabled: true,
			OnMatch:                        config.OnMatchRedact,
			PromptOnBlocked:                true,
			LogRedactions:                  config.LogRedactionsOff,
		},
		SensitivePaths:         gateway.NewPathResolver(nil),
		Counters:               gateway.NewCounters(),
		Gate:                   session.NewCallGate(),
		UnattestedOutputPolicy: config.UnattestedAllow,
	}
}

// funcHandler is a configurable test handler.
type funcHandler struct {
	kind     tools.Kind
	mutating bool
	handle   func(ctx context.Context, inv *tools.Invocation) (*tools.Output, error)
}

func (h *funcHandler) Kind() tools.Kind { return h.kind }

func (h *funcHandler) IsMutating(context.Context, *tools.Invocation) bool { return h.mutating }

func (h *funcHandler) Handle(ctx context.Context, inv *tools.Invocation) (*tools.Output, error) {
	return h.handle(ctx, inv)
}

// textHandler returns a fixed text output with the given provenance.
func textHandler(text string, provenance tools.Provenance) *funcHandler {
	success := true
	return &funcHandler{
		kind: tools.KindFunction,
		handle: func(context.Context, *tools.Invocation) (*tools.Output, error) {
			return tools.FunctionOutput(tools.TextBody(text), &success, provenance), nil
		},
	}
}

// buildDispatcher registers the given handlers and returns a dispatcher.
func buildDispatcher(handlers map[string]tools.Handler) *tools.Dispatcher {
	builder := tools.NewBuilder()
	for name, handler := range handlers {
		builder.RegisterHandler(name, handler)
	}
	_, registry := builder.Build()
	return tools.NewDispatcher(registry, newTestTelemetry())
}
