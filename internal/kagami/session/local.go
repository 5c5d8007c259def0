package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bdobrica/Kagami/common/spec/hookwire"
	"github.com/bdobrica/Kagami/internal/kagami/gateway"
)

// PatternStore persists operator-added exclusion patterns.
type PatternStore interface {
	AddPattern(ctx context.Context, value string, allowlist bool) error
}

// UISurface is the interactive half of a session: the composer-side code
// that can show prompts and approval dialogs.  A nil surface dismisses
// everything, which resolves to the conservative outcome at each call site.
type UISurface interface {
	SendEvent(ctx context.Context, event EventMsg)
	RequestUserInput(ctx context.Context, callID string, args UserInputArgs) *UserInputResponse
	RequestCommandApproval(ctx context.Context, callID string, command []string, cwd string, reason string) ReviewDecision
}

// Local is the in-process Session implementation.  It owns the conversation
// identity, the gateway cache, and pattern persistence; prompts and events
// delegate to the attached UI surface.
type Local struct {
	conversationID string
	cache          *gateway.Cache
	hooks          HookDispatcher
	patterns       PatternStore

	mu sync.Mutex
	ui UISurface

	// onPatternAdded lets the turn owner fold new patterns into the next
	// gateway build.
	onPatternAdded func(value string, allowlist bool)
}

// NewLocal builds a session with a fresh conversation ID.
func NewLocal(hooks HookDispatcher, patterns PatternStore, onPatternAdded func(value string, allowlist bool)) *Local {
	if hooks == nil {
		hooks = loggingHooks{}
	}
	return &Local{
		conversationID: uuid.NewString(),
		cache:          gateway.NewCache(),
		hooks:          hooks,
		patterns:       patterns,
		onPatternAdded: onPatternAdded,
	}
}

// AttachUI connects the interactive surface.  Safe to call at any time.
func (s *Local) AttachUI(ui UISurface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui = ui
}

func (s *Local) surface() UISurface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui
}

// ConversationID implements Session.
func (s *Local) ConversationID() string { return s.conversationID }

// SendEvent implements Session.
func (s *Local) SendEvent(ctx context.Context, event EventMsg) {
	if ui := s.surface(); ui != nil {
		ui.SendEvent(ctx, event)
		return
	}
	slog.Info("session event", "kind", event.Kind, "message", event.Message)
}

// RequestUserInput implements Session.  Without a UI the prompt is
// dismissed, which callers treat as "keep the restrictive outcome".
func (s *Local) RequestUserInput(ctx context.Context, callID string, args UserInputArgs) *UserInputResponse {
	if ui := s.surface(); ui != nil {
		return ui.RequestUserInput(ctx, callID, args)
	}
	return nil
}

// RequestCommandApproval implements Session.  Without a UI the answer is
// Denied: unattended sessions never leak unattested output.
func (s *Local) RequestCommandApproval(ctx context.Context, callID string, command []string, cwd string, reason string) ReviewDecision {
	if ui := s.surface(); ui != nil {
		return ui.RequestCommandApproval(ctx, callID, command, cwd, reason)
	}
	return ReviewDenied
}

// Hooks implements Session.
func (s *Local) Hooks() HookDispatcher { return s.hooks }

// AddExclusionSecretPattern implements Session.
func (s *Local) AddExclusionSecretPattern(ctx context.Context, value string, allowlist bool) {
	if s.patterns != nil {
		if err := s.patterns.AddPattern(ctx, value, allowlist); err != nil {
			slog.Warn("could not persist exclusion pattern", "allowlist", allowlist, "err", err)
		}
	}
	if s.onPatternAdded != nil {
		s.onPatternAdded(value, allowlist)
	}
}

// GatewayCache implements Session.
func (s *Local) GatewayCache() *gateway.Cache { return s.cache }

// loggingHooks is the fallback dispatcher when no hook processes are
// configured: payloads are logged at debug and dropped.
type loggingHooks struct{}

func (loggingHooks) Dispatch(_ context.Context, payload *hookwire.Payload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	slog.Debug("after-tool hook",
		"tool", payload.AfterToolUse.ToolName,
		"call_id", payload.AfterToolUse.CallID,
		"success", payload.AfterToolUse.Success,
		"duration_ms", payload.AfterToolUse.DurationMS)
	return nil
}
