package session_test

import (
	"context"
	"testing"

	"github.com/bdobrica/Kagami/internal/kagami/session"
)

type recordingPatterns struct {
	values    []string
	allowlist []bool
	err       error
}

func (p *recordingPatterns) AddPattern(_ context.Context, value string, allowlist bool) error {
	p.values = append(p.values, value)
	p.allowlist = append(p.allowlist, allowlist)
	return p.err
}

func TestLocalSessionIdentity(t *testing.T) {
	a := session.NewLocal(nil, nil, nil)
	b := session.NewLocal(nil, nil, nil)
	if a.ConversationID() == "" {
		t.Fatal("conversation ID must not be empty")
	}
	if a.ConversationID() == b.ConversationID() {
		t.Error("conversation IDs must be unique")
	}
	if a.GatewayCache() == nil {
		t.Error("gateway cache must be initialised")
	}
}

func TestLocalSessionDismissesPromptsWithoutUI(t *testing.T) {
	s := session.NewLocal(nil, nil, nil)
	if response := s.RequestUserInput(context.Background(), "c1", session.UserInputArgs{}); response != nil {
		t.Error("headless prompt must be dismissed")
	}
	decision := s.RequestCommandApproval(context.Background(), "c1", []string{"send_unattested_output"}, "/", "")
	if decision != session.ReviewDenied {
		t.Errorf("headless approval must deny, got %s", decision)
	}
}

func TestLocalSessionPersistsPatterns(t *testing.T) {
	patterns := &recordingPatterns{}
	var notified []string
	s := session.NewLocal(nil, patterns, func(value string, allowlist bool) {
		notified = append(notified, value)
	})

	s.AddExclusionSecretPattern(context.Background(), `tok_\d+`, false)
	s.AddExclusionSecretPattern(context.Background(), "safe", true)

	if len(patterns.values) != 2 || patterns.values[0] != `tok_\d+` || patterns.allowlist[0] {
		t.Errorf("persisted patterns: %v %v", patterns.values, patterns.allowlist)
	}
	if !patterns.allowlist[1] {
		t.Error("second pattern must be allowlisted")
	}
	if len(notified) != 2 {
		t.Errorf("turn owner must be notified, got %v", notified)
	}
}
