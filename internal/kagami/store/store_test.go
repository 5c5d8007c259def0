package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bdobrica/Kagami/common/crypto"
	"github.com/bdobrica/Kagami/internal/kagami/store"
)

// newTestStore creates a temporary sqlite database.  It is cleaned up when
// the test ends.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	s, err := store.Open(filepath.Join(t.TempDir(), "kagami-test.db"), key)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsShortKey(t *testing.T) {
	_, err := store.Open(filepath.Join(t.TempDir(), "x.db"), []byte("short"))
	if err == nil {
		t.Fatal("expected key-size error")
	}
}

func TestAddAndListPatterns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddPattern(ctx, `tok_[a-z0-9]{8}`, false); err != nil {
		t.Fatalf("AddPattern: %v", err)
	}
	if _, err := s.AddPattern(ctx, `safe_value`, true); err != nil {
		t.Fatalf("AddPattern: %v", err)
	}

	patterns, err := s.ListPatterns(ctx)
	if err != nil {
		t.Fatalf("ListPatterns: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}
	if patterns[0].Value != `tok_[a-z0-9]{8}` || patterns[0].Allowlist {
		t.Errorf("first pattern: %+v", patterns[0])
	}
	if patterns[1].Value != "safe_value" || !patterns[1].Allowlist {
		t.Errorf("second pattern: %+v", patterns[1])
	}
}

func TestPatternsAreEncryptedAtRest(t *testing.T) {
	key := make([]byte, crypto.KeySize)
	path := filepath.Join(t.TempDir(), "kagami.db")
	s, err := store.Open(path, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if _, err := s.AddPattern(ctx, "super_secret_token", false); err != nil {
		t.Fatalf("AddPattern: %v", err)
	}
	s.Close()

	// Reopen with a different key: the entry must be unreadable, not leaked.
	otherKey := make([]byte, crypto.KeySize)
	otherKey[0] = 0xFF
	s2, err := store.Open(path, otherKey)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	patterns, err := s2.ListPatterns(ctx)
	if err != nil {
		t.Fatalf("ListPatterns: %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("pattern decrypted with the wrong key: %+v", patterns)
	}
}

func TestReplaceAndReadSharedDirs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceSharedDirs(ctx, []string{"docs/plans", ".cache", "assets"}); err != nil {
		t.Fatalf("ReplaceSharedDirs: %v", err)
	}
	dirs, err := s.SharedDirs(ctx)
	if err != nil {
		t.Fatalf("SharedDirs: %v", err)
	}
	if !reflect.DeepEqual(dirs, []string{"docs/plans", ".cache", "assets"}) {
		t.Errorf("dirs: %v", dirs)
	}

	// Replacement drops old entries and keeps the new order.
	if err := s.ReplaceSharedDirs(ctx, []string{"assets"}); err != nil {
		t.Fatalf("ReplaceSharedDirs: %v", err)
	}
	dirs, err = s.SharedDirs(ctx)
	if err != nil {
		t.Fatalf("SharedDirs: %v", err)
	}
	if !reflect.DeepEqual(dirs, []string{"assets"}) {
		t.Errorf("dirs after replace: %v", dirs)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "exclusion.on_match", "block"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "exclusion.on_match")
	if err != nil || got != "block" {
		t.Errorf("Get: %q, %v", got, err)
	}

	// Upsert overwrites.
	if err := s.Set(ctx, "exclusion.on_match", "redact"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := s.Get(ctx, "exclusion.on_match"); got != "redact" {
		t.Errorf("after upsert: %q", got)
	}

	if err := s.Delete(ctx, "exclusion.on_match"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "exclusion.on_match"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Idempotent delete.
	if err := s.Delete(ctx, "exclusion.on_match"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
