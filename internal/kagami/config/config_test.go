package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bdobrica/Kagami/internal/kagami/config"
)

// writeConfig writes a temp YAML config file and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kagami.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exclusion.OnMatch != config.OnMatchRedact {
		t.Errorf("default on_match: got %q", cfg.Exclusion.OnMatch)
	}
	if !cfg.Exclusion.LayerOutputSanitizationEnabled {
		t.Error("output sanitization should default on")
	}
	if cfg.CollaborationMode != config.ModeDefault {
		t.Errorf("default mode: got %q", cfg.CollaborationMode)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := writeConfig(t, `
collaboration_mode: plan
unattested_output_policy: confirm
exclusion:
  layer_send_firewall_enabled: true
  layer_output_sanitization_enabled: false
  on_match: block
  log_redactions: "off"
worktrees:
  shared_dirs: [docs/plans, .cache]
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CollaborationMode != config.ModePlan {
		t.Errorf("mode: got %q", cfg.CollaborationMode)
	}
	if cfg.UnattestedOutputPolicy != config.UnattestedConfirm {
		t.Errorf("unattested policy: got %q", cfg.UnattestedOutputPolicy)
	}
	if cfg.Exclusion.OnMatch != config.OnMatchBlock {
		t.Errorf("on_match: got %q", cfg.Exclusion.OnMatch)
	}
	if cfg.Exclusion.LayerOutputSanitizationEnabled {
		t.Error("sanitization should be disabled by file")
	}
	if len(cfg.Worktrees.SharedDirs) != 2 || cfg.Worktrees.SharedDirs[0] != "docs/plans" {
		t.Errorf("shared dirs: got %v", cfg.Worktrees.SharedDirs)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "collaboration_mode: default\n")
	t.Setenv("KAGAMI_COLLABORATION_MODE", "plan")
	t.Setenv("KAGAMI_SHARED_DIRS", "docs/a, docs/b")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CollaborationMode != config.ModePlan {
		t.Errorf("env override lost: got %q", cfg.CollaborationMode)
	}
	if len(cfg.Worktrees.SharedDirs) != 2 || cfg.Worktrees.SharedDirs[1] != "docs/b" {
		t.Errorf("shared dirs env override: got %v", cfg.Worktrees.SharedDirs)
	}
}

func TestValidateRejectsBadEnums(t *testing.T) {
	cases := []string{
		"exclusion:\n  on_match: maybe\n",
		"unattested_output_policy: shrug\n",
		"collaboration_mode: vibe\n",
		"sandbox_policy: hope\n",
		"exclusion:\n  log_redactions: loud\n",
	}
	for _, body := range cases {
		if _, err := config.Load(writeConfig(t, body)); err == nil {
			t.Errorf("expected validation error for %q", body)
		}
	}
}

func TestSandboxTags(t *testing.T) {
	if got := config.SandboxTag(config.SandboxDangerFull, 0); got != "none" {
		t.Errorf("danger tag: got %q", got)
	}
	if got := config.SandboxTag(config.SandboxWorkspaceWrite, 0); got != "platform" {
		t.Errorf("workspace tag: got %q", got)
	}
	if got := config.SandboxTag(config.SandboxWorkspaceWrite, 2); got != "windows-level-2" {
		t.Errorf("windows tag: got %q", got)
	}
	if got := config.SandboxPolicyTag(config.SandboxReadOnly); got != "read-only" {
		t.Errorf("policy tag: got %q", got)
	}
}
