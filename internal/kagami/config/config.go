// Package config loads and holds Kagami's runtime configuration: the
// exclusion (sensitive-content) settings, the unattested-output policy, the
// collaboration mode, sandboxing, and the worktree shared-dir defaults.
//
// Configuration is read from a YAML file merged with KAGAMI_* environment
// overrides. Operator-tunable knobs changed at runtime live in the sqlite
// config table (internal/kagami/store), not here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Kagami/common/environment"
)

// OnMatchPolicy controls what the content gateway does with a matched value.
type OnMatchPolicy string

const (
	OnMatchOff    OnMatchPolicy = "off"
	OnMatchRedact OnMatchPolicy = "redact"
	OnMatchBlock  OnMatchPolicy = "block"
)

// UnattestedOutputPolicy controls what happens to tool output produced by a
// component Kagami does not itself gate (shells, MCP servers).
type UnattestedOutputPolicy string

const (
	UnattestedAllow   UnattestedOutputPolicy = "allow"
	UnattestedWarn    UnattestedOutputPolicy = "warn"
	UnattestedConfirm UnattestedOutputPolicy = "confirm"
	UnattestedBlock   UnattestedOutputPolicy = "block"
)

// ModeKind is the collaboration mode of the current turn.
type ModeKind string

const (
	ModeDefault ModeKind = "default"
	ModePlan    ModeKind = "plan"
)

// SandboxPolicy names the sandbox the tool handlers run under.
type SandboxPolicy string

const (
	SandboxReadOnly        SandboxPolicy = "read-only"
	SandboxWorkspaceWrite  SandboxPolicy = "workspace-write"
	SandboxDangerFull      SandboxPolicy = "danger-full-access"
	SandboxExternalSandbox SandboxPolicy = "external-sandbox"
)

// LogRedactionsMode selects how much of a redaction event is written to the
// redaction log.
type LogRedactionsMode string

const (
	LogRedactionsOff     LogRedactionsMode = "off"
	LogRedactionsSummary LogRedactionsMode = "summary"
	LogRedactionsFull    LogRedactionsMode = "full"
)

// Exclusion holds the sensitive-content gateway settings.
type Exclusion struct {
	// LayerSendFirewallEnabled enables Layer 3 (sensitive-path send firewall).
	LayerSendFirewallEnabled bool `yaml:"layer_send_firewall_enabled"`

	// LayerOutputSanitizationEnabled enables Layer 2 (output sanitization).
	LayerOutputSanitizationEnabled bool `yaml:"layer_output_sanitization_enabled"`

	// OnMatch is the action taken for matched content when no interactive
	// decision overrides it.
	OnMatch OnMatchPolicy `yaml:"on_match"`

	// PromptOnBlocked asks the operator instead of silently applying OnMatch.
	PromptOnBlocked bool `yaml:"prompt_on_blocked"`

	// PromptRevealSecretMatches shows full matched secret values in prompts
	// by default instead of fingerprints.
	PromptRevealSecretMatches bool `yaml:"prompt_reveal_secret_matches"`

	// LogRedactions controls the redaction event log.
	LogRedactions        LogRedactionsMode `yaml:"log_redactions"`
	LogRedactionsMaxBytes int64            `yaml:"log_redactions_max_bytes"`
	LogRedactionsMaxFiles int              `yaml:"log_redactions_max_files"`

	// SecretPatterns are additional operator-supplied regexes scanned as
	// secrets. AllowPatterns subtract matches.
	SecretPatterns []string `yaml:"secret_patterns"`
	AllowPatterns  []string `yaml:"allow_patterns"`
}

// Worktrees holds the worktree-related settings.
type Worktrees struct {
	// SharedDirs are repo-relative directories linked from the workspace
	// root into every new worktree.
	SharedDirs []string `yaml:"shared_dirs"`
}

// Telemetry holds the OTLP exporter settings.
type Telemetry struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Config is the root configuration document.
type Config struct {
	// KagamiHome is the state directory (redaction logs, sqlite database).
	KagamiHome string `yaml:"kagami_home"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Exclusion Exclusion `yaml:"exclusion"`

	UnattestedOutputPolicy UnattestedOutputPolicy `yaml:"unattested_output_policy"`

	CollaborationMode ModeKind `yaml:"collaboration_mode"`

	SandboxPolicy SandboxPolicy `yaml:"sandbox_policy"`

	// WindowsSandboxLevel refines the sandbox tag on Windows hosts.
	WindowsSandboxLevel int `yaml:"windows_sandbox_level"`

	// SensitivePaths are path-prefix rules (no glob patterns) for paths whose
	// contents must not be sent to the model.
	SensitivePaths []string `yaml:"sensitive_paths"`

	Worktrees Worktrees `yaml:"worktrees"`

	Telemetry Telemetry `yaml:"telemetry"`
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		KagamiHome: filepath.Join(home, ".kagami"),
		LogLevel:   "info",
		LogFormat:  "text",
		Exclusion: Exclusion{
			LayerSendFirewallEnabled:       true,
			LayerOutputSanitizationEnabled: true,
			OnMatch:                        OnMatchRedact,
			PromptOnBlocked:                true,
			LogRedactions:                  LogRedactionsSummary,
			LogRedactionsMaxBytes:          1 << 20,
			LogRedactionsMaxFiles:          16,
		},
		UnattestedOutputPolicy: UnattestedWarn,
		CollaborationMode:      ModeDefault,
		SandboxPolicy:          SandboxWorkspaceWrite,
	}
}

// Load reads the configuration file at path (if it exists), applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus env only.
	default:
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers KAGAMI_* environment variables over the file values.
func applyEnv(cfg *Config) {
	cfg.KagamiHome = environment.StringOr("KAGAMI_HOME", cfg.KagamiHome)
	cfg.LogLevel = environment.StringOr("KAGAMI_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = environment.StringOr("KAGAMI_LOG_FORMAT", cfg.LogFormat)
	if v, ok := environment.String("KAGAMI_COLLABORATION_MODE"); ok {
		cfg.CollaborationMode = ModeKind(strings.ToLower(v))
	}
	if v, ok := environment.String("KAGAMI_SANDBOX_POLICY"); ok {
		cfg.SandboxPolicy = SandboxPolicy(strings.ToLower(v))
	}
	if v, ok := environment.String("KAGAMI_UNATTESTED_OUTPUT_POLICY"); ok {
		cfg.UnattestedOutputPolicy = UnattestedOutputPolicy(strings.ToLower(v))
	}
	cfg.Exclusion.PromptOnBlocked = environment.BoolOr("KAGAMI_PROMPT_ON_BLOCKED", cfg.Exclusion.PromptOnBlocked)
	cfg.Telemetry.Endpoint = environment.StringOr("KAGAMI_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Worktrees.SharedDirs = environment.StringSliceOr("KAGAMI_SHARED_DIRS", cfg.Worktrees.SharedDirs)
}

// Validate checks enum fields and returns the first violation.
func (c *Config) Validate() error {
	switch c.Exclusion.OnMatch {
	case OnMatchOff, OnMatchRedact, OnMatchBlock:
	default:
		return fmt.Errorf("config: exclusion.on_match must be off|redact|block, got %q", c.Exclusion.OnMatch)
	}
	switch c.UnattestedOutputPolicy {
	case UnattestedAllow, UnattestedWarn, UnattestedConfirm, UnattestedBlock:
	default:
		return fmt.Errorf("config: unattested_output_policy must be allow|warn|confirm|block, got %q", c.UnattestedOutputPolicy)
	}
	switch c.CollaborationMode {
	case ModeDefault, ModePlan:
	default:
		return fmt.Errorf("config: collaboration_mode must be default|plan, got %q", c.CollaborationMode)
	}
	switch c.SandboxPolicy {
	case SandboxReadOnly, SandboxWorkspaceWrite, SandboxDangerFull, SandboxExternalSandbox:
	default:
		return fmt.Errorf("config: sandbox_policy must be read-only|workspace-write|danger-full-access|external-sandbox, got %q", c.SandboxPolicy)
	}
	switch c.Exclusion.LogRedactions {
	case LogRedactionsOff, LogRedactionsSummary, LogRedactionsFull:
	default:
		return fmt.Errorf("config: exclusion.log_redactions must be off|summary|full, got %q", c.Exclusion.LogRedactions)
	}
	return nil
}

// SandboxTag returns the metric tag describing the effective sandbox.
func (c *Config) SandboxTag() string {
	return SandboxTag(c.SandboxPolicy, c.WindowsSandboxLevel)
}

// SandboxTag computes the `sandbox` metric tag for a policy.
func SandboxTag(policy SandboxPolicy, windowsLevel int) string {
	if windowsLevel > 0 {
		return fmt.Sprintf("windows-level-%d", windowsLevel)
	}
	switch policy {
	case SandboxDangerFull:
		return "none"
	default:
		return "platform"
	}
}

// SandboxPolicyTag computes the `sandbox_policy` metric tag for a policy.
func SandboxPolicyTag(policy SandboxPolicy) string {
	return string(policy)
}
