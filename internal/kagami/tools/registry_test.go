package tools_test

import (
	"encoding/json"
	"testing"

	"github.com/bdobrica/Kagami/common/spec/toolspec"
	"github.com/bdobrica/Kagami/internal/kagami/tools"
)

func TestRegistryExactLookup(t *testing.T) {
	builder := tools.NewBuilder()
	shell := textHandler("out", tools.ShellProvenance{Cwd: "/"})
	builder.RegisterHandler("shell", shell)
	_, registry := builder.Build()

	if registry.Handler("shell") == nil {
		t.Error("exact lookup failed")
	}
	if registry.Handler("missing") != nil {
		t.Error("unknown name must miss")
	}
}

func TestRegistryMcpFallback(t *testing.T) {
	builder := tools.NewBuilder()
	fallback := textHandler("out", tools.McpProvenance{Server: "s", Tool: "t"})
	builder.RegisterHandler(tools.McpFallbackName, fallback)
	exact := textHandler("exact", tools.McpProvenance{Server: "s", Tool: "t"})
	builder.RegisterHandler("mcp__s__special", exact)
	_, registry := builder.Build()

	if got := registry.Handler("mcp__s__special"); got != tools.Handler(exact) {
		t.Error("exact entry must win over the fallback")
	}
	if got := registry.Handler("mcp__other__tool"); got != tools.Handler(fallback) {
		t.Error("mcp__ names must fall back to the catch-all")
	}
	if registry.Handler("plain_tool") != nil {
		t.Error("non-mcp names must not use the fallback")
	}
}

func TestBuilderDuplicateRegistrationOverwrites(t *testing.T) {
	builder := tools.NewBuilder()
	first := textHandler("first", tools.ShellProvenance{Cwd: "/"})
	second := textHandler("second", tools.ShellProvenance{Cwd: "/"})
	builder.RegisterHandler("shell", first)
	builder.RegisterHandler("shell", second) // logged, not fatal
	_, registry := builder.Build()

	if got := registry.Handler("shell"); got != tools.Handler(second) {
		t.Error("duplicate registration must overwrite")
	}
}

func TestBuilderCollectsSpecs(t *testing.T) {
	builder := tools.NewBuilder()
	spec := toolspec.MustNew("read_file", "read a file", json.RawMessage(`{"type":"object"}`))
	builder.PushSpec(spec)
	builder.PushSpecWithParallelSupport(toolspec.MustNew("shell", "run a command", nil), true)
	specs, _ := builder.Build()

	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[0].SupportsParallelToolCalls {
		t.Error("default spec must not support parallel calls")
	}
	if !specs[1].SupportsParallelToolCalls {
		t.Error("parallel flag lost")
	}
}
