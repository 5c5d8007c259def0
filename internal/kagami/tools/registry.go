package tools

import (
	"log/slog"
	"strings"

	"github.com/bdobrica/Kagami/common/spec/toolspec"
)

// McpFallbackName is the registry key of the catch-all MCP handler used for
// any tool name with the `mcp__` prefix that has no exact entry.
const McpFallbackName = "mcp__"

// ConfiguredSpec pairs a model-facing tool spec with its dispatch options.
type ConfiguredSpec struct {
	Spec                     *toolspec.Spec
	SupportsParallelToolCalls bool
}

// Registry maps tool names to handlers.  It is immutable after Build;
// dynamic registration is deliberately not supported.
type Registry struct {
	handlers map[string]Handler
}

// Handler returns the handler for name: an exact entry first, then the
// `mcp__` fallback for MCP-namespaced names.  Nil when neither exists.
func (r *Registry) Handler(name string) Handler {
	if h, ok := r.handlers[name]; ok {
		return h
	}
	if strings.HasPrefix(name, McpFallbackName) {
		return r.handlers[McpFallbackName]
	}
	return nil
}

// Builder collects specs and handlers at startup.
type Builder struct {
	handlers map[string]Handler
	specs    []ConfiguredSpec
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{handlers: make(map[string]Handler)}
}

// PushSpec records a spec that does not support parallel tool calls.
func (b *Builder) PushSpec(spec *toolspec.Spec) {
	b.PushSpecWithParallelSupport(spec, false)
}

// PushSpecWithParallelSupport records a spec with its parallel-calls flag.
func (b *Builder) PushSpecWithParallelSupport(spec *toolspec.Spec, supportsParallel bool) {
	b.specs = append(b.specs, ConfiguredSpec{Spec: spec, SupportsParallelToolCalls: supportsParallel})
}

// RegisterHandler binds name to handler.  A duplicate registration logs a
// warning and overwrites; it is not an error.
func (b *Builder) RegisterHandler(name string, handler Handler) {
	if _, dup := b.handlers[name]; dup {
		slog.Warn("overwriting handler for tool", "tool", name)
	}
	b.handlers[name] = handler
}

// Build produces the immutable registry plus the collected specs.
func (b *Builder) Build() ([]ConfiguredSpec, *Registry) {
	handlers := make(map[string]Handler, len(b.handlers))
	for name, handler := range b.handlers {
		handlers[name] = handler
	}
	return b.specs, &Registry{handlers: handlers}
}
