// Package telemetry wraps the OpenTelemetry tracer and meters used by the
// tool dispatcher.  Every tool result is recorded as a span plus counters;
// the metric tags always include the sandbox tags of the turn that ran the
// tool.  Provider and exporter bootstrap lives in cmd/kagami.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/bdobrica/Kagami/internal/kagami/telemetry"

// previewLimit caps how much tool output is attached to spans and logs.
const previewLimit = 256

// Tag is one metric/span attribute.
type Tag struct {
	Key   string
	Value string
}

// Manager owns the tracer and instruments for tool dispatch.
type Manager struct {
	tracer   trace.Tracer
	calls    metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// NewManager builds a Manager from the globally registered providers.  With
// no SDK installed the instruments are no-ops, which keeps tests and
// stripped-down builds free of exporter plumbing.
func NewManager() *Manager {
	meter := otel.Meter(scope)
	calls, err := meter.Int64Counter("kagami.tool.calls",
		metric.WithDescription("tool invocations dispatched"))
	if err != nil {
		slog.Warn("telemetry: create calls counter", "err", err)
	}
	failures, err := meter.Int64Counter("kagami.tool.failures",
		metric.WithDescription("tool invocations that returned an unsuccessful result"))
	if err != nil {
		slog.Warn("telemetry: create failures counter", "err", err)
	}
	duration, err := meter.Float64Histogram("kagami.tool.duration",
		metric.WithDescription("tool handler wall time"), metric.WithUnit("ms"))
	if err != nil {
		slog.Warn("telemetry: create duration histogram", "err", err)
	}
	return &Manager{
		tracer:   otel.Tracer(scope),
		calls:    calls,
		failures: failures,
		duration: duration,
	}
}

// Preview truncates output for span attributes and hook payloads.
func Preview(output string) string {
	if len(output) <= previewLimit {
		return output
	}
	return output[:previewLimit]
}

func attributes(tool, callID string, tags []Tag) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("tool", tool),
		attribute.String("call_id", callID),
	}
	for _, tag := range tags {
		attrs = append(attrs, attribute.String(tag.Key, tag.Value))
	}
	return attrs
}

// ToolResult records a tool result that produced no span of its own
// (plan-mode blocks, lookup misses, kind mismatches).
func (m *Manager) ToolResult(ctx context.Context, tool, callID, payloadPreview string, duration time.Duration, success bool, output string, tags []Tag) {
	attrs := attributes(tool, callID, tags)
	if m.calls != nil {
		m.calls.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if !success && m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
	slog.Debug("tool result",
		"tool", tool, "call_id", callID, "payload", payloadPreview,
		"duration_ms", duration.Milliseconds(), "success", success,
		"output", Preview(output))
}

// LogToolResult runs fn inside a span named after the tool and records the
// preview, duration, and success flag on completion or error.  The returned
// values are fn's own.
func (m *Manager) LogToolResult(ctx context.Context, tool, callID, payloadPreview string, tags []Tag, fn func(ctx context.Context) (preview string, success bool, err error)) (string, bool, error) {
	ctx, span := m.tracer.Start(ctx, "tool."+tool, trace.WithAttributes(attributes(tool, callID, tags)...))
	defer span.End()

	started := time.Now()
	preview, success, err := fn(ctx)
	elapsed := time.Since(started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.ToolResult(ctx, tool, callID, payloadPreview, elapsed, false, err.Error(), tags)
		return preview, false, err
	}

	span.SetAttributes(
		attribute.Bool("success", success),
		attribute.String("output_preview", Preview(preview)),
	)
	if !success {
		span.SetStatus(codes.Error, "tool reported failure")
	}
	m.ToolResult(ctx, tool, callID, payloadPreview, elapsed, success, preview, tags)
	return preview, success, nil
}
