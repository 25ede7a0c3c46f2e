// Package tracing wires the agent loop, shell exec, and cron tick into
// OpenTelemetry spans. No exporter is configured here, and this module
// has no configuration setting for one.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/synvek/relaymind"

// NewProvider creates an in-process TracerProvider and installs it as the
// global default. No exporter is attached, so spans are created and
// ended but not sent anywhere.
func NewProvider() *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartAgentIteration spans one Think→Act→Observe round of the agent loop.
func StartAgentIteration(ctx context.Context, agentID string, iteration int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "agent.iteration", trace.WithAttributes(
		attribute.String("agent.id", agentID),
		attribute.Int("agent.iteration", iteration),
	))
}

// StartToolCall spans a single tool execution.
func StartToolCall(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "tool.call", trace.WithAttributes(
		attribute.String("tool.name", toolName),
	))
}

// StartShellExec spans a shell command execution.
func StartShellExec(ctx context.Context, command string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "shell.exec", trace.WithAttributes(
		attribute.String("shell.command", truncateForSpan(command, 200)),
	))
}

// StartCronTick spans one cron scheduler tick.
func StartCronTick(ctx context.Context) (context.Context, trace.Span) {
	return tracer().Start(ctx, "cron.tick")
}

// EndWithError records err on span (if non-nil) and ends the span.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

func truncateForSpan(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
