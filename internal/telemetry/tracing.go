// Package telemetry wires a process-wide tracer name, following the
// pack's otel.Tracer("service/component") convention (see
// internal/notify/redisnotify and the sse reference collaborator it's
// grounded on). This package only names the tracer so every component
// calls otel.Tracer with the same string instead of inventing its own. No
// exporter is wired anywhere in the module (cmd/workerd included), so spans
// go to the global otel provider, which is a no-op unless one is installed.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope every component in this module
// registers spans under.
const TracerName = "channelctl"

// Tracer returns the process tracer for TracerName.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a span named name under the shared tracer, returning the
// derived context and span. A thin wrapper so call sites don't repeat
// otel.Tracer(TracerName) at every suspension point.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}
