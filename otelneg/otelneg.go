// Package otelneg traces negotiation with OpenTelemetry.
//
// A Tracer is both a negotiate.SpanStarter, wrapping payload serialization
// in a span, and a negotiate.Observer, recording each outcome as an event on
// the request's current span.
package otelneg

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bjaus/negotiate"
)

// TracerName is the instrumentation name spans are created under.
const TracerName = "github.com/bjaus/negotiate"

// attrPrefix namespaces span attributes.
const attrPrefix = "negotiate."

// Tracer adapts an OpenTelemetry tracer to the negotiate hooks.
type Tracer struct {
	tracer trace.Tracer
}

// New returns a Tracer using tp, or the global provider when tp is nil.
func New(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartSpan implements negotiate.SpanStarter.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func()) {
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, attribute.String(attrPrefix+k, v))
	}
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(kv...),
	)
	return ctx, func() { span.End() }
}

// Observe implements negotiate.Observer. Failed negotiations mark the
// current span as errored.
func (t *Tracer) Observe(ctx context.Context, ev negotiate.Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.AddEvent("negotiate", trace.WithAttributes(
		attribute.String(attrPrefix+"outcome", ev.Outcome.String()),
		attribute.String(attrPrefix+"accept", ev.Accept),
		attribute.Bool(attrPrefix+"context_aware", ev.ContextAware),
		attribute.String(attrPrefix+"mimetype", ev.Mimetype),
		attribute.String(attrPrefix+"format", ev.Format),
	))

	if ev.Outcome == negotiate.Failed && ev.Err != nil {
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, ev.Err.Error())
	}
}
