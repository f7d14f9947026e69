package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating OpenTelemetry spans.
//
// Each event becomes a span named after event.Msg, carrying the thread, step,
// and node as attributes plus every Meta field. Events representing points in
// time get zero-duration spans; an "error" Meta entry marks the span status
// as error.
//
// Usage:
//
//	tracer := otel.Tracer("stateflow")
//	emitter := emit.NewOTelEmitter(tracer)
//	eng, err := def.Compile(st, graph.WithEmitter(emitter))
//
// Wire the tracer provider (Jaeger, OTLP, ...) in application code the usual
// OpenTelemetry way; the emitter only needs a trace.Tracer.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an emitter producing spans via the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates a span for the event and immediately ends it.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("stateflow.thread_id", event.ThreadID),
		attribute.Int("stateflow.step", event.Step),
		attribute.String("stateflow.node_id", event.NodeID),
	)

	for key, value := range event.Meta {
		span.SetAttributes(metaAttribute("stateflow.meta."+key, value))
	}

	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

// metaAttribute converts an arbitrary Meta value to a span attribute,
// falling back to fmt formatting for compound values.
func metaAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
