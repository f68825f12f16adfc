package tracing

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	orgcontext "github.com/Ramsey-B/organizer/pkg/context"
)

const (
	AttrTenantID     = attribute.Key("organizer.tenant_id")
	AttrUserID       = attribute.Key("organizer.user_id")
	AttrRequestID    = attribute.Key("organizer.request_id")
	AttrSubmissionID = attribute.Key("organizer.submission_id")
	AttrSectionKey   = attribute.Key("organizer.section_key")
	AttrQuestionKey  = attribute.Key("organizer.question_key")
)

var tracer trace.Tracer

// SetTracer sets the tracer StartSpan uses. Until it is called spans are no-ops.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a span tagged with the caller scope carried by ctx plus any extra attributes.
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, trace.WithAttributes(append(scopeAttributes(ctx), attrs...)...))
}

// Submission tags a span with the submission it works on.
func Submission(id uuid.UUID) attribute.KeyValue {
	return AttrSubmissionID.String(id.String())
}

// Section tags a span with the section key it works on.
func Section(key string) attribute.KeyValue {
	return AttrSectionKey.String(key)
}

// Question tags a span with the question key it works on.
func Question(key string) attribute.KeyValue {
	return AttrQuestionKey.String(key)
}

func scopeAttributes(ctx context.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if v := orgcontext.GetTenantID(ctx); v != "" {
		attrs = append(attrs, AttrTenantID.String(v))
	}
	if v := orgcontext.GetUserID(ctx); v != "" {
		attrs = append(attrs, AttrUserID.String(v))
	}
	if v := orgcontext.GetRequestID(ctx); v != "" {
		attrs = append(attrs, AttrRequestID.String(v))
	}
	return attrs
}

// activeSpan returns the recording span of ctx, or nil when there is none.
func activeSpan(ctx context.Context) trace.Span {
	if tracer == nil {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return span
}

// GetTraceParent returns the W3C traceparent header for the active span.
func GetTraceParent(ctx context.Context) string {
	return traceContextHeader(ctx, "traceparent")
}

// GetTraceState returns the W3C tracestate header for the active span.
func GetTraceState(ctx context.Context) string {
	return traceContextHeader(ctx, "tracestate")
}

func traceContextHeader(ctx context.Context, header string) string {
	if activeSpan(ctx) == nil {
		return ""
	}
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier.Get(header)
}

// GetTraceID returns the trace id of the active span, empty when untraced.
func GetTraceID(ctx context.Context) string {
	span := activeSpan(ctx)
	if span == nil {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// GetSpanID returns the span id of the active span, empty when untraced.
func GetSpanID(ctx context.Context) string {
	span := activeSpan(ctx)
	if span == nil {
		return ""
	}
	return span.SpanContext().SpanID().String()
}
