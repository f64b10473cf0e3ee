package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of import spans and metrics
const TracerName = "po-import"

// Span names
const (
	SpanImportRun   = "po_import.run"
	SpanImportGroup = "po_import.group"
)

// Span attribute keys. Metric attributes live in metrics.go.
const (
	SpanAttrPONumber  = attribute.Key("po_number")
	SpanAttrLines     = attribute.Key("lines")
	SpanAttrRows      = attribute.Key("rows")
	SpanAttrGroups    = attribute.Key("groups")
	SpanAttrSucceeded = attribute.Key("succeeded")
	SpanAttrFailed    = attribute.Key("failed")
	SpanAttrSkipped   = attribute.Key("skipped")
	SpanAttrState     = attribute.Key("state")
	SpanAttrStage     = attribute.Key("stage")
	SpanAttrErrorCode = attribute.Key("error_code")
)

// StartSpan starts an internal span on the global tracer provider.
// The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartRunSpan starts the span covering one import run
func StartRunSpan(ctx context.Context, rows int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanImportRun, SpanAttrRows.Int(rows))
}

// EndRunSpan records the run counts and ends the span. A non-nil err marks
// the run as ended early.
func EndRunSpan(span trace.Span, groups, succeeded, failed, skipped int, err error) {
	span.SetAttributes(
		SpanAttrGroups.Int(groups),
		SpanAttrSucceeded.Int(succeeded),
		SpanAttrFailed.Int(failed),
		SpanAttrSkipped.Int(skipped),
	)
	RecordError(span, err)
	span.End()
}

// StartGroupSpan starts the child span of one purchase order group
func StartGroupSpan(ctx context.Context, poNumber string, lines int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanImportGroup, SpanAttrPONumber.String(poNumber), SpanAttrLines.Int(lines))
}

// GroupOutcome is what a group span records when it ends
type GroupOutcome struct {
	State string
	Stage string
	Code  string
	Error string
}

// EndGroupSpan records the terminal state of a group and ends the span.
// A group with an Error gets an error status and event.
func EndGroupSpan(span trace.Span, o GroupOutcome) {
	span.SetAttributes(SpanAttrState.String(o.State))
	if o.Error != "" {
		span.SetAttributes(SpanAttrStage.String(o.Stage), SpanAttrErrorCode.String(o.Code))
		span.AddEvent("exception", trace.WithAttributes(
			attribute.String("exception.message", o.Error),
		))
		span.SetStatus(codes.Error, o.Error)
	}
	span.End()
}

// RecordError records err on the span and sets an error status
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
