package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/poimport/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "po_import.upload", telemetry.SpanAttrRows.Int(3))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "po_import.upload", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, telemetry.TracerName, spans[0].InstrumentationScope().Name)
	assert.Equal(t, int64(3), attrMap(spans[0].Attributes())[telemetry.SpanAttrRows].AsInt64())
}

func TestRunSpan(t *testing.T) {
	t.Run("counts recorded", func(t *testing.T) {
		sr := setupTestTracer(t)

		_, span := telemetry.StartRunSpan(context.Background(), 12)
		telemetry.EndRunSpan(span, 4, 2, 1, 1, nil)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, telemetry.SpanImportRun, spans[0].Name())
		attrs := attrMap(spans[0].Attributes())
		assert.Equal(t, int64(12), attrs[telemetry.SpanAttrRows].AsInt64())
		assert.Equal(t, int64(4), attrs[telemetry.SpanAttrGroups].AsInt64())
		assert.Equal(t, int64(2), attrs[telemetry.SpanAttrSucceeded].AsInt64())
		assert.Equal(t, codes.Unset, spans[0].Status().Code)
	})

	t.Run("interrupted run is an error", func(t *testing.T) {
		sr := setupTestTracer(t)

		_, span := telemetry.StartRunSpan(context.Background(), 1)
		telemetry.EndRunSpan(span, 1, 0, 0, 0, context.Canceled)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.NotEmpty(t, spans[0].Events())
	})
}

func TestGroupSpan(t *testing.T) {
	t.Run("child of the run span", func(t *testing.T) {
		sr := setupTestTracer(t)

		ctx, run := telemetry.StartRunSpan(context.Background(), 2)
		_, group := telemetry.StartGroupSpan(ctx, "PO-1", 2)
		telemetry.EndGroupSpan(group, telemetry.GroupOutcome{State: "succeeded"})
		run.End()

		spans := sr.Ended()
		require.Len(t, spans, 2)
		assert.Equal(t, telemetry.SpanImportGroup, spans[0].Name())
		assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
		attrs := attrMap(spans[0].Attributes())
		assert.Equal(t, "PO-1", attrs[telemetry.SpanAttrPONumber].AsString())
		assert.Equal(t, "succeeded", attrs[telemetry.SpanAttrState].AsString())
		assert.Equal(t, codes.Unset, spans[0].Status().Code)
	})

	t.Run("failure carries stage and code", func(t *testing.T) {
		sr := setupTestTracer(t)

		_, span := telemetry.StartGroupSpan(context.Background(), "PO-2", 1)
		telemetry.EndGroupSpan(span, telemetry.GroupOutcome{
			State: "failed",
			Stage: "resolving",
			Code:  "NOT_FOUND",
			Error: "item not found: Widget",
		})

		spans := sr.Ended()
		require.Len(t, spans, 1)
		attrs := attrMap(spans[0].Attributes())
		assert.Equal(t, "resolving", attrs[telemetry.SpanAttrStage].AsString())
		assert.Equal(t, "NOT_FOUND", attrs[telemetry.SpanAttrErrorCode].AsString())
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, "item not found: Widget", spans[0].Status().Description)
	})
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("boom"))
	span.End()
	telemetry.RecordError(nil, errors.New("ignored"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)
}
