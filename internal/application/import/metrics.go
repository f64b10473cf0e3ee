package importapp

import (
	"context"
	"time"

	"github.com/erp/poimport/internal/infrastructure/telemetry"
)

// ImportMetrics records import outcomes.
type ImportMetrics interface {
	GroupFinished(ctx context.Context, outcome GroupState, elapsed time.Duration)
	VendorCreated(ctx context.Context)
}

type noopMetrics struct{}

func (noopMetrics) GroupFinished(context.Context, GroupState, time.Duration) {}
func (noopMetrics) VendorCreated(context.Context)                            {}

// NewOTelMetrics reports outcomes through the OpenTelemetry instruments.
// A nil m yields a no-op recorder.
func NewOTelMetrics(m *telemetry.ImportMetrics) ImportMetrics {
	if m == nil {
		return noopMetrics{}
	}
	return otelMetrics{m: m}
}

type otelMetrics struct {
	m *telemetry.ImportMetrics
}

func (o otelMetrics) GroupFinished(ctx context.Context, outcome GroupState, elapsed time.Duration) {
	o.m.RecordGroup(ctx, string(outcome), elapsed)
}

func (o otelMetrics) VendorCreated(ctx context.Context) {
	o.m.RecordVendorCreated(ctx)
}
