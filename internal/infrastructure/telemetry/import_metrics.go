package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics constructor is given no meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// ImportMetrics records purchase order import activity.
type ImportMetrics struct {
	groupsTotal    *Counter
	vendorsCreated *Counter
	runsTotal      *Counter
	groupDuration  *Histogram
	runDuration    *Histogram
}

// NewImportMetrics registers the import instruments on meter.
func NewImportMetrics(meter metric.Meter) (*ImportMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &ImportMetrics{}
	var err error

	if m.groupsTotal, err = NewCounter(meter,
		"po_import_groups_total",
		"Purchase order groups processed, by outcome",
		"{groups}",
	); err != nil {
		return nil, err
	}

	if m.vendorsCreated, err = NewCounter(meter,
		"po_import_vendors_created_total",
		"Vendors created because no existing vendor matched",
		"{vendors}",
	); err != nil {
		return nil, err
	}

	if m.runsTotal, err = NewCounter(meter,
		"po_import_runs_total",
		"Import runs, by outcome",
		"{runs}",
	); err != nil {
		return nil, err
	}

	if m.groupDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "po_import_group_duration_seconds",
		Description: "Time spent resolving, computing and writing one purchase order",
		Unit:        "s",
		Boundaries:  GroupDurationBuckets,
	}); err != nil {
		return nil, err
	}

	if m.runDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "po_import_run_duration_seconds",
		Description: "Wall time of one import run",
		Unit:        "s",
		Boundaries:  RunDurationBuckets,
	}); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordGroup counts one finished group and its duration.
func (m *ImportMetrics) RecordGroup(ctx context.Context, outcome string, elapsed time.Duration) {
	m.groupsTotal.Inc(ctx, AttrOutcome.String(outcome))
	m.groupDuration.RecordDuration(ctx, elapsed, AttrOutcome.String(outcome))
}

// RecordVendorCreated counts one vendor insert.
func (m *ImportMetrics) RecordVendorCreated(ctx context.Context) {
	m.vendorsCreated.Inc(ctx)
}

// RecordRun counts a finished run. outcome is "completed", "partial",
// "interrupted" or "rejected" (the input could not be read).
func (m *ImportMetrics) RecordRun(ctx context.Context, outcome, format string, elapsed time.Duration) {
	m.runsTotal.Inc(ctx, AttrOutcome.String(outcome), AttrFormat.String(format))
	m.runDuration.RecordDuration(ctx, elapsed, AttrOutcome.String(outcome))
}
