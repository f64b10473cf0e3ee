package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/poimport/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewImportMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewImportMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestImportMetrics(t *testing.T) {
	reader, mp := manualMeter(t)
	ctx := context.Background()

	m, err := telemetry.NewImportMetrics(mp.Meter(telemetry.TracerName))
	require.NoError(t, err)

	m.RecordGroup(ctx, "succeeded", 20*time.Millisecond)
	m.RecordGroup(ctx, "succeeded", 30*time.Millisecond)
	m.RecordGroup(ctx, "failed", 5*time.Millisecond)
	m.RecordVendorCreated(ctx)
	m.RecordRun(ctx, "partial", "csv", 2*time.Second)

	metrics := collect(t, reader)

	groups := sumByAttr(t, metrics["po_import_groups_total"], telemetry.AttrOutcome)
	assert.Equal(t, map[string]int64{"succeeded": 2, "failed": 1}, groups)

	vendors := metrics["po_import_vendors_created_total"].Data.(metricdata.Sum[int64])
	require.Len(t, vendors.DataPoints, 1)
	assert.Equal(t, int64(1), vendors.DataPoints[0].Value)

	runs := sumByAttr(t, metrics["po_import_runs_total"], telemetry.AttrFormat)
	assert.Equal(t, map[string]int64{"csv": 1}, runs)

	hist := metrics["po_import_group_duration_seconds"].Data.(metricdata.Histogram[float64])
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)

	assert.Contains(t, metrics, "po_import_run_duration_seconds")
}
