package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/poimport/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// manualMeter returns a meter backed by a reader the test can collect from.
func manualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key attribute.Key) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(key)
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestNewMeterProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("metrics switch off", func(t *testing.T) {
		mp, err := telemetry.NewMeterProvider(ctx, telemetry.Settings{Enabled: true}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.False(t, mp.IsEnabled())
		assert.NotNil(t, mp.Meter("po-import"))
		assert.NoError(t, mp.Shutdown(ctx))
	})

	t.Run("enabled", func(t *testing.T) {
		mp, err := telemetry.NewMeterProvider(ctx, telemetry.Settings{
			Enabled:           true,
			MetricsEnabled:    true,
			CollectorEndpoint: "localhost:19999",
			MetricsInterval:   time.Hour,
			ServiceName:       "po-import-test",
			Insecure:          true,
		}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.True(t, mp.IsEnabled())

		counter, err := telemetry.NewCounter(mp.Meter("test"), "test_counter", "test", "1")
		require.NoError(t, err)
		counter.Inc(ctx)

		shutdownCtx, cancel := context.WithTimeout(ctx, 0)
		defer cancel()
		_ = mp.Shutdown(shutdownCtx)
	})
}

func TestCounter(t *testing.T) {
	reader, mp := manualMeter(t)
	ctx := context.Background()

	counter, err := telemetry.NewCounter(mp.Meter("test"), "rows_total", "Rows read", "{rows}")
	require.NoError(t, err)

	counter.Add(ctx, 5, telemetry.AttrFormat.String("csv"))
	counter.Inc(ctx, telemetry.AttrFormat.String("csv"))
	counter.Inc(ctx, telemetry.AttrFormat.String("xlsx"))

	got := sumByAttr(t, collect(t, reader)["rows_total"], telemetry.AttrFormat)
	assert.Equal(t, map[string]int64{"csv": 6, "xlsx": 1}, got)
}

func TestHistogram(t *testing.T) {
	reader, mp := manualMeter(t)
	ctx := context.Background()

	h, err := telemetry.NewHistogram(mp.Meter("test"), telemetry.HistogramOpts{
		Name:       "latency_seconds",
		Unit:       "s",
		Boundaries: telemetry.DBDurationBuckets,
	})
	require.NoError(t, err)

	h.Record(ctx, 0.02)
	h.RecordDuration(ctx, 250*time.Millisecond)

	hist, ok := collect(t, reader)["latency_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	assert.InDelta(t, 0.27, dp.Sum, 1e-9)
	assert.Equal(t, telemetry.DBDurationBuckets, dp.Bounds)
}

func TestHistogram_DefaultBoundaries(t *testing.T) {
	_, mp := manualMeter(t)
	h, err := telemetry.NewHistogram(mp.Meter("test"), telemetry.HistogramOpts{Name: "plain"})
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestBucketsAscending(t *testing.T) {
	for name, buckets := range map[string][]float64{
		"db":    telemetry.DBDurationBuckets,
		"group": telemetry.GroupDurationBuckets,
		"run":   telemetry.RunDurationBuckets,
	} {
		for i := 1; i < len(buckets); i++ {
			assert.Less(t, buckets[i-1], buckets[i], name)
		}
	}
}
