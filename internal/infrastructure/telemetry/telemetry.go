// Package telemetry wires OpenTelemetry traces, metrics and logs for the
// importer. Every provider falls back to a no-op when its switch is off.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultExportInterval applies when Settings.MetricsInterval is zero.
	DefaultExportInterval = 15 * time.Second

	shutdownTimeout = 10 * time.Second
)

// Settings is the flattened telemetry section of the process configuration.
type Settings struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	Insecure          bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	LogLevel          zapcore.Level
}

func (s Settings) tracesOn() bool  { return s.Enabled }
func (s Settings) metricsOn() bool { return s.Enabled && s.MetricsEnabled }
func (s Settings) logsOn() bool    { return s.Enabled && s.LogsEnabled }

func (s Settings) exportInterval() time.Duration {
	if s.MetricsInterval <= 0 {
		return DefaultExportInterval
	}
	return s.MetricsInterval
}

// resource is shared by all three signals so the backend can join them.
func (s Settings) resource() (*resource.Resource, error) {
	version := s.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(s.ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// shutdownFunc is satisfied by the Shutdown method of every SDK provider.
type shutdownFunc func(context.Context) error

func shutdownSignal(ctx context.Context, signal string, fn shutdownFunc, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		logger.Error("Telemetry shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	logger.Debug("Telemetry flushed", zap.String("signal", signal))
	return nil
}

// Telemetry owns the trace, metric and log providers of one process.
type Telemetry struct {
	Tracer  *TracerProvider
	Meter   *MeterProvider
	Logs    *LoggerProvider
	Metrics *ImportMetrics
}

// Setup starts every provider the settings enable. Metrics and logs require
// Enabled as well as their own switch.
func Setup(ctx context.Context, s Settings, logger *zap.Logger) (*Telemetry, error) {
	t := &Telemetry{}
	var err error

	if t.Tracer, err = NewTracerProvider(ctx, s, logger); err != nil {
		return nil, err
	}
	if t.Meter, err = NewMeterProvider(ctx, s, logger); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if t.Logs, err = NewLoggerProvider(ctx, s, logger); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if t.Metrics, err = NewImportMetrics(t.Meter.Meter(TracerName)); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	return t, nil
}

// LogCore returns the OTLP bridge core for logger.WithCore.
func (t *Telemetry) LogCore(serviceName string, level zapcore.Level) zapcore.Core {
	return NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    serviceName,
		LoggerProvider: t.Logs,
		Level:          level,
	})
}

// Shutdown flushes logs, then metrics, then traces. Providers that were
// never started are skipped.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Logs != nil {
		errs = append(errs, t.Logs.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
