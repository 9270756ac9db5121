// Package observability provides OpenTelemetry integration and the
// boot event log.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides observability features.
type Telemetry interface {
	// StartSpan starts a new trace span.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, func())

	// RecordMetric records a metric value.
	RecordMetric(name string, value float64, labels map[string]string)

	// RecordDuration records a duration metric.
	RecordDuration(name string, duration float64, labels map[string]string)

	// CountLaunch increments the launch counter.
	CountLaunch(labels map[string]string)

	// CountRestart increments the restart counter.
	CountRestart(labels map[string]string)

	// AddActiveProcesses adjusts the active process gauge.
	AddActiveProcesses(delta int64, labels map[string]string)
}

// SpanOption configures span creation.
type SpanOption func(*spanConfig)

type spanConfig struct {
	attributes []attribute.KeyValue
	kind       trace.SpanKind
}

// WithAttribute adds an attribute to the span.
func WithAttribute(key string, value interface{}) SpanOption {
	return func(c *spanConfig) {
		switch v := value.(type) {
		case string:
			c.attributes = append(c.attributes, attribute.String(key, v))
		case int:
			c.attributes = append(c.attributes, attribute.Int(key, v))
		case int64:
			c.attributes = append(c.attributes, attribute.Int64(key, v))
		case float64:
			c.attributes = append(c.attributes, attribute.Float64(key, v))
		case bool:
			c.attributes = append(c.attributes, attribute.Bool(key, v))
		}
	}
}

// WithSpanKind sets the span kind.
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(c *spanConfig) {
		c.kind = kind
	}
}

// TelemetryConfig configures telemetry.
type TelemetryConfig struct {
	// ServiceName is the service name for tracing.
	ServiceName string

	// ServiceVersion is the service version.
	ServiceVersion string

	// Environment is the deployment environment.
	Environment string

	// EnableTracing enables distributed tracing.
	EnableTracing bool

	// EnableMetrics enables metrics collection.
	EnableMetrics bool

	// MetricsPrefix is the prefix for all metrics.
	MetricsPrefix string
}

// DefaultTelemetryConfig returns default configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		ServiceName:    "golaunch",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		EnableTracing:  true,
		EnableMetrics:  true,
		MetricsPrefix:  "golaunch_",
	}
}

// telemetry implements Telemetry.
type telemetry struct {
	config TelemetryConfig
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	launchCounter     metric.Int64Counter
	restartCounter    metric.Int64Counter
	activeProcesses   metric.Int64UpDownCounter
	bootstrapDuration metric.Float64Histogram
	runDuration       metric.Float64Histogram
}

// NewTelemetry creates a new telemetry instance.
func NewTelemetry(config TelemetryConfig) (Telemetry, error) {
	t := &telemetry{
		config: config,
		tracer: otel.Tracer(config.ServiceName),
		meter:  otel.Meter(config.ServiceName),
	}

	var err error

	t.launchCounter, err = t.meter.Int64Counter(
		config.MetricsPrefix+"launches_total",
		metric.WithDescription("Total number of process launches"),
	)
	if err != nil {
		return nil, err
	}

	t.restartCounter, err = t.meter.Int64Counter(
		config.MetricsPrefix+"restarts_total",
		metric.WithDescription("Total number of supervised process restarts"),
	)
	if err != nil {
		return nil, err
	}

	t.activeProcesses, err = t.meter.Int64UpDownCounter(
		config.MetricsPrefix+"active_processes",
		metric.WithDescription("Number of currently running supervised processes"),
	)
	if err != nil {
		return nil, err
	}

	t.bootstrapDuration, err = t.meter.Float64Histogram(
		config.MetricsPrefix+"bootstrap_apply_duration_seconds",
		metric.WithDescription("Duration of boot profile application"),
	)
	if err != nil {
		return nil, err
	}

	t.runDuration, err = t.meter.Float64Histogram(
		config.MetricsPrefix+"run_duration_seconds",
		metric.WithDescription("Duration of launched process runs"),
	)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// StartSpan implements Telemetry.StartSpan.
func (t *telemetry) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, func()) {
	if !t.config.EnableTracing {
		return ctx, func() {}
	}

	cfg := &spanConfig{
		kind: trace.SpanKindInternal,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, span := t.tracer.Start(ctx, name,
		trace.WithAttributes(cfg.attributes...),
		trace.WithSpanKind(cfg.kind),
	)

	return ctx, func() {
		span.End()
	}
}

// RecordMetric implements Telemetry.RecordMetric.
func (t *telemetry) RecordMetric(name string, value float64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	t.runDuration.Record(context.Background(), value, metric.WithAttributes(attrs...))
}

// RecordDuration implements Telemetry.RecordDuration.
func (t *telemetry) RecordDuration(name string, duration float64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	if name == t.config.MetricsPrefix+"bootstrap_apply_duration_seconds" {
		t.bootstrapDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
		return
	}
	t.runDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// CountLaunch implements Telemetry.CountLaunch.
func (t *telemetry) CountLaunch(labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	t.launchCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// CountRestart implements Telemetry.CountRestart.
func (t *telemetry) CountRestart(labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	t.restartCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// AddActiveProcesses implements Telemetry.AddActiveProcesses.
func (t *telemetry) AddActiveProcesses(delta int64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	t.activeProcesses.Add(context.Background(), delta, metric.WithAttributes(attrs...))
}

// labelsToAttributes converts labels to OTEL attributes.
func labelsToAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

// NoopTelemetry returns a no-op telemetry implementation.
func NoopTelemetry() Telemetry {
	return &noopTelemetry{}
}

type noopTelemetry struct{}

func (t *noopTelemetry) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, func()) {
	return ctx, func() {}
}

func (t *noopTelemetry) RecordMetric(name string, value float64, labels map[string]string)      {}
func (t *noopTelemetry) RecordDuration(name string, duration float64, labels map[string]string) {}
func (t *noopTelemetry) CountLaunch(labels map[string]string)                                   {}
func (t *noopTelemetry) CountRestart(labels map[string]string)                                  {}
func (t *noopTelemetry) AddActiveProcesses(delta int64, labels map[string]string)               {}
