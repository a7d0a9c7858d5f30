package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"tradestat/internal/config"
)

const (
	// ServiceName identifies the pipeline in telemetry backends.
	ServiceName    = "tradestat-pipeline"
	ServiceVersion = "1.0.0"
	meterName      = "tradestat"
)

// OTelProviders bundles the OpenTelemetry tracer and meter for the
// process. Disabled signals get noop implementations, so callers never
// branch on whether telemetry is on.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
}

// InitializeOTel sets up tracing (stdout exporter) and metrics (Prometheus
// exporter) per the telemetry config.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	)

	providers := &OTelProviders{
		Tracer: nooptrace.NewTracerProvider().Tracer(meterName),
		Meter:  noopmetric.NewMeterProvider().Meter(meterName),
	}

	if cfg.EnableTracing {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(meterName, trace.WithInstrumentationVersion(ServiceVersion))
		otel.SetTracerProvider(tp)
	}

	if cfg.EnableMetrics {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(meterName, metric.WithInstrumentationVersion(ServiceVersion))
		providers.PrometheusHTTP = promhttp.Handler()
		otel.SetMeterProvider(mp)
	}

	logger.Debug("telemetry initialized",
		slog.Bool("tracing", cfg.EnableTracing),
		slog.Bool("metrics", cfg.EnableMetrics))

	return providers, nil
}

// Shutdown flushes and stops the active providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var firstErr error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PipelineMetrics are the pipeline's business metrics.
type PipelineMetrics struct {
	TablesProcessed metric.Int64Counter
	TableDuration   metric.Float64Histogram
	FindingsTotal   metric.Int64Counter
	ActiveTables    metric.Int64UpDownCounter
}

// NewPipelineMetrics registers the pipeline instruments on a meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	tablesProcessed, err := meter.Int64Counter(
		"pipeline_tables_processed_total",
		metric.WithDescription("Total number of tables processed, by final status"),
	)
	if err != nil {
		return nil, err
	}

	tableDuration, err := meter.Float64Histogram(
		"pipeline_table_duration_seconds",
		metric.WithDescription("Per-table processing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	findingsTotal, err := meter.Int64Counter(
		"pipeline_findings_total",
		metric.WithDescription("Total validation findings, by severity and rule"),
	)
	if err != nil {
		return nil, err
	}

	activeTables, err := meter.Int64UpDownCounter(
		"pipeline_active_tables",
		metric.WithDescription("Number of tables currently in flight"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		TablesProcessed: tablesProcessed,
		TableDuration:   tableDuration,
		FindingsTotal:   findingsTotal,
		ActiveTables:    activeTables,
	}, nil
}
