package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// OTelConfig selects the telemetry signals of the gateway and where they go.
// DevelopmentMode prints every enabled signal to stdout instead of a collector.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Spans of the RPC procedures and the dispatch operations.
	EnableTracing bool
	UseOTLPTraces bool
	OTLPTracesURL string

	// Dispatch counters and histograms. Prometheus serves them on /server/metrics.
	EnableMetrics  bool
	UsePrometheus  bool
	UseOTLPMetrics bool
	OTLPMetricsURL string

	// The rpc logger is bridged into the log pipeline, the console output stays.
	EnableLogs  bool
	UseOTLPLogs bool
	OTLPLogsURL string

	// InsecureOTLP talks plain HTTP to the collector. Local development only.
	InsecureOTLP bool

	DevelopmentMode bool
}

// DefaultOTelConfig traces and meters, logs stay on the console.
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    "spectra-wallet-gateway",
		ServiceVersion: "1.0.0",
		Environment:    "production",
		EnableTracing:  true,
		UseOTLPTraces:  true,
		OTLPTracesURL:  "http://localhost:4318/v1/traces",
		EnableMetrics:  true,
		UsePrometheus:  true,
		OTLPMetricsURL: "http://localhost:4318/v1/metrics",
		OTLPLogsURL:    "http://localhost:4318/v1/logs",
	}
}

// sink is where one signal is exported to.
type sink int

const (
	sinkNone sink = iota
	sinkStdout
	sinkOTLP
)

func (c *OTelConfig) sink(useOTLP bool) sink {
	switch {
	case c.DevelopmentMode:
		return sinkStdout
	case useOTLP:
		return sinkOTLP
	default:
		return sinkNone
	}
}

// telemetry collects the providers installed so far, to unwind them on failure or shutdown.
type telemetry struct {
	shutdowns []func(context.Context) error
}

func (t *telemetry) add(fn func(context.Context) error) {
	t.shutdowns = append(t.shutdowns, fn)
}

func (t *telemetry) shutdown(ctx context.Context) error {
	var err error
	// last installed, first stopped
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		err = errors.Join(err, t.shutdowns[i](ctx))
	}
	t.shutdowns = nil
	return err
}

/*
NewOTelSDK installs the global tracer, meter and logger providers enabled in config.

When logs are enabled, Logger is bridged into the new logger provider as well.
A nil config uses DefaultOTelConfig.

Returns:
- func(context.Context) error: flushes and stops every installed provider, call it on shutdown
- error: if any provider could not be built; the ones built before are already stopped
*/
func NewOTelSDK(ctx context.Context, config *OTelConfig) (func(context.Context) error, error) {
	if config == nil {
		config = DefaultOTelConfig()
	}
	t := &telemetry{}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		semconv.DeploymentEnvironmentName(config.Environment),
	))
	if err != nil {
		return t.shutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	// clients of the gateway propagate their trace into the RPC spans
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if config.EnableTracing {
		tp, err := newTracerProvider(ctx, res, config)
		if err != nil {
			return t.shutdown, errors.Join(err, t.shutdown(ctx))
		}
		t.add(tp.Shutdown)
		otel.SetTracerProvider(tp)
	}

	if config.EnableMetrics {
		mp, err := newMeterProvider(ctx, res, config)
		if err != nil {
			return t.shutdown, errors.Join(err, t.shutdown(ctx))
		}
		t.add(mp.Shutdown)
		otel.SetMeterProvider(mp)
	}

	if config.EnableLogs {
		lp, err := newLoggerProvider(ctx, res, config)
		if err != nil {
			return t.shutdown, errors.Join(err, t.shutdown(ctx))
		}
		t.add(lp.Shutdown)
		global.SetLoggerProvider(lp)
		BridgeLogs(lp)
	}

	return t.shutdown, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, config *OTelConfig) (*trace.TracerProvider, error) {
	var (
		exporter trace.SpanExporter
		err      error
	)
	switch config.sink(config.UseOTLPTraces) {
	case sinkStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case sinkOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(config.OTLPTracesURL)}
		if config.InsecureOTLP {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		// spans still carry trace ids into the bridged logs
		return trace.NewTracerProvider(trace.WithResource(res)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter, trace.WithBatchTimeout(5*time.Second)),
		trace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, config *OTelConfig) (*metric.MeterProvider, error) {
	opts := []metric.Option{metric.WithResource(res)}

	if config.UsePrometheus {
		// registers with the default registry that /server/metrics serves
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		opts = append(opts, metric.WithReader(exporter))
	}

	var (
		exporter metric.Exporter
		interval time.Duration
		err      error
	)
	switch config.sink(config.UseOTLPMetrics) {
	case sinkStdout:
		exporter, err = stdoutmetric.New()
		interval = 10 * time.Second
	case sinkOTLP:
		otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(config.OTLPMetricsURL)}
		if config.InsecureOTLP {
			otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, otlpOpts...)
		interval = time.Minute
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	if exporter != nil {
		opts = append(opts, metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))))
	}
	return metric.NewMeterProvider(opts...), nil
}

func newLoggerProvider(ctx context.Context, res *resource.Resource, config *OTelConfig) (*sdklog.LoggerProvider, error) {
	var (
		exporter sdklog.Exporter
		err      error
	)
	switch config.sink(config.UseOTLPLogs) {
	case sinkStdout:
		exporter, err = stdoutlog.New()
	case sinkOTLP:
		opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(config.OTLPLogsURL)}
		if config.InsecureOTLP {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exporter, err = otlploghttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("logs are enabled without an exporter, set use_otlp_logs or development_mode")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	), nil
}
