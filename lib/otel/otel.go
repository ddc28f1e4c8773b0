// Package otel sets up OpenTelemetry traces, metrics and logs for a build run.
//
// A build is a short-lived process, so everything is exported over OTLP/gRPC
// and flushed by the shutdown function returned from Init. When telemetry is
// disabled Init returns the global no-op providers and a no-op shutdown.
package otel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	goruntime "runtime"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds OpenTelemetry configuration.
type Config struct {
	Enabled           bool
	Endpoint          string
	ServiceName       string
	ServiceInstanceID string
	Insecure          bool
	Version           string
	Env               string
	// RuntimeMetrics also exports Go runtime metrics (GC, memory).
	RuntimeMetrics bool
}

// ShutdownFunc flushes and stops all providers.
type ShutdownFunc func(context.Context) error

// Provider holds the tracer, meter and slog bridge for one run.
type Provider struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	// LogHandler is nil when telemetry is disabled.
	LogHandler slog.Handler

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Init initializes OpenTelemetry with the given configuration.
func Init(ctx context.Context, cfg Config) (*Provider, ShutdownFunc, error) {
	if !cfg.Enabled {
		return &Provider{
			Tracer:         otel.Tracer(cfg.ServiceName),
			Meter:          otel.Meter(cfg.ServiceName),
			tracerProvider: otel.GetTracerProvider(),
			meterProvider:  otel.GetMeterProvider(),
		}, func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.ServiceInstanceID(cfg.ServiceInstanceID),
			semconv.DeploymentEnvironmentName(cfg.Env),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	var shutdowns []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		// Reverse order: logs and metrics may still reference spans.
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*Provider, ShutdownFunc, error) {
		_ = shutdown(ctx)
		return nil, nil, err
	}

	tracerProvider, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return fail(err)
	}
	shutdowns = append(shutdowns, wrapShutdown("tracer", tracerProvider.Shutdown))

	meterProvider, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		return fail(err)
	}
	shutdowns = append(shutdowns, wrapShutdown("meter", meterProvider.Shutdown))

	loggerProvider, err := newLoggerProvider(ctx, cfg, res)
	if err != nil {
		return fail(err)
	}
	shutdowns = append(shutdowns, wrapShutdown("logger", loggerProvider.Shutdown))

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.RuntimeMetrics {
		if err := otelruntime.Start(otelruntime.WithMeterProvider(meterProvider)); err != nil {
			return fail(fmt.Errorf("start runtime metrics: %w", err))
		}
	}

	p := &Provider{
		Tracer:         tracerProvider.Tracer(cfg.ServiceName),
		Meter:          meterProvider.Meter(cfg.ServiceName),
		LogHandler:     otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(loggerProvider)),
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
	}
	if err := p.registerInfo(cfg); err != nil {
		return fail(fmt.Errorf("register info metric: %w", err))
	}

	return p, shutdown, nil
}

func wrapShutdown(name string, fn func(context.Context) error) ShutdownFunc {
	return func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("shutdown %s: %w", name, err)
		}
		return nil
	}
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	// The periodic reader also collects once more on shutdown, so a build
	// shorter than the export interval is still reported.
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

func newLoggerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	), nil
}

// registerInfo registers a gauge that is always 1 and carries the version.
func (p *Provider) registerInfo(cfg Config) error {
	info, err := p.Meter.Int64ObservableGauge(
		"debian_builder_info",
		metric.WithDescription("debian-builder build information"),
	)
	if err != nil {
		return err
	}

	_, err = p.Meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(info, 1,
				metric.WithAttributes(
					semconv.ServiceVersion(cfg.Version),
					semconv.TelemetrySDKLanguageGo,
					semconv.ProcessRuntimeVersion(GoVersion()),
				),
			)
			return nil
		},
		info,
	)
	return err
}

// TracerFor returns a tracer for the given subsystem.
func (p *Provider) TracerFor(subsystem string) trace.Tracer {
	if p.tracerProvider != nil {
		return p.tracerProvider.Tracer(subsystem)
	}
	return otel.Tracer(subsystem)
}

// MeterFor returns a meter for the given subsystem.
func (p *Provider) MeterFor(subsystem string) metric.Meter {
	if p.meterProvider != nil {
		return p.meterProvider.Meter(subsystem)
	}
	return otel.Meter(subsystem)
}

// GoVersion returns the Go version used to build the binary.
func GoVersion() string {
	return goruntime.Version()
}
