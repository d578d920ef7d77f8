package telemetry

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

type Config struct {
	ServiceName string
	// ExportTraces sends spans over OTLP/gRPC, configured by the standard OTEL_EXPORTER_OTLP_* variables
	ExportTraces bool
	// PushgatewayURL receives the collected metrics on Shutdown when set
	PushgatewayURL string
	Job            string
}

type Telemetry struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	registry       *prometheus.Registry
	traceProvider  *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	pushgatewayURL string
	job            string
}

func Setup(ctx context.Context, config Config) (*Telemetry, error) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	r, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(config.ServiceName)),
	)
	if err != nil {
		return nil, xerrors.Errorf("failed to create resource: %w", err)
	}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(r)}
	if config.ExportTraces {
		traceExporter, err := otlptracegrpc.New(ctx)
		if err != nil {
			return nil, xerrors.Errorf("failed to create trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExporter))
	}
	traceProvider := sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(traceProvider)

	registry := prometheus.NewRegistry()
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, xerrors.Errorf("failed to create exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithResource(r), sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)

	job := config.Job
	if job == "" {
		job = config.ServiceName
	}

	return &Telemetry{
		Tracer:         traceProvider.Tracer(config.ServiceName),
		Meter:          meterProvider.Meter(config.ServiceName),
		registry:       registry,
		traceProvider:  traceProvider,
		meterProvider:  meterProvider,
		pushgatewayURL: config.PushgatewayURL,
		job:            job,
	}, nil
}

// Gatherer exposes the registry the metrics are collected into.
func (t *Telemetry) Gatherer() prometheus.Gatherer {
	return t.registry
}

// Shutdown pushes the collected metrics, if a Pushgateway is configured, and
// flushes the providers. Every step runs even if an earlier one fails.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.pushgatewayURL != "" {
		if err := push.New(t.pushgatewayURL, t.job).Gatherer(t.registry).PushContext(ctx); err != nil {
			errs = append(errs, xerrors.Errorf("failed to push metrics: %w", err))
		}
	}
	if err := t.traceProvider.Shutdown(ctx); err != nil {
		errs = append(errs, xerrors.Errorf("failed to shutdown trace provider: %w", err))
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, xerrors.Errorf("failed to shutdown meter provider: %w", err))
	}
	return errors.Join(errs...)
}
