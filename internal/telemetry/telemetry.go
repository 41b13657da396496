package telemetry

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jogosescolares/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Telemetry records the domain counters the managers report.
type Telemetry interface {
	RecordSchoolRegistration(ctx context.Context, merged bool)
	RecordInscription(ctx context.Context, success bool)
	RecordTeamChange(ctx context.Context, action string)
	Shutdown(ctx context.Context) error
}

type OpenTelemetry struct {
	tracerProvider *trace.TracerProvider
	loggerProvider *sdklog.LoggerProvider
	meterProvider  *sdkmetric.MeterProvider
	config         config.TelemetryConfig

	schoolRegistrations metric.Int64Counter
	inscriptions        metric.Int64Counter
	teamChanges         metric.Int64Counter
}

var _ Telemetry = (*OpenTelemetry)(nil)

// NewOpenTelemetry wires OTLP gRPC exporters for traces, logs and metrics.
// When disabled the returned value records nothing.
func NewOpenTelemetry(ctx context.Context, cfg config.TelemetryConfig, environment string) (*OpenTelemetry, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		slog.Info("Telemetry disabled or no exporter endpoint provided")
		return &OpenTelemetry{config: cfg}, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", environment),
	)

	endpoint, creds := exporterTarget(cfg.Endpoint)

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithTLSCredentials(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	logExporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(endpoint),
		otlploggrpc.WithTLSCredentials(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithTLSCredentials(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(10*time.Second))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	global.SetLoggerProvider(lp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tel := &OpenTelemetry{
		tracerProvider: tp,
		loggerProvider: lp,
		meterProvider:  mp,
		config:         cfg,
	}

	if err := tel.initMetrics(otel.Meter(cfg.ServiceName)); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	slog.Info("Telemetry initialized successfully",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"endpoint", endpoint,
	)

	return tel, nil
}

// exporterTarget strips the scheme; only https endpoints get TLS.
func exporterTarget(raw string) (string, credentials.TransportCredentials) {
	if rest, ok := strings.CutPrefix(raw, "https://"); ok {
		return rest, credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	endpoint := strings.TrimPrefix(raw, "grpc://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return endpoint, insecure.NewCredentials()
}

func (t *OpenTelemetry) initMetrics(meter metric.Meter) error {
	var err error

	t.schoolRegistrations, err = meter.Int64Counter(
		"jogosescolares_school_registrations_total",
		metric.WithDescription("Total number of school registrations, labelled by merge outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create school registrations counter: %w", err)
	}

	t.inscriptions, err = meter.Int64Counter(
		"jogosescolares_inscriptions_total",
		metric.WithDescription("Total number of inscription attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create inscriptions counter: %w", err)
	}

	t.teamChanges, err = meter.Int64Counter(
		"jogosescolares_team_changes_total",
		metric.WithDescription("Total number of event team changes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create team changes counter: %w", err)
	}

	return nil
}

func (t *OpenTelemetry) RecordSchoolRegistration(ctx context.Context, merged bool) {
	if t.schoolRegistrations == nil {
		return
	}
	t.schoolRegistrations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("merged", merged)))
}

func (t *OpenTelemetry) RecordInscription(ctx context.Context, success bool) {
	if t.inscriptions == nil {
		return
	}
	t.inscriptions.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

func (t *OpenTelemetry) RecordTeamChange(ctx context.Context, action string) {
	if t.teamChanges == nil {
		return
	}
	t.teamChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// Tracer returns a tracer for the given name
func (t *OpenTelemetry) Tracer(name string) oteltrace.Tracer {
	return otel.Tracer(name)
}

func (t *OpenTelemetry) IsEnabled() bool {
	return t.config.Enabled && t.tracerProvider != nil
}

// Shutdown flushes and stops every provider that was started.
func (t *OpenTelemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}

	if t.loggerProvider != nil {
		if err := t.loggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log provider shutdown: %w", err))
		}
	}

	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}
