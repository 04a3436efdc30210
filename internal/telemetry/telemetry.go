// Package telemetry exports the game backend's traces over OTLP HTTP.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rocketscienceinc/pebbles-backend/internal/config"
)

const (
	attrStorage = attribute.Key("pebbles.storage")
	attrLedger  = attribute.Key("pebbles.ledger")
)

// Setup installs a tracer provider for the configured service and returns
// the tracer the game use case reports to, plus the provider's shutdown.
// Without an endpoint in the config the exporter falls back to OTEL_EXPORTER_OTLP_* variables.
func Setup(ctx context.Context, conf *config.Config) (trace.Tracer, func(context.Context) error, error) {
	var opts []otlptracehttp.Option
	if conf.Telemetry.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(conf.Telemetry.Endpoint))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := newResource(ctx, conf)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Tracer(conf.Telemetry.ServiceName+"/usecase", trace.WithInstrumentationVersion(conf.Telemetry.ServiceVersion)), tp.Shutdown, nil
}

// newResource describes this deployment: which service, which game store and whether finished games are recorded.
func newResource(ctx context.Context, conf *config.Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", conf.Telemetry.ServiceName),
			attribute.String("service.version", conf.Telemetry.ServiceVersion),
			attribute.String("host.name", hostname()),
			attrStorage.String(conf.Storage),
			attrLedger.Bool(conf.Postgres.HasLedger()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	return res, nil
}

func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("pebbles-backend/noop")
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
