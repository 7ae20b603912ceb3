// Package tracing initializes OpenTelemetry for the bulk writer.
//
// The bulk package always creates spans through otel's global provider; this
// package decides whether those spans go anywhere.
package tracing

import (
	"context"
	"net"
	"strconv"

	"github.com/code19m/errx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.23.1"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rise-and-shine/pgbulk/meta"
)

// InitGlobalTracer installs the global tracer provider described by cfg and
// returns a function that flushes and shuts it down.
//
// A disabled config installs a no-op provider; bulk spans are then free.
func InitGlobalTracer(cfg Config) (func() error, error) {
	if cfg.Disable {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func() error { return nil }, nil
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(cfg.Endpoint()),
		otlptracegrpc.WithReconnectionPeriod(reconnectionPeriod),
	))
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"endpoint": cfg.Endpoint()}))
	}

	tp := NewProvider(cfg, exporter)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(tp)

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := tp.ForceFlush(ctx); err != nil {
			return errx.Wrap(err)
		}
		return errx.Wrap(tp.Shutdown(ctx))
	}, nil
}

// NewProvider builds a batching tracer provider exporting to exporter, sampled
// by cfg.SampleRate and tagged with the service info from meta and cfg.Tags.
func NewProvider(cfg Config, exporter trace.SpanExporter) *trace.TracerProvider {
	return trace.NewTracerProvider(
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.SampleRate))),
		trace.WithBatcher(exporter),
		trace.WithResource(newResource(cfg.Tags)),
	)
}

func newResource(tags map[string]string) *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(meta.GetServiceName()),
		semconv.ServiceVersion(meta.GetServiceVersion()),
	}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

// Endpoint returns the collector address as host:port.
func (c Config) Endpoint() string {
	return net.JoinHostPort(c.ExporterHost, strconv.Itoa(c.ExporterPort))
}
