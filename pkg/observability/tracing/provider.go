// Package tracing sets up OpenTelemetry for the server and traces each
// connection job as one span.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName names the tracer used for connection spans.
const InstrumentationName = "github.com/fluxorio/linehttpd"

// Exporter names.
const (
	ExporterStdout = "stdout"
	ExporterZipkin = "zipkin"
)

// ErrUnknownExporter is returned for an exporter name other than stdout or zipkin.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config configures the tracer provider.
type Config struct {
	Enabled     bool
	ServiceName string
	Exporter    string    // ExporterStdout (default) or ExporterZipkin
	Endpoint    string    // zipkin collector URL
	Writer      io.Writer // stdout exporter destination, defaults to os.Stdout
}

// Provider owns a tracer provider and its shutdown.
type Provider struct {
	tp       trace.TracerProvider
	shutdown func(context.Context) error
}

// NewProvider builds a provider from cfg. A disabled config yields a no-op
// provider whose Shutdown does nothing.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{
			tp:       noop.NewTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	name := cfg.ServiceName
	if name == "" {
		name = "linehttpd"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
	return &Provider{tp: tp, shutdown: tp.Shutdown}, nil
}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		return exp, nil
	case ExporterZipkin:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("zipkin exporter: endpoint is required")
		}
		exp, err := zipkin.New(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("zipkin exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.Exporter)
	}
}

// TracerProvider returns the underlying provider, for otel.SetTracerProvider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tp
}

// Tracer returns the tracer for connection spans.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(InstrumentationName)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
