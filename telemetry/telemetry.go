// Package telemetry wires OpenTelemetry tracing for the assistant pipeline.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tailored-agentic-units/movi"

// Config selects the trace exporter. With no endpoint spans are created but
// not exported.
//
//	telemetry:
//	  service_name: movi
//	  endpoint: http://localhost:4318
type Config struct {
	ServiceName    string `json:"service_name" yaml:"service_name"`
	ServiceVersion string `json:"service_version,omitempty" yaml:"service_version,omitempty"`
	Endpoint       string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure       bool   `json:"insecure,omitempty" yaml:"insecure,omitempty"`

	// TracerProvider overrides the provider built from the fields above.
	TracerProvider trace.TracerProvider `json:"-" yaml:"-"`
}

// DefaultConfig returns a non-exporting configuration.
func DefaultConfig() Config {
	return Config{ServiceName: "movi"}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.ServiceName != "" {
		c.ServiceName = source.ServiceName
	}
	if source.ServiceVersion != "" {
		c.ServiceVersion = source.ServiceVersion
	}
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
	if source.Insecure {
		c.Insecure = true
	}
}

// Manager owns the tracer provider and hands out spans.
type Manager struct {
	tracer   trace.Tracer
	provider trace.TracerProvider
}

var defaultManager atomic.Pointer[Manager]

// NewManager builds a Manager from cfg.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	tp := cfg.TracerProvider
	if tp == nil {
		opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(buildResource(cfg))}

		if cfg.Endpoint != "" {
			exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
			if cfg.Insecure {
				exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
			}
			exporter, err := otlptracehttp.New(ctx, exporterOpts...)
			if err != nil {
				return nil, fmt.Errorf("otlp exporter: %w", err)
			}
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
		tp = sdktrace.NewTracerProvider(opts...)
	}

	return &Manager{
		tracer:   tp.Tracer(instrumentationName),
		provider: tp,
	}, nil
}

// StartSpan starts a span. A nil Manager returns the span already in ctx.
func (m *Manager) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return m.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Shutdown flushes and stops the provider when it supports it.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if closer, ok := m.provider.(interface {
		Shutdown(context.Context) error
	}); ok {
		return closer.Shutdown(ctx)
	}
	return nil
}

// SetDefault installs the process-wide Manager.
func SetDefault(m *Manager) {
	defaultManager.Store(m)
}

// Default returns the process-wide Manager, or nil.
func Default() *Manager {
	return defaultManager.Load()
}

// StartSpan starts a span on the default Manager.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Default().StartSpan(ctx, name, attrs...)
}

// EndSpan records err, sets the status and ends the span. An interrupt is
// not a failure; callers pass nil for it.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if err == nil {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func buildResource(cfg Config) *resource.Resource {
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "movi"
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", service)}
	if v := strings.TrimSpace(cfg.ServiceVersion); v != "" {
		attrs = append(attrs, attribute.String("service.version", v))
	}
	return resource.NewSchemaless(attrs...)
}
