package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/Alijeyrad/notifyhub/config"
	"github.com/Alijeyrad/notifyhub/pkg/constants"
)

const shutdownTimeout = 5 * time.Second

// Config describes how the worker reports spans and metrics.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint is an OTLP/HTTP host:port. Empty keeps spans in-process,
	// which still lets NATS trace context flow through the worker.
	OTLPEndpoint string
	OTLPInsecure bool
	SamplingRate float64 // 0 means 1

	// Prometheus exposes fan-out counters through the default registry.
	Prometheus bool
}

// FromCentralConfig maps the observability section onto Config.
func FromCentralConfig(cfg *config.Config) Config {
	o := cfg.Observability
	c := Config{
		ServiceName:    o.ServiceName,
		ServiceVersion: o.ServiceVersion,
		Environment:    cfg.Server.Environment,
		SamplingRate:   o.Tracing.SamplingRate,
		Prometheus:     o.Metrics.Enabled,
	}
	if c.ServiceName == "" {
		c.ServiceName = constants.AppName
	}
	if o.Tracing.Enabled {
		c.OTLPEndpoint = o.Tracing.OTLPEndpoint
		c.OTLPInsecure = o.Tracing.OTLPInsecure
	}
	return c
}

// Provider owns the global tracer and meter providers installed by
// InitTelemetry. PrometheusExporter is nil when metrics are off.
type Provider struct {
	TracerProvider     *trace.TracerProvider
	MeterProvider      *metric.MeterProvider
	PrometheusExporter *prometheus.Exporter
}

// InitTelemetry installs tracer and meter providers for the notifyhub
// worker and the W3C propagators used by NatsHandler.
func InitTelemetry(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, res, cfg)
	if err != nil {
		return nil, err
	}
	p := &Provider{TracerProvider: tp}

	mopts := []metric.Option{metric.WithResource(res)}
	if cfg.Prometheus {
		if p.PrometheusExporter, err = prometheus.New(); err != nil {
			_ = tp.Shutdown(ctx)
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		mopts = append(mopts, metric.WithReader(p.PrometheusExporter))
	}
	p.MeterProvider = metric.NewMeterProvider(mopts...)

	otel.SetTracerProvider(p.TracerProvider)
	otel.SetMeterProvider(p.MeterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, cfg Config) (*trace.TracerProvider, error) {
	rate := cfg.SamplingRate
	if rate <= 0 {
		rate = 1
	}
	// a publisher's sampling decision wins over the local rate
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(rate))),
	}
	if cfg.OTLPEndpoint != "" {
		eopts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			eopts = append(eopts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, eopts...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter %s: %w", cfg.OTLPEndpoint, err)
		}
		opts = append(opts, trace.WithBatcher(exp))
	}
	return trace.NewTracerProvider(opts...), nil
}

// Shutdown flushes pending spans and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
	)
}
