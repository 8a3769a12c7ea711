// Package telemetry provides OpenTelemetry integration for distributed
// tracing. It sets up a global TracerProvider exporting over OTLP; the
// scheduler wraps each synthesis pass in a span.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Config holds the exporter configuration.
type Config struct {
	// Enabled indicates whether tracing is active; when false Init is a no-op.
	Enabled bool

	// ServiceName is reported as service.name on every span.
	ServiceName string

	// ServiceVersion is reported as service.version.
	ServiceVersion string

	// Endpoint is the OTLP collector endpoint, host:port.
	Endpoint string

	// Protocol selects the exporter transport: "grpc" or "http".
	Protocol string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// SampleRatio is the trace sampling ratio in [0, 1]; values outside
	// the range are clamped and 0 means never sample.
	SampleRatio float64
}

// ShutdownFunc is a function that shuts down the TracerProvider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error {
	return nil
}

// Init initializes OpenTelemetry and sets the global TracerProvider.
// When the config is disabled it returns a no-op shutdown function and
// the default no-op provider stays in place.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(exporter),
		trace.WithSampler(createSampler(cfg)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}, nil
}

// createSampler builds a ratio-based sampler, clamped to [0, 1].
func createSampler(cfg Config) trace.Sampler {
	ratio := cfg.SampleRatio
	if ratio >= 1 {
		return trace.AlwaysSample()
	}
	if ratio < 0 {
		ratio = 0
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}
