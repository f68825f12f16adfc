package tracing

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/organizer/pkg/tracing/exporters"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type ProviderConfig struct {
	ServiceName string
	// OTLP is used when Enabled is set, otherwise spans go to the console exporter.
	Enabled bool
	OTLP    exporters.OTLPConfig
}

// Setup installs a global TracerProvider and the package tracer. The returned function flushes
// and shuts the provider down.
func Setup(ctx context.Context, cfg ProviderConfig, logger ectologger.Logger) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	if cfg.Enabled {
		otlpExporter, err := exporters.NewOTLPExporter(ctx, cfg.OTLP)
		if err != nil {
			return nil, err
		}
		exporter = otlpExporter
	} else {
		exporter = exporters.NewConsoleExporter(logger)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	SetTracer(provider.Tracer(cfg.ServiceName))

	logger.WithFields(map[string]any{
		"service":  cfg.ServiceName,
		"otlp":     cfg.Enabled,
		"endpoint": cfg.OTLP.Endpoint,
	}).Info("tracing initialized")

	return provider.Shutdown, nil
}
