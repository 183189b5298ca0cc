// Package telemetry manages OpenTelemetry tracing for the game server.
package telemetry

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/onatuner/tap-or-tarp-sub001/internal/config"
)

// Provider manages the tracer provider lifecycle.
type Provider struct {
	config   config.TelemetryConfig
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// NewProvider builds a provider from config. With tracing disabled it hands
// out the global no-op tracer.
func NewProvider(cfg config.TelemetryConfig) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "taportarp"
	}
	if !cfg.Enabled {
		return &Provider{config: cfg, tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "otlp":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(context.Background(), opts...)
		if err != nil {
			return nil, err
		}
		slog.Info("OTLP exporter initialized", "endpoint", cfg.Endpoint)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		slog.Info("stdout trace exporter initialized")
	default:
		return &Provider{config: cfg, tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	return &Provider{
		config:   cfg,
		tracer:   tp.Tracer(cfg.ServiceName),
		provider: tp,
	}, nil
}

// Tracer returns the tracer for creating spans.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled returns whether spans are actually exported.
func (p *Provider) Enabled() bool {
	return p.config.Enabled && p.provider != nil
}

// Shutdown flushes and stops the trace provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

// Span attributes for game operations.
const (
	AttrGameID      = "game.id"
	AttrGameMode    = "game.mode"
	AttrGameStatus  = "game.status"
	AttrClientID    = "client.id"
	AttrPlayerID    = "player.id"
	AttrMessageType = "message.type"
	AttrPlayerCount = "game.player_count"
	AttrDurationMs  = "game.duration.ms"
	AttrErrorKind   = "error.kind"
)

// RecordGameCreated emits a creation event on the active span.
func RecordGameCreated(ctx context.Context, gameID, mode string, playerCount int) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("game.created",
		trace.WithAttributes(
			attribute.String(AttrGameID, gameID),
			attribute.String(AttrGameMode, mode),
			attribute.Int(AttrPlayerCount, playerCount),
		),
	)
}

// RecordGameClosed exports a standalone span summarizing a finished game.
func RecordGameClosed(ctx context.Context, gameID, status string, durationMs int64) {
	_, span := otel.Tracer("taportarp/lifecycle").Start(ctx, "game.record",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrGameID, gameID),
			attribute.String(AttrGameStatus, status),
			attribute.Int64(AttrDurationMs, durationMs),
		),
	)
	span.End()
}

// ConfigFromEnv overlays the standard OTLP environment variables.
func ConfigFromEnv(cfg config.TelemetryConfig) config.TelemetryConfig {
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Enabled = true
		cfg.Exporter = "otlp"
		cfg.Endpoint = v
		cfg.Insecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	}
	return cfg
}

// NoopProvider returns a provider that records nothing, for tests.
func NoopProvider() *Provider {
	return &Provider{tracer: otel.Tracer("taportarp-noop")}
}
