package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	authAttempts      metric.Int64Counter
	targetValidations metric.Int64Counter
	csrfRejections    metric.Int64Counter
	apiKeyEvents      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "gatekeeper"
	}
	meter := provider.Meter(name)

	authAttempts, err := meter.Int64Counter("gatekeeper_auth_attempts_total")
	if err != nil {
		return nil, err
	}
	targetValidations, err := meter.Int64Counter("gatekeeper_target_validations_total")
	if err != nil {
		return nil, err
	}
	csrfRejections, err := meter.Int64Counter("gatekeeper_csrf_rejections_total")
	if err != nil {
		return nil, err
	}
	apiKeyEvents, err := meter.Int64Counter("gatekeeper_api_key_events_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		authAttempts:      authAttempts,
		targetValidations: targetValidations,
		csrfRejections:    csrfRejections,
		apiKeyEvents:      apiKeyEvents,
	}, nil
}

// RecordAuthAttempt counts credential resolutions by method and outcome.
func (m *Metrics) RecordAuthAttempt(ctx context.Context, method, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("auth_method", strings.TrimSpace(method)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.authAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTargetValidation counts target URL checks; reason is empty on success.
func (m *Metrics) RecordTargetValidation(ctx context.Context, valid bool, reason string) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !valid {
		outcome = "rejected"
	}
	attrs := FilterAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.targetValidations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCSRFRejection(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.csrfRejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAPIKeyEvent counts key lifecycle transitions (created, updated, revoked).
func (m *Metrics) RecordAPIKeyEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.apiKeyEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"auth_method": {},
	"outcome":     {},
	"plan":        {},
	"endpoint":    {},
	"status_code": {},
	"event_type":  {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
