// Package telemetry wires the OpenTelemetry metric SDK to Prometheus.
//
// Instrumented packages record through the global otel meter; without this
// setup those calls are no-ops, which tests rely on.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// Setup installs a Prometheus-backed meter provider as the global otel
// provider. The returned shutdown function flushes and stops it. When
// disabled, Setup is a no-op and shutdown does nothing.
func Setup(cfg Config, logger *zap.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(resource.NewSchemaless(
			attributeServiceName(cfg.ServiceName),
		)),
	)
	otel.SetMeterProvider(provider)

	logger.Info("metrics enabled", zap.String("service", cfg.ServiceName))
	return provider.Shutdown, nil
}
