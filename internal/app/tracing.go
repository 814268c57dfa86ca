package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Role tells traces from the development node apart from client runs.
type Role string

const (
	RoleNode   Role = "node"
	RoleClient Role = "client"
)

const serviceNamespace = "riak-wire"

// InitTracing installs a global OTLP tracer provider for role and returns
// its shutdown function. Tracers obtained from otel.Tracer before the call
// delegate to the new provider. With tracing disabled nothing is installed.
func InitTracing(ctx context.Context, cfg TracingConfig, role Role, instanceID string, logger Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("app: tracing exporter: %w", err)
	}

	res, err := tracingResource(ctx, cfg, role, instanceID)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled",
		"role", string(role),
		"endpoint", endpoint,
		"service_name", cfg.ServiceName,
		"sample_ratio", cfg.SampleRatio,
	)
	return tp.Shutdown, nil
}

func tracingResource(ctx context.Context, cfg TracingConfig, role Role, instanceID string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", serviceNamespace),
		attribute.String("service.instance.id", instanceID),
		attribute.String("riakwire.role", string(role)),
	}
	if role == RoleNode {
		attrs = append(attrs, attribute.String("riakwire.node_id", instanceID))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("app: tracing resource: %w", err)
	}
	return res, nil
}
