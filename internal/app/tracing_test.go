package app

import (
	"context"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracing_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := InitTracing(context.Background(), TracingConfig{}, RoleClient, "host-1", slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("disabled tracing must not replace the global provider")
	}
}

func TestTracingResource_Roles(t *testing.T) {
	cfg := DefaultConfig().Tracing

	tests := []struct {
		role       Role
		wantNodeID bool
	}{
		{role: RoleNode, wantNodeID: true},
		{role: RoleClient, wantNodeID: false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			res, err := tracingResource(context.Background(), cfg, tt.role, "n1")
			if err != nil {
				t.Fatalf("tracingResource: %v", err)
			}
			set := res.Set()
			if v, ok := set.Value(attribute.Key("riakwire.role")); !ok || v.AsString() != string(tt.role) {
				t.Fatalf("unexpected role attribute %v", v)
			}
			if v, ok := set.Value(attribute.Key("service.namespace")); !ok || v.AsString() != serviceNamespace {
				t.Fatalf("unexpected namespace %v", v)
			}
			if _, ok := set.Value(attribute.Key("riakwire.node_id")); ok != tt.wantNodeID {
				t.Fatalf("node_id present=%v, want %v", ok, tt.wantNodeID)
			}
		})
	}
}
