package app

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/i-melnichenko/riak-wire/internal/command"
	"github.com/i-melnichenko/riak-wire/internal/kv"
	"github.com/i-melnichenko/riak-wire/internal/service"
	clustergrpc "github.com/i-melnichenko/riak-wire/internal/transport/grpc/cluster"
)

var testTracer = noop.NewTracerProvider().Tracer("test/internal/app")

func TestNew_RejectsMissingDependencies(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	svc := service.NewDatatypes(kv.NewStore(testTracer), logger, testTracer, nil, "n1")

	if _, err := New(DefaultConfig(), nil, svc, testTracer); err == nil {
		t.Fatalf("expected error for nil logger")
	}
	if _, err := New(DefaultConfig(), logger, nil, testTracer); err == nil {
		t.Fatalf("expected error for nil service")
	}
	bad := DefaultConfig()
	bad.NodeID = ""
	if _, err := New(bad, logger, svc, testTracer); err == nil {
		t.Fatalf("expected error for invalid config")
	}
}

func TestApp_ServesDatatypes(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	svc := service.NewDatatypes(kv.NewStore(testTracer), logger, testTracer, nil, "n1")
	if err := svc.Load(context.Background(), []byte(`[{"type":"put","bucket_type":"sets","bucket":"b","key":"k","value":{"set":["x","y","z"]}}]`)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, err := New(DefaultConfig(), logger, svc, testTracer)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, lis, make(chan error, 1)) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Errorf("serve did not stop")
		}
	})

	client, err := clustergrpc.Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer reqCancel()
	resp, err := command.FetchSet(command.NewLocation("b", "k").WithBucketType("sets")).Execute(reqCtx, client)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := resp.Datatype().Strings(); len(got) != 3 || got[0] != "x" {
		t.Fatalf("unexpected set %q", got)
	}
	if !resp.HasContext() {
		t.Fatalf("expected context")
	}
}
