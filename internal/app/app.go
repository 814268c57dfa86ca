// Package app wires the development node and shared process concerns
// (configuration, tracing, metrics and profiling endpoints).
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/i-melnichenko/riak-wire/internal/service"
	clustergrpc "github.com/i-melnichenko/riak-wire/internal/transport/grpc/cluster"
)

// Logger is the logging interface required by App.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// App serves the datatype frame handler over gRPC.
// All dependencies are injected; App does not create the store.
type App struct {
	config    Config
	logger    Logger
	datatypes *service.Datatypes
	tracer    oteltrace.Tracer
}

// New validates dependencies and constructs a runnable application.
func New(cfg Config, logger Logger, datatypes *service.Datatypes, tracer oteltrace.Tracer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("app: nil logger")
	}
	if datatypes == nil {
		return nil, fmt.Errorf("app: nil datatypes service")
	}
	if tracer == nil {
		return nil, fmt.Errorf("app: nil tracer")
	}
	return &App{
		config:    cfg,
		logger:    logger,
		datatypes: datatypes,
		tracer:    tracer,
	}, nil
}

// Run seeds the store, starts the gRPC server plus optional metrics and
// pprof endpoints, and blocks until shutdown or fatal error.
func (a *App) Run(ctx context.Context) error {
	shutdownTracing, err := InitTracing(ctx, a.config.Tracing, RoleNode, a.config.NodeID, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	if a.config.SeedFile != "" {
		raw, err := os.ReadFile(a.config.SeedFile)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		if err := a.datatypes.Load(ctx, raw); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
	}

	metricsSrv, metricsLis, err := NewMetricsServer(a.config.MetricsAddr)
	if err != nil {
		return err
	}
	defer ShutdownHTTPServer(metricsSrv, a.logger, "metrics server")

	pprofSrv, pprofLis, err := newPprofServer(a.config.PprofAddr)
	if err != nil {
		return err
	}
	defer ShutdownHTTPServer(pprofSrv, a.logger, "pprof server")

	lis, err := net.Listen("tcp", a.config.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", a.config.GRPCAddr, err)
	}
	defer func() { _ = lis.Close() }()

	a.logger.Info(
		"node started",
		"node_id", a.config.NodeID,
		"grpc_addr", a.config.GRPCAddr,
		"metrics_addr", a.config.MetricsAddr,
		"pprof_addr", a.config.PprofAddr,
	)

	errCh := make(chan error, 3)
	a.serveHTTP(metricsSrv, metricsLis, "metrics", errCh)
	a.serveHTTP(pprofSrv, pprofLis, "pprof", errCh)
	return a.serve(ctx, lis, errCh)
}

func (a *App) serveHTTP(srv *http.Server, lis net.Listener, name string, errCh chan<- error) {
	if srv == nil {
		return
	}
	go func() {
		if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("%s serve: %w", name, err)
		}
	}()
}

// serve registers the frame service and blocks until ctx is canceled or a
// fatal error arrives on errCh.
func (a *App) serve(ctx context.Context, lis net.Listener, errCh chan error) error {
	server := grpc.NewServer()
	clustergrpc.Register(server, clustergrpc.NewServer(a.datatypes, a.tracer))
	reflection.Register(server)

	go func() {
		if err := server.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		server.GracefulStop()
		return nil
	case err := <-errCh:
		server.Stop()
		return err
	}
}
