// Package main implements the development node that answers datatype
// fetches from an in-memory store over the gRPC frame transport.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"

	apppkg "github.com/i-melnichenko/riak-wire/internal/app"
	"github.com/i-melnichenko/riak-wire/internal/kv"
	"github.com/i-melnichenko/riak-wire/internal/observability/metrics"
	"github.com/i-melnichenko/riak-wire/internal/service"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "node: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := apppkg.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(cfg.LogLevel))
	logger := slog.Default()

	m, err := metrics.NewPrometheus(nil)
	if err != nil {
		return err
	}

	// Global tracers delegate to the provider InitTracing installs later.
	tracer := otel.Tracer("riak-wire/node")
	store := kv.NewStore(otel.Tracer("riak-wire/kv"))
	svc := service.NewDatatypes(store, logger, tracer, m, cfg.NodeID)

	app, err := apppkg.New(cfg, logger, svc, otel.Tracer("riak-wire/clustergrpc"))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return app.Run(ctx)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
