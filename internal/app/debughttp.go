package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsPath        = "/metrics"
	pprofPath          = "/debug/pprof/"
	httpHeaderTimeout  = 5 * time.Second
	httpShutdownPeriod = 5 * time.Second
)

var (
	runtimeCollectorsOnce sync.Once
	runtimeCollectorsErr  error
)

// NewMetricsServer binds addr and returns a server exposing the default
// Prometheus registry on /metrics. Both the node and the watch subcommand use
// it. An empty addr disables it: all results are nil.
func NewMetricsServer(addr string) (*http.Server, net.Listener, error) {
	if addr == "" {
		return nil, nil, nil
	}
	runtimeCollectorsOnce.Do(func() {
		runtimeCollectorsErr = registerRuntimeCollectors(prometheus.DefaultRegisterer)
	})
	if runtimeCollectorsErr != nil {
		return nil, nil, runtimeCollectorsErr
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	return listenHTTP("metrics", addr, mux)
}

// newPprofServer binds addr for the node's profiling endpoints. Named
// profiles (heap, goroutine, ...) are served by pprof.Index.
func newPprofServer(addr string) (*http.Server, net.Listener, error) {
	if addr == "" {
		return nil, nil, nil
	}
	mux := http.NewServeMux()
	mux.HandleFunc(pprofPath, pprof.Index)
	mux.HandleFunc(pprofPath+"cmdline", pprof.Cmdline)
	mux.HandleFunc(pprofPath+"profile", pprof.Profile)
	mux.HandleFunc(pprofPath+"symbol", pprof.Symbol)
	mux.HandleFunc(pprofPath+"trace", pprof.Trace)
	return listenHTTP("pprof", addr, mux)
}

func registerRuntimeCollectors(reg prometheus.Registerer) error {
	for name, c := range map[string]prometheus.Collector{
		"go":      collectors.NewGoCollector(),
		"process": collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		var already prometheus.AlreadyRegisteredError
		if err := reg.Register(c); err != nil && !errors.As(err, &already) {
			return fmt.Errorf("app: register %s collector: %w", name, err)
		}
	}
	return nil
}

func listenHTTP(name, addr string, h http.Handler) (*http.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("app: listen %s on %s: %w", name, addr, err)
	}
	return &http.Server{Handler: h, ReadHeaderTimeout: httpHeaderTimeout}, lis, nil
}

// ShutdownHTTPServer drains srv within a fixed grace period. Nil is ignored.
func ShutdownHTTPServer(srv *http.Server, logger Logger, name string) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http server shutdown failed", "server", name, "error", err)
	}
}
