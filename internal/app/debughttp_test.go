package app

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
)

func get(t *testing.T, srv *http.Server, lis net.Listener, path string) string {
	t.Helper()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() { ShutdownHTTPServer(srv, slog.New(slog.DiscardHandler), "test") })

	resp, err := http.Get("http://" + lis.Addr().String() + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestDebugServers_DisabledWithoutAddr(t *testing.T) {
	for name, start := range map[string]func(string) (*http.Server, net.Listener, error){
		"metrics": NewMetricsServer,
		"pprof":   newPprofServer,
	} {
		srv, lis, err := start("")
		if srv != nil || lis != nil || err != nil {
			t.Fatalf("%s: expected all nil, got %v %v %v", name, srv, lis, err)
		}
	}
}

func TestNewMetricsServer_ServesRuntimeCollectors(t *testing.T) {
	srv, lis, err := NewMetricsServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewMetricsServer: %v", err)
	}
	if body := get(t, srv, lis, metricsPath); !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go collector output, got %q", body)
	}

	// A second server reuses the already registered collectors.
	srv2, lis2, err := NewMetricsServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("second NewMetricsServer: %v", err)
	}
	_ = get(t, srv2, lis2, metricsPath)
}

func TestNewPprofServer_ServesIndex(t *testing.T) {
	srv, lis, err := newPprofServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("newPprofServer: %v", err)
	}
	if body := get(t, srv, lis, pprofPath); !strings.Contains(body, "goroutine") {
		t.Fatalf("expected profile index, got %q", body)
	}
}

func TestListenHTTP_AddrInUse(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = taken.Close() }()

	if _, _, err := newPprofServer(taken.Addr().String()); err == nil || !strings.Contains(err.Error(), "pprof") {
		t.Fatalf("expected pprof listen error, got %v", err)
	}
}
