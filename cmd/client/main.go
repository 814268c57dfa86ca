// Package main implements the CLI client for datatype fetches and the
// object codecs.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	apppkg "github.com/i-melnichenko/riak-wire/internal/app"
	"github.com/i-melnichenko/riak-wire/internal/observability/metrics"
	clustergrpc "github.com/i-melnichenko/riak-wire/internal/transport/grpc/cluster"
)

const usage = `Usage:
  client [--addr host:port[,host:port,...]] fetch [options] <counter|set|map> <bucket> <key>
  client [--addr host:port[,host:port,...]] fetch-batch [options] [--in <file|->] <counter|set|map>
  client [--addr host:port[,host:port,...]] watch [options] [--interval d] <counter|set|map> <bucket> <key>
  client jiak [--in <file|->] [--headers]
  client siblings [--in <file|->] [--jiak] <bucket> <key>

Subcommands:
 - fetch       fetches one datatype from a random node, failing over on transport errors
 - fetch-batch fetches many locations with one long-lived client (TSV: bucket<TAB>key)
 - watch       polls one datatype and renders a live view; serves /metrics when
               APP_METRICS_ADDR is set
 - jiak        decodes a Jiak JSON document and prints its canonical encoding
               (--headers prints the raw interface headers instead)
 - siblings    parses a dumped HTTP response and prints each sibling object
               (--jiak prints each as a Jiak document)

Fetch options:
  --type             bucket type (default "default")
  --r, --pr          quorum: one | quorum | all | default | N
  --basic-quorum     true|false
  --notfound-ok      true|false
  --sloppy-quorum    true|false
  --include-context  true|false (default true)
  --server-timeout   server-side timeout, e.g. 500ms
  --n-val            number of replicas to consult

Flags:
  --addr     Comma-separated node gRPC addresses (env APP_ADDRS)
  --timeout  Request timeout (env APP_TIMEOUT, default 5s)
`

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := apppkg.LoadClientConfigFromEnv()
	if err != nil {
		return err
	}

	addr := flag.String("addr", strings.Join(cfg.Addrs, ","), "comma-separated node gRPC addresses")
	timeout := flag.Duration("timeout", cfg.Timeout, "request timeout")
	flag.Usage = func() { _, _ = fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("subcommand required: fetch | fetch-batch | watch | jiak | siblings")
	}

	cfg.Addrs = apppkg.SplitCSV(*addr)
	cfg.Timeout = *timeout
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	switch args[0] {
	case "fetch":
		fs := newFlagSet("fetch")
		ff := registerFetchFlags(fs)
		if err := fs.Parse(args[1:]); err != nil || fs.NArg() != 3 {
			return fmt.Errorf("usage: fetch [options] <counter|set|map> <bucket> <key>")
		}
		kind, err := parseFetchKind(fs.Arg(0))
		if err != nil {
			return err
		}
		return withCluster(cfg, logger, func(cl *clustergrpc.ClusterClient, inst instruments, _ *metrics.Prometheus) error {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
			defer cancel()
			return cmdFetch(ctx, cl, kind, ff.location(fs.Arg(1), fs.Arg(2)), ff, inst)
		})

	case "fetch-batch":
		fs := newFlagSet("fetch-batch")
		ff := registerFetchFlags(fs)
		inPath := fs.String("in", "-", "TSV input path (bucket<TAB>key), use - for stdin")
		if err := fs.Parse(args[1:]); err != nil || fs.NArg() != 1 {
			return fmt.Errorf("usage: fetch-batch [options] [--in <file|->] <counter|set|map>")
		}
		kind, err := parseFetchKind(fs.Arg(0))
		if err != nil {
			return err
		}
		return withCluster(cfg, logger, func(cl *clustergrpc.ClusterClient, inst instruments, _ *metrics.Prometheus) error {
			return cmdFetchBatch(cl, kind, ff, inst, cfg.Timeout, *inPath)
		})

	case "watch":
		fs := newFlagSet("watch")
		ff := registerFetchFlags(fs)
		interval := fs.Duration("interval", defaultWatchInterval, "poll interval")
		if err := fs.Parse(args[1:]); err != nil || fs.NArg() != 3 || *interval <= 0 {
			return fmt.Errorf("usage: watch [options] [--interval d] <counter|set|map> <bucket> <key>")
		}
		kind, err := parseFetchKind(fs.Arg(0))
		if err != nil {
			return err
		}
		return withCluster(cfg, logger, func(cl *clustergrpc.ClusterClient, inst instruments, m *metrics.Prometheus) error {
			srv, lis, err := apppkg.NewMetricsServer(cfg.MetricsAddr)
			if err != nil {
				return err
			}
			if srv != nil {
				go func() { _ = srv.Serve(lis) }()
				defer apppkg.ShutdownHTTPServer(srv, logger, "metrics server")
			}
			return cmdWatch(cl, kind, ff.location(fs.Arg(1), fs.Arg(2)), ff, inst, m, cfg.Timeout, *interval)
		})

	case "jiak":
		fs := newFlagSet("jiak")
		inPath := fs.String("in", "-", "input path, use - for stdin")
		headers := fs.Bool("headers", false, "print raw interface headers instead of JSON")
		if err := fs.Parse(args[1:]); err != nil || fs.NArg() != 0 {
			return fmt.Errorf("usage: jiak [--in <file|->] [--headers]")
		}
		in, err := openInput(*inPath)
		if err != nil {
			return err
		}
		defer func() { _ = in.Close() }()
		return cmdJiak(os.Stdout, in, cfg.HTTPPrefix, *headers)

	case "siblings":
		fs := newFlagSet("siblings")
		inPath := fs.String("in", "-", "dumped HTTP response path, use - for stdin")
		asJiak := fs.Bool("jiak", false, "print each sibling as a Jiak document")
		if err := fs.Parse(args[1:]); err != nil || fs.NArg() != 2 {
			return fmt.Errorf("usage: siblings [--in <file|->] [--jiak] <bucket> <key>")
		}
		in, err := openInput(*inPath)
		if err != nil {
			return err
		}
		defer func() { _ = in.Close() }()
		return cmdSiblings(os.Stdout, in, fs.Arg(0), fs.Arg(1), cfg.HTTPPrefix, *asJiak)

	default:
		flag.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// withCluster sets up tracing, metrics and a cluster client for the
// duration of fn.
func withCluster(cfg apppkg.ClientConfig, logger *slog.Logger, fn func(*clustergrpc.ClusterClient, instruments, *metrics.Prometheus) error) error {
	shutdownTracing, err := apppkg.InitTracing(context.Background(), cfg.Tracing, apppkg.RoleClient, instanceID(), logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	m, err := metrics.NewPrometheus(nil)
	if err != nil {
		return err
	}
	cl, err := clustergrpc.DialCluster(cfg.Addrs, otel.Tracer("riak-wire/clustergrpc"), m,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	inst := instruments{
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("riak-wire/command"),
	}
	return fn(cl, inst, m)
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		return "client"
	}
	return host
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
